package workers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"topup-bot-backend/internal/common/logger"
	"topup-bot-backend/internal/dispatch"
	"topup-bot-backend/internal/platform/redis"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	updatesStream = "bot:updates"
	repliesStream = "bot:replies"
	consumerGroup = "topup_backend_consumers"
	consumerName  = "topup_worker_1"

	readBlock    = 5 * time.Second
	errorBackoff = time.Second
)

// UpdatesWorker consumes normalized transport events from the updates
// stream, runs them through the dispatcher and appends the replies to
// the replies stream for the transport to deliver.
type UpdatesWorker struct {
	rdb        *redis.Client
	dispatcher *dispatch.Dispatcher
}

func NewUpdatesWorker(rdb *redis.Client, dispatcher *dispatch.Dispatcher) *UpdatesWorker {
	return &UpdatesWorker{rdb: rdb, dispatcher: dispatcher}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *UpdatesWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, updatesStream, consumerGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		logger.Error().Err(err).Msg("failed to create consumer group")
	}

	logger.Info().Str("stream", updatesStream).Msg("updates worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("updates worker stopping")
			return
		default:
			entries, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: consumerName,
				Streams:  []string{updatesStream, ">"},
				Count:    10,
				Block:    readBlock,
			}).Result()

			if err != nil {
				if err != goredis.Nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("stream read failed")
					time.Sleep(errorBackoff)
				}
				continue
			}

			for _, stream := range entries {
				for _, msg := range stream.Messages {
					w.processMessage(ctx, msg)
					w.rdb.XAck(ctx, updatesStream, consumerGroup, msg.ID)
				}
			}
		}
	}
}

func (w *UpdatesWorker) processMessage(ctx context.Context, msg goredis.XMessage) {
	event, ok := parseEvent(msg)
	if !ok {
		logger.Warn().Str("stream_id", msg.ID).Msg("malformed update entry dropped")
		return
	}

	reply := w.dispatcher.Handle(ctx, event)

	if err := w.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: repliesStream,
		Values: map[string]interface{}{
			"event_id":   reply.EventID,
			"account_id": reply.AccountID,
			"text":       reply.Text,
		},
	}).Err(); err != nil {
		logger.Error().Err(err).Str("event_id", reply.EventID).Msg("failed to append reply")
	}
}

// parseEvent accepts either a single "payload" field holding the JSON
// event or flat fields (caller_id, command, args as space-separated,
// message_id). The transport uses the former; the flat form keeps
// manual XADD debugging workable.
func parseEvent(msg goredis.XMessage) (dispatch.Event, bool) {
	var event dispatch.Event

	if payload, ok := msg.Values["payload"].(string); ok {
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return event, false
		}
	} else {
		callerID, ok := msg.Values["caller_id"].(string)
		if !ok {
			return event, false
		}
		command, ok := msg.Values["command"].(string)
		if !ok {
			return event, false
		}
		event.CallerID = callerID
		event.Command = command
		if args, ok := msg.Values["args"].(string); ok && args != "" {
			event.Args = strings.Fields(args)
		}
		if raw, ok := msg.Values["message_id"].(string); ok {
			if id, err := strconv.Atoi(raw); err == nil {
				event.MessageID = id
			}
		}
		if name, ok := msg.Values["name"].(string); ok {
			event.Name = name
		}
		if handle, ok := msg.Values["handle"].(string); ok {
			event.Handle = handle
		}
	}

	if event.CallerID == "" || event.Command == "" {
		return event, false
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return event, true
}
