package notifier

import (
	"context"
	"strconv"
	"sync/atomic"

	"topup-bot-backend/internal/common/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers notifications through the Telegram Bot
// API. Failures are counted and logged, never returned: the ledger and
// workflow transitions that triggered the message have already
// committed.
type TelegramNotifier struct {
	bot       *tgbotapi.BotAPI
	ownerID   int64
	opsChatID int64
	failures  atomic.Int64
}

func NewTelegramNotifier(token string, ownerID, opsChatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, ownerID: ownerID, opsChatID: opsChatID}, nil
}

// Failures returns the number of deliveries that have failed since
// start. Surfaced on the admin API stats endpoint.
func (n *TelegramNotifier) Failures() int64 {
	return n.failures.Load()
}

func (n *TelegramNotifier) NotifyOwner(_ context.Context, text string) {
	n.send(n.ownerID, text)
}

func (n *TelegramNotifier) NotifyOps(_ context.Context, text string) {
	n.send(n.opsChatID, text)
}

func (n *TelegramNotifier) NotifyUser(_ context.Context, accountID string, text string) {
	chatID, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil {
		n.failures.Add(1)
		logger.Warn().Str("account_id", accountID).Msg("notify user: account id is not a chat id")
		return
	}
	n.send(chatID, text)
}

func (n *TelegramNotifier) ForwardProof(_ context.Context, accountID string, messageID int) {
	fromChat, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil {
		n.failures.Add(1)
		logger.Warn().Str("account_id", accountID).Msg("forward proof: account id is not a chat id")
		return
	}
	if _, err := n.bot.Send(tgbotapi.NewForward(n.ownerID, fromChat, messageID)); err != nil {
		n.failures.Add(1)
		logger.Warn().Err(err).Str("account_id", accountID).Msg("forward proof failed")
	}
}

func (n *TelegramNotifier) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.failures.Add(1)
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("notification delivery failed")
	}
}
