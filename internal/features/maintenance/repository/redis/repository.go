package redis

import (
	"context"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/maintenance/repository"

	"github.com/redis/go-redis/v9"
)

const flagsKey = "maintenance_flags"

type flagRepository struct {
	client *redis.Client
}

func NewFlagRepository(client *redis.Client) repository.FlagRepository {
	return &flagRepository{client: client}
}

func (r *flagRepository) Get(ctx context.Context, feature string) (bool, bool, error) {
	raw, err := r.client.HGet(ctx, flagsKey, feature).Result()
	if err != nil {
		if err == redis.Nil {
			return false, false, nil
		}
		return false, false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "get maintenance flag")
	}
	return raw == "1", true, nil
}

func (r *flagRepository) Set(ctx context.Context, feature string, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	if err := r.client.HSet(ctx, flagsKey, feature, val).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "set maintenance flag")
	}
	return nil
}

func (r *flagRepository) All(ctx context.Context) (map[string]bool, error) {
	raw, err := r.client.HGetAll(ctx, flagsKey).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "list maintenance flags")
	}
	out := make(map[string]bool, len(raw))
	for feature, val := range raw {
		out[feature] = val == "1"
	}
	return out, nil
}
