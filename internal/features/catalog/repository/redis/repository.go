package redis

import (
	"context"
	"strconv"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/catalog/repository"

	"github.com/redis/go-redis/v9"
)

const overridesKey = "price_overrides"

type overrideRepository struct {
	client *redis.Client
}

func NewOverrideRepository(client *redis.Client) repository.OverrideRepository {
	return &overrideRepository{client: client}
}

func (r *overrideRepository) Get(ctx context.Context, itemCode string) (int64, bool, error) {
	raw, err := r.client.HGet(ctx, overridesKey, itemCode).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "get price override")
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "parse price override")
	}
	return price, true, nil
}

func (r *overrideRepository) Set(ctx context.Context, itemCode string, price int64) error {
	if err := r.client.HSet(ctx, overridesKey, itemCode, price).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "set price override")
	}
	return nil
}

func (r *overrideRepository) Delete(ctx context.Context, itemCode string) (bool, error) {
	n, err := r.client.HDel(ctx, overridesKey, itemCode).Result()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "delete price override")
	}
	return n > 0, nil
}

func (r *overrideRepository) All(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, overridesKey).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "list price overrides")
	}
	out := make(map[string]int64, len(raw))
	for code, val := range raw {
		price, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		out[code] = price
	}
	return out, nil
}
