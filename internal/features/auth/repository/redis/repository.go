package redis

import (
	"context"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/auth/repository"

	"github.com/redis/go-redis/v9"
)

const authorizedSetKey = "authorized_ids"

type authorizedSetRepository struct {
	client *redis.Client
}

func NewAuthorizedSetRepository(client *redis.Client) repository.AuthorizedSetRepository {
	return &authorizedSetRepository{client: client}
}

func (r *authorizedSetRepository) Add(ctx context.Context, id string) error {
	if err := r.client.SAdd(ctx, authorizedSetKey, id).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "add authorized id")
	}
	return nil
}

func (r *authorizedSetRepository) Remove(ctx context.Context, id string) error {
	if err := r.client.SRem(ctx, authorizedSetKey, id).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "remove authorized id")
	}
	return nil
}

func (r *authorizedSetRepository) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, authorizedSetKey, id).Result()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "check authorized id")
	}
	return ok, nil
}

func (r *authorizedSetRepository) All(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, authorizedSetKey).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "list authorized ids")
	}
	return ids, nil
}
