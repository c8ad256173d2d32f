package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/account/models"
	"topup-bot-backend/internal/features/account/repository"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "account:"

// maxTxRetries bounds the optimistic WATCH retry loop in Mutate.
const maxTxRetries = 16

type accountRepository struct {
	client *redis.Client
}

func NewAccountRepository(client *redis.Client) repository.AccountRepository {
	return &accountRepository{client: client}
}

func accountKey(id string) string {
	return keyPrefix + id
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	raw, err := json.Marshal(account)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "marshal account")
	}
	ok, err := r.client.SetNX(ctx, accountKey(account.ID), raw, 0).Result()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "create account")
	}
	if !ok {
		return apperrors.Newf(apperrors.ErrCodeAlreadyInState, "account %s already exists", account.ID)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	raw, err := r.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "account %s not found", id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "get account")
	}

	var account models.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "unmarshal account")
	}
	return &account, nil
}

// Mutate applies fn under an optimistic WATCH transaction so that a
// concurrent write to the same account document forces a retry instead
// of a lost update. A non-nil error from fn aborts without writing.
func (r *accountRepository) Mutate(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	key := accountKey(id)
	var mutated *models.Account

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return apperrors.Newf(apperrors.ErrCodeNotFound, "account %s not found", id)
			}
			return err
		}

		var account models.Account
		if err := json.Unmarshal(raw, &account); err != nil {
			return err
		}

		if err := fn(&account); err != nil {
			return err
		}
		account.UpdatedAt = time.Now()

		out, err := json.Marshal(&account)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		mutated = &account
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return mutated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "mutate account")
	}
	return nil, apperrors.Newf(apperrors.ErrCodeStorage, "mutate account %s: too much contention", id)
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var account models.Account
		if err := json.Unmarshal(raw, &account); err != nil {
			continue
		}
		accounts = append(accounts, &account)
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "scan accounts")
	}
	return accounts, nil
}
