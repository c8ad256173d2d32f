package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/account/models"
	"topup-bot-backend/internal/features/account/repository"
)

// accountRepository is an in-process implementation with the same
// atomicity contract as the Redis one. Used in tests and as a
// storage-free fallback mode.
type accountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewAccountRepository() repository.AccountRepository {
	return &accountRepository{accounts: make(map[string]*models.Account)}
}

func clone(a *models.Account) *models.Account {
	raw, _ := json.Marshal(a)
	var out models.Account
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (r *accountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; ok {
		return apperrors.Newf(apperrors.ErrCodeAlreadyInState, "account %s already exists", account.ID)
	}
	r.accounts[account.ID] = clone(account)
	return nil
}

func (r *accountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "account %s not found", id)
	}
	return clone(account), nil
}

func (r *accountRepository) Mutate(_ context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "account %s not found", id)
	}

	working := clone(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	r.accounts[id] = working
	return clone(working), nil
}

func (r *accountRepository) List(_ context.Context) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]*models.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, clone(account))
	}
	return accounts, nil
}
