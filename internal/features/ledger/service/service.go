package service

import (
	"context"
	"time"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/account/models"
	"topup-bot-backend/internal/features/account/repository"
	"topup-bot-backend/internal/utils/keymutex"
)

// LedgerService owns every balance mutation. All writes funnel through
// Apply, which serializes read-modify-write sequences per account so
// concurrent commands, photo events and admin decisions for the same
// account cannot interleave.
type LedgerService interface {
	// Apply runs fn against the account document under the account's
	// lock. Nothing is persisted when fn returns an error.
	Apply(ctx context.Context, accountID string, fn func(*models.Account) error) (*models.Account, error)
	Credit(ctx context.Context, accountID string, amount int64, linkPending bool) (*models.Account, error)
	Debit(ctx context.Context, accountID string, amount int64) (*models.Account, error)
	Get(ctx context.Context, accountID string) (*models.Account, error)
}

type ledgerService struct {
	repo  repository.AccountRepository
	locks *keymutex.KeyMutex
}

func NewLedgerService(repo repository.AccountRepository, locks *keymutex.KeyMutex) LedgerService {
	return &ledgerService{repo: repo, locks: locks}
}

func (s *ledgerService) Apply(ctx context.Context, accountID string, fn func(*models.Account) error) (*models.Account, error) {
	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)
	return s.repo.Mutate(ctx, accountID, fn)
}

func (s *ledgerService) Credit(ctx context.Context, accountID string, amount int64, linkPending bool) (*models.Account, error) {
	return s.Apply(ctx, accountID, func(a *models.Account) error {
		return ApplyCredit(a, amount, linkPending)
	})
}

func (s *ledgerService) Debit(ctx context.Context, accountID string, amount int64) (*models.Account, error) {
	return s.Apply(ctx, accountID, func(a *models.Account) error {
		return ApplyDebit(a, amount)
	})
}

func (s *ledgerService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// ApplyCredit increments the balance and, when linkPending is set,
// advances the most recent pending top-up of the same amount to
// approved. A credit with no matching pending entry still goes
// through; the linkage is best effort by design.
func ApplyCredit(a *models.Account, amount int64, linkPending bool) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrCodeInvalidAmount, "credit amount must be positive, got %d", amount)
	}
	if linkPending {
		if i := a.LatestPendingIndex(amount); i >= 0 {
			now := time.Now()
			a.Topups[i].Status = models.TopupApproved
			a.Topups[i].ApprovedAt = &now
		}
	}
	a.Balance += amount
	return nil
}

// ApplyDebit decrements the balance, failing with the shortfall when
// the account cannot cover the amount.
func ApplyDebit(a *models.Account, amount int64) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrCodeInvalidAmount, "debit amount must be positive, got %d", amount)
	}
	if a.Balance < amount {
		return apperrors.Newf(apperrors.ErrCodeInsufficientFunds,
			"balance %d cannot cover %d", a.Balance, amount).
			WithDetail("shortfall", amount-a.Balance)
	}
	a.Balance -= amount
	return nil
}
