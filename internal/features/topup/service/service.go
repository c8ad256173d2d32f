package service

import (
	"context"
	"fmt"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/common/logger"
	"topup-bot-backend/internal/features/account/models"
	authservice "topup-bot-backend/internal/features/auth/service"
	ledgerservice "topup-bot-backend/internal/features/ledger/service"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	"topup-bot-backend/internal/features/topup/state"
	"topup-bot-backend/internal/service/notifier"
)

// TopupService drives the deposit state machine: an account stages an
// amount, submits proof of payment, then waits restricted until an
// admin approves. Approval credits the ledger and lifts the
// restriction; deduct is a plain administrative debit and deliberately
// leaves any restriction in place.
type TopupService interface {
	Stage(ctx context.Context, accountID string, amount int64) (state.PendingStage, error)
	SubmitProof(ctx context.Context, accountID string, messageID int) (*models.Account, error)
	Approve(ctx context.Context, accountID string, amount int64) (*models.Account, error)
	Deduct(ctx context.Context, accountID string, amount int64) (*models.Account, error)
	// RehydrateRestrictions rebuilds the restriction set from pending
	// top-ups in the durable store. Called once at process start.
	RehydrateRestrictions(ctx context.Context) error
}

type topupService struct {
	auth        authservice.AuthService
	switchboard maintenance.SwitchboardService
	stages      *state.StageStore
	restricted  *state.RestrictionStore
	ledger      ledgerservice.LedgerService
	accounts    accountLister
	notify      notifier.Notifier
	minAmount   int64
}

// accountLister is the slice of the account repository rehydration
// needs.
type accountLister interface {
	List(ctx context.Context) ([]*models.Account, error)
}

func NewTopupService(
	auth authservice.AuthService,
	switchboard maintenance.SwitchboardService,
	stages *state.StageStore,
	restricted *state.RestrictionStore,
	ledger ledgerservice.LedgerService,
	accounts accountLister,
	notify notifier.Notifier,
	minAmount int64,
) TopupService {
	return &topupService{
		auth:        auth,
		switchboard: switchboard,
		stages:      stages,
		restricted:  restricted,
		ledger:      ledger,
		accounts:    accounts,
		notify:      notify,
		minAmount:   minAmount,
	}
}

func (s *topupService) Stage(ctx context.Context, accountID string, amount int64) (state.PendingStage, error) {
	var none state.PendingStage

	authorized, err := s.auth.IsAuthorized(ctx, accountID)
	if err != nil {
		return none, err
	}
	if !authorized {
		return none, apperrors.New(apperrors.ErrCodeUnauthorized, "account is not authorized to top up")
	}

	if !s.switchboard.IsEnabled(ctx, maintenance.FeatureTopups) {
		return none, apperrors.New(apperrors.ErrCodeMaintenanceDisabled, "top-ups are temporarily disabled")
	}

	if s.restricted.IsRestricted(accountID) {
		return none, apperrors.New(apperrors.ErrCodeAwaitingApproval, "a submitted top-up is awaiting approval")
	}

	account, err := s.ledger.Get(ctx, accountID)
	if err != nil {
		return none, err
	}
	if account.HasPendingTopup() {
		return none, apperrors.New(apperrors.ErrCodePendingTopupConflict, "resolve the pending top-up first")
	}

	if amount < s.minAmount {
		return none, apperrors.Newf(apperrors.ErrCodeInvalidAmount,
			"top-up amount must be at least %d, got %d", s.minAmount, amount)
	}

	// Re-staging simply replaces the previous amount.
	s.stages.Put(accountID, amount)
	stage, _ := s.stages.Get(accountID)
	return stage, nil
}

func (s *topupService) SubmitProof(ctx context.Context, accountID string, messageID int) (*models.Account, error) {
	if s.restricted.IsRestricted(accountID) {
		return nil, apperrors.New(apperrors.ErrCodeAwaitingApproval, "a submitted top-up is already awaiting approval")
	}

	stage, ok := s.stages.Get(accountID)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeNoActiveStage, "stage a top-up amount before sending proof")
	}

	// The pending check above races a concurrent proof event for the
	// same account, so it is repeated under the account lock; the
	// second writer aborts here instead of appending a duplicate.
	updated, err := s.ledger.Apply(ctx, accountID, func(a *models.Account) error {
		if a.HasPendingTopup() {
			return apperrors.New(apperrors.ErrCodeAwaitingApproval, "a submitted top-up is already awaiting approval")
		}
		a.Topups = append(a.Topups, models.NewPendingTopup(stage.Amount))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Restriction and stage cleanup happen only after the pending
	// record is durable, so a crash in between leaves a pending
	// top-up that rehydration restores the restriction from.
	s.restricted.Restrict(accountID)
	s.stages.Clear(accountID)

	logger.Info().
		Str("account_id", accountID).
		Int64("amount", stage.Amount).
		Msg("top-up proof submitted")

	s.notify.ForwardProof(ctx, accountID, messageID)
	summary := fmt.Sprintf("Top-up proof from account %s for %d. Approve with: approve %s %d",
		accountID, stage.Amount, accountID, stage.Amount)
	s.notify.NotifyOwner(ctx, summary)
	s.notify.NotifyOps(ctx, summary)

	return updated, nil
}

func (s *topupService) Approve(ctx context.Context, accountID string, amount int64) (*models.Account, error) {
	updated, err := s.ledger.Credit(ctx, accountID, amount, true)
	if err != nil {
		return nil, err
	}

	s.restricted.Clear(accountID)

	logger.Info().
		Str("account_id", accountID).
		Int64("amount", amount).
		Int64("balance", updated.Balance).
		Msg("top-up approved")

	s.notify.NotifyUser(ctx, accountID, fmt.Sprintf(
		"Your top-up of %d was approved. New balance: %d.", amount, updated.Balance))

	return updated, nil
}

func (s *topupService) Deduct(ctx context.Context, accountID string, amount int64) (*models.Account, error) {
	// No restriction change here. Only an approval resolves a
	// submitted top-up.
	return s.ledger.Debit(ctx, accountID, amount)
}

func (s *topupService) RehydrateRestrictions(ctx context.Context) error {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}

	restored := 0
	for _, a := range accounts {
		if a.HasPendingTopup() {
			s.restricted.Restrict(a.ID)
			restored++
		}
	}

	logger.Info().Int("restricted", restored).Msg("restriction state rehydrated")
	return nil
}
