package service

import (
	"context"
	"fmt"
	"time"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/common/logger"
	"topup-bot-backend/internal/common/validation"
	"topup-bot-backend/internal/features/account/models"
	authservice "topup-bot-backend/internal/features/auth/service"
	catalogservice "topup-bot-backend/internal/features/catalog/service"
	ledgerservice "topup-bot-backend/internal/features/ledger/service"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	"topup-bot-backend/internal/features/topup/state"
	"topup-bot-backend/internal/service/notifier"
)

// Receipt is what a successful purchase returns to the caller: the
// recorded order plus the balance after the debit.
type Receipt struct {
	Order   models.Order
	Balance int64
}

type OrderService interface {
	// SubmitOrder runs the purchase pipeline for the account. Checks
	// short-circuit in a fixed sequence so the caller always sees the
	// first failing condition, each as a distinct error code. On
	// success the debit and the order record are committed together.
	SubmitOrder(ctx context.Context, accountID, gameID, serverID, itemCode string) (*Receipt, error)
}

type orderService struct {
	auth        authservice.AuthService
	switchboard maintenance.SwitchboardService
	restricted  *state.RestrictionStore
	banned      *validation.BannedAccountFilter
	catalog     catalogservice.CatalogService
	ledger      ledgerservice.LedgerService
	notify      notifier.Notifier
}

func NewOrderService(
	auth authservice.AuthService,
	switchboard maintenance.SwitchboardService,
	restricted *state.RestrictionStore,
	banned *validation.BannedAccountFilter,
	catalog catalogservice.CatalogService,
	ledger ledgerservice.LedgerService,
	notify notifier.Notifier,
) OrderService {
	return &orderService{
		auth:        auth,
		switchboard: switchboard,
		restricted:  restricted,
		banned:      banned,
		catalog:     catalog,
		ledger:      ledger,
		notify:      notify,
	}
}

func (s *orderService) SubmitOrder(ctx context.Context, accountID, gameID, serverID, itemCode string) (*Receipt, error) {
	authorized, err := s.auth.IsAuthorized(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "account is not authorized to order")
	}

	if !s.switchboard.IsEnabled(ctx, maintenance.FeatureOrders) {
		return nil, apperrors.New(apperrors.ErrCodeMaintenanceDisabled, "ordering is temporarily disabled")
	}

	if s.restricted.IsRestricted(accountID) {
		return nil, apperrors.New(apperrors.ErrCodeAwaitingApproval, "a submitted top-up is awaiting approval")
	}

	account, err := s.ledger.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.HasPendingTopup() {
		return nil, apperrors.New(apperrors.ErrCodePendingTopupConflict, "resolve the pending top-up before ordering")
	}

	if !validation.ValidGameID(gameID) {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidGameID, "game id %q must be 6-10 digits", gameID)
	}
	if !validation.ValidServerID(serverID) {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidServerID, "server id %q must be 3-5 digits", serverID)
	}

	if s.banned.IsBanned(gameID) {
		// The order is rejected, but the attempt itself is something
		// the owner wants to hear about.
		s.notify.NotifyOwner(ctx, fmt.Sprintf(
			"Blocked order attempt on banned game id %s by account %s.", gameID, accountID))
		return nil, apperrors.Newf(apperrors.ErrCodeBannedAccount, "game id %s is blocked", gameID)
	}

	price, err := s.catalog.Price(ctx, itemCode)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OrderID:   mintOrderID(time.Now()),
		ItemCode:  itemCode,
		GameID:    gameID,
		ServerID:  serverID,
		Price:     price,
		Status:    models.OrderProcessing,
		CreatedAt: time.Now(),
	}

	// Debit and order record commit as one document write. The
	// pending-topup condition is rechecked under the lock in case a
	// proof-of-payment event raced the pipeline above.
	updated, err := s.ledger.Apply(ctx, accountID, func(a *models.Account) error {
		if a.HasPendingTopup() {
			return apperrors.New(apperrors.ErrCodePendingTopupConflict, "resolve the pending top-up before ordering")
		}
		if err := ledgerservice.ApplyDebit(a, price); err != nil {
			return err
		}
		a.Orders = append(a.Orders, order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("order_id", order.OrderID).
		Str("account_id", accountID).
		Str("item_code", itemCode).
		Int64("price", price).
		Msg("order recorded")

	summary := fmt.Sprintf("New order %s: item %s for game id %s (server %s), price %d, account %s.",
		order.OrderID, itemCode, gameID, serverID, price, accountID)
	s.notify.NotifyOwner(ctx, summary)
	s.notify.NotifyOps(ctx, summary)

	return &Receipt{Order: order, Balance: updated.Balance}, nil
}

// mintOrderID derives the order id from the wall clock to the second.
// Two orders in the same second collide; accepted as-is.
func mintOrderID(t time.Time) string {
	return "ORD" + t.Format("20060102150405")
}
