package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/common/logger"
	"topup-bot-backend/internal/features/account/models"
	"topup-bot-backend/internal/features/account/repository"
	authservice "topup-bot-backend/internal/features/auth/service"
	catalogservice "topup-bot-backend/internal/features/catalog/service"
	ledgerservice "topup-bot-backend/internal/features/ledger/service"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	orderservice "topup-bot-backend/internal/features/order/service"
	topupservice "topup-bot-backend/internal/features/topup/service"
	"topup-bot-backend/internal/features/topup/state"
	"topup-bot-backend/internal/service/notifier"
)

// historyLimit caps how many orders and top-ups the history reply
// shows, newest last.
const historyLimit = 5

// Dispatcher routes normalized transport events to the workflow
// services. The gate runs ahead of every user command: authorization,
// then the general maintenance flag, then the restriction check.
// Admin commands pass only the authorization check so the owner keeps
// control of the flags regardless of maintenance state.
type Dispatcher struct {
	accounts     repository.AccountRepository
	auth         authservice.AuthService
	switchboard  maintenance.SwitchboardService
	restrictions *state.RestrictionStore
	catalog      catalogservice.CatalogService
	ledger       ledgerservice.LedgerService
	orders       orderservice.OrderService
	topups       topupservice.TopupService
	notify       notifier.Notifier
}

func NewDispatcher(
	accounts repository.AccountRepository,
	auth authservice.AuthService,
	switchboard maintenance.SwitchboardService,
	restrictions *state.RestrictionStore,
	catalog catalogservice.CatalogService,
	ledger ledgerservice.LedgerService,
	orders orderservice.OrderService,
	topups topupservice.TopupService,
	notify notifier.Notifier,
) *Dispatcher {
	return &Dispatcher{
		accounts:     accounts,
		auth:         auth,
		switchboard:  switchboard,
		restrictions: restrictions,
		catalog:      catalog,
		ledger:       ledger,
		orders:       orders,
		topups:       topups,
		notify:       notify,
	}
}

// Handle processes one event and always produces a reply, translating
// workflow errors into user-facing text. Only storage failures reach
// the caller as errors.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) Reply {
	text := d.route(ctx, ev)
	return Reply{EventID: ev.ID, AccountID: ev.CallerID, Text: text}
}

func (d *Dispatcher) route(ctx context.Context, ev Event) string {
	authorized, err := d.auth.IsAuthorized(ctx, ev.CallerID)
	if err != nil {
		return renderError(err)
	}
	if !authorized {
		return "You are not authorized to use this service. Contact the owner for access."
	}

	// Admin commands route before the general gate; otherwise turning
	// the general flag off would lock the owner out of turning it back
	// on from chat.
	if d.auth.IsOwner(ev.CallerID) {
		if text, handled := d.routeOwner(ctx, ev); handled {
			return text
		}
	}

	if !d.switchboard.IsEnabled(ctx, maintenance.FeatureGeneral) {
		return "The service is under maintenance. Please try again later."
	}

	// A restricted account may only re-send proof, which the workflow
	// itself rejects as redundant with a clearer message.
	if d.restrictions.IsRestricted(ev.CallerID) && ev.Command != CmdSubmitProof {
		return "Your top-up is awaiting approval. Please wait for an admin decision."
	}

	switch ev.Command {
	case CmdStart:
		return d.handleStart(ctx, ev)
	case CmdBuy:
		return d.handleBuy(ctx, ev)
	case CmdBalance:
		return d.handleBalance(ctx, ev)
	case CmdStageTopup:
		return d.handleStageTopup(ctx, ev)
	case CmdSubmitProof:
		return d.handleSubmitProof(ctx, ev)
	case CmdPrice:
		return d.handlePrice(ctx)
	case CmdHistory:
		return d.handleHistory(ctx, ev)
	default:
		return fmt.Sprintf("Unknown command %q. Send start for the list of commands.", ev.Command)
	}
}

// routeOwner handles the administrative command set. The second
// return value is false when the command is not administrative so the
// owner can still use the regular surface.
func (d *Dispatcher) routeOwner(ctx context.Context, ev Event) (string, bool) {
	switch ev.Command {
	case CmdApprove:
		return d.handleApprove(ctx, ev), true
	case CmdDeduct:
		return d.handleDeduct(ctx, ev), true
	case CmdAuthorize:
		return d.handleAuthorize(ctx, ev), true
	case CmdRevoke:
		return d.handleRevoke(ctx, ev), true
	case CmdSetMaintenance:
		return d.handleSetMaintenance(ctx, ev), true
	case CmdSetPrice:
		return d.handleSetPrice(ctx, ev), true
	case CmdClearPrice:
		return d.handleClearPrice(ctx, ev), true
	case CmdBroadcast:
		return d.handleBroadcast(ctx, ev), true
	case CmdNotifyUser:
		return d.handleNotifyUser(ctx, ev), true
	default:
		return "", false
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, ev Event) string {
	account, err := d.accounts.GetByID(ctx, ev.CallerID)
	if err == nil {
		return fmt.Sprintf("Welcome back, %s. Balance: %d.", displayName(account, ev), account.Balance)
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return renderError(err)
	}

	account = &models.Account{
		ID:        ev.CallerID,
		Name:      ev.Name,
		Handle:    ev.Handle,
		CreatedAt: time.Now(),
	}
	if err := d.accounts.Create(ctx, account); err != nil &&
		!apperrors.HasCode(err, apperrors.ErrCodeAlreadyInState) {
		return renderError(err)
	}

	logger.Info().Str("account_id", ev.CallerID).Msg("account initialized")
	return fmt.Sprintf("Welcome, %s. Your account is ready. Balance: 0.", displayName(account, ev))
}

func (d *Dispatcher) handleBuy(ctx context.Context, ev Event) string {
	if len(ev.Args) != 3 {
		return "Usage: buy <game id> <server id> <item code>"
	}
	receipt, err := d.orders.SubmitOrder(ctx, ev.CallerID, ev.Args[0], ev.Args[1], ev.Args[2])
	if err != nil {
		return renderCallerError(err)
	}
	return fmt.Sprintf("Order %s placed: %s for %d. Remaining balance: %d.",
		receipt.Order.OrderID, receipt.Order.ItemCode, receipt.Order.Price, receipt.Balance)
}

func (d *Dispatcher) handleBalance(ctx context.Context, ev Event) string {
	account, err := d.ledger.Get(ctx, ev.CallerID)
	if err != nil {
		return renderCallerError(err)
	}
	return fmt.Sprintf("Balance: %d.", account.Balance)
}

func (d *Dispatcher) handleStageTopup(ctx context.Context, ev Event) string {
	if len(ev.Args) != 1 {
		return "Usage: stage_topup <amount>"
	}
	amount, err := strconv.ParseInt(ev.Args[0], 10, 64)
	if err != nil {
		return "The amount must be a whole number."
	}
	stage, err := d.topups.Stage(ctx, ev.CallerID, amount)
	if err != nil {
		return renderCallerError(err)
	}
	return fmt.Sprintf("Top-up of %d staged. Transfer the amount and send a screenshot of the payment as proof.", stage.Amount)
}

func (d *Dispatcher) handleSubmitProof(ctx context.Context, ev Event) string {
	account, err := d.topups.SubmitProof(ctx, ev.CallerID, ev.MessageID)
	if err != nil {
		return renderCallerError(err)
	}
	pending := account.PendingTopups()
	amount := int64(0)
	if len(pending) > 0 {
		amount = pending[len(pending)-1].Amount
	}
	return fmt.Sprintf("Proof received for your top-up of %d. You will be notified once an admin approves it.", amount)
}

func (d *Dispatcher) handlePrice(ctx context.Context) string {
	list, err := d.catalog.PriceList(ctx)
	if err != nil {
		return renderError(err)
	}

	var b strings.Builder
	b.WriteString("Price list (minor units):\n")
	fmt.Fprintf(&b, "Weekly pass: wp1..wp%d at %d per tier\n", 10, list.WeeklyPassUnitPrice)
	b.WriteString("Bundles:\n")
	writeSortedPrices(&b, list.Bundles)
	b.WriteString("Double bundles (first recharge):\n")
	writeSortedPrices(&b, list.DoubleBundles)
	if len(list.Overrides) > 0 {
		b.WriteString("Current overrides:\n")
		writeSortedPrices(&b, list.Overrides)
	}
	return b.String()
}

func (d *Dispatcher) handleHistory(ctx context.Context, ev Event) string {
	account, err := d.ledger.Get(ctx, ev.CallerID)
	if err != nil {
		return renderCallerError(err)
	}
	if len(account.Orders) == 0 && len(account.Topups) == 0 {
		return "No orders or top-ups yet."
	}

	// histories are append-only; the tail is the most recent
	orders := account.Orders
	if len(orders) > historyLimit {
		orders = orders[len(orders)-historyLimit:]
	}
	topups := account.Topups
	if len(topups) > historyLimit {
		topups = topups[len(topups)-historyLimit:]
	}

	var b strings.Builder
	if len(orders) > 0 {
		b.WriteString("Orders:\n")
		for _, o := range orders {
			fmt.Fprintf(&b, "%s  %s  %d  %s  %s\n",
				o.OrderID, o.ItemCode, o.Price, o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	if len(topups) > 0 {
		b.WriteString("Top-ups:\n")
		for _, tp := range topups {
			fmt.Fprintf(&b, "%d  %s  %s\n",
				tp.Amount, tp.Status, tp.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	return b.String()
}

func (d *Dispatcher) handleApprove(ctx context.Context, ev Event) string {
	accountID, amount, ok := idAmountArgs(ev.Args)
	if !ok {
		return "Usage: approve <account id> <amount>"
	}
	account, err := d.topups.Approve(ctx, accountID, amount)
	if err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Approved %d for account %s. New balance: %d.", amount, accountID, account.Balance)
}

func (d *Dispatcher) handleDeduct(ctx context.Context, ev Event) string {
	accountID, amount, ok := idAmountArgs(ev.Args)
	if !ok {
		return "Usage: deduct <account id> <amount>"
	}
	account, err := d.topups.Deduct(ctx, accountID, amount)
	if err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Deducted %d from account %s. New balance: %d.", amount, accountID, account.Balance)
}

func (d *Dispatcher) handleAuthorize(ctx context.Context, ev Event) string {
	if len(ev.Args) != 1 {
		return "Usage: authorize <account id>"
	}
	if err := d.auth.Authorize(ctx, ev.CallerID, ev.Args[0]); err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Account %s authorized.", ev.Args[0])
}

func (d *Dispatcher) handleRevoke(ctx context.Context, ev Event) string {
	if len(ev.Args) != 1 {
		return "Usage: revoke <account id>"
	}
	if err := d.auth.Revoke(ctx, ev.CallerID, ev.Args[0]); err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Account %s revoked.", ev.Args[0])
}

func (d *Dispatcher) handleSetMaintenance(ctx context.Context, ev Event) string {
	if len(ev.Args) != 2 {
		return "Usage: set_maintenance <orders|topups|general> <on|off>"
	}
	enabled, ok := parseOnOff(ev.Args[1])
	if !ok {
		return "The second argument must be on or off."
	}
	if err := d.switchboard.SetFlag(ctx, ev.Args[0], enabled); err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Maintenance flag %s set to %s.", ev.Args[0], ev.Args[1])
}

func (d *Dispatcher) handleSetPrice(ctx context.Context, ev Event) string {
	if len(ev.Args) != 2 {
		return "Usage: set_price <item code> <price>"
	}
	price, err := strconv.ParseInt(ev.Args[1], 10, 64)
	if err != nil {
		return "The price must be a whole number."
	}
	if err := d.catalog.SetPrice(ctx, ev.Args[0], price); err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Price of %s set to %d.", ev.Args[0], price)
}

func (d *Dispatcher) handleClearPrice(ctx context.Context, ev Event) string {
	if len(ev.Args) != 1 {
		return "Usage: clear_price <item code>"
	}
	if err := d.catalog.ClearPrice(ctx, ev.Args[0]); err != nil {
		return renderError(err)
	}
	return fmt.Sprintf("Price override for %s cleared.", ev.Args[0])
}

func (d *Dispatcher) handleBroadcast(ctx context.Context, ev Event) string {
	if len(ev.Args) == 0 {
		return "Usage: broadcast <message>"
	}
	message := strings.Join(ev.Args, " ")

	ids, err := d.auth.AuthorizedIDs(ctx)
	if err != nil {
		return renderError(err)
	}
	for _, id := range ids {
		d.notify.NotifyUser(ctx, id, message)
	}
	return fmt.Sprintf("Broadcast sent to %d accounts.", len(ids))
}

func (d *Dispatcher) handleNotifyUser(ctx context.Context, ev Event) string {
	if len(ev.Args) < 2 {
		return "Usage: notify_user <account id> <message>"
	}
	d.notify.NotifyUser(ctx, ev.Args[0], strings.Join(ev.Args[1:], " "))
	return fmt.Sprintf("Message sent to account %s.", ev.Args[0])
}

func idAmountArgs(args []string) (string, int64, bool) {
	if len(args) != 2 {
		return "", 0, false
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return args[0], amount, true
}

func parseOnOff(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	default:
		return false, false
	}
}

func displayName(account *models.Account, ev Event) string {
	switch {
	case account != nil && account.Name != "":
		return account.Name
	case ev.Name != "":
		return ev.Name
	default:
		return ev.CallerID
	}
}

func writeSortedPrices(b *strings.Builder, prices map[string]int64) {
	codes := make([]string, 0, len(prices))
	for code := range prices {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		a, errA := strconv.Atoi(codes[i])
		c, errC := strconv.Atoi(codes[j])
		if errA == nil && errC == nil {
			return a < c
		}
		return codes[i] < codes[j]
	})
	for _, code := range codes {
		fmt.Fprintf(b, "%s: %d\n", code, prices[code])
	}
}

// renderCallerError is renderError with one twist: a missing account
// means the caller never sent start, so say that instead of echoing
// the storage message.
func renderCallerError(err error) string {
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return "Account not initialized. Send start first."
	}
	return renderError(err)
}

// renderError maps workflow error codes onto user-facing replies.
// Anything without a mapping is a storage or programming fault and
// gets a generic message after being logged.
func renderError(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Msg("unclassified dispatch error")
		return "Something went wrong. Please try again later."
	}

	switch appErr.Code {
	case apperrors.ErrCodeUnauthorized:
		return "You are not allowed to do that."
	case apperrors.ErrCodeMaintenanceDisabled:
		return "This feature is temporarily disabled for maintenance."
	case apperrors.ErrCodeAwaitingApproval:
		return "Your top-up is awaiting approval. Please wait for an admin decision."
	case apperrors.ErrCodePendingTopupConflict:
		return "You have a pending top-up. It must be resolved before you continue."
	case apperrors.ErrCodeInvalidGameID:
		return "The game id must be 6 to 10 digits."
	case apperrors.ErrCodeInvalidServerID:
		return "The server id must be 3 to 5 digits."
	case apperrors.ErrCodeBannedAccount:
		return "This game account cannot be topped up."
	case apperrors.ErrCodeUnknownItem:
		return "Unknown item code. Send price for the catalog."
	case apperrors.ErrCodeInsufficientFunds:
		if shortfall, ok := appErr.Details["shortfall"].(int64); ok {
			return fmt.Sprintf("Insufficient balance. You are %d short; top up first.", shortfall)
		}
		return "Insufficient balance. Top up first."
	case apperrors.ErrCodeInvalidAmount:
		return appErr.Message
	case apperrors.ErrCodeNoActiveStage:
		return "Stage a top-up amount before sending proof."
	case apperrors.ErrCodeNotFound:
		return appErr.Message
	case apperrors.ErrCodeAlreadyInState:
		return appErr.Message
	default:
		logger.Error().Err(err).Str("code", string(appErr.Code)).Msg("dispatch error")
		return "Something went wrong. Please try again later."
	}
}
