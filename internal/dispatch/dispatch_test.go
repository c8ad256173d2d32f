package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"

	"topup-bot-backend/internal/common/validation"
	accountmemory "topup-bot-backend/internal/features/account/repository/memory"
	authmemory "topup-bot-backend/internal/features/auth/repository/memory"
	authservice "topup-bot-backend/internal/features/auth/service"
	catalogmemory "topup-bot-backend/internal/features/catalog/repository/memory"
	catalogservice "topup-bot-backend/internal/features/catalog/service"
	ledgerservice "topup-bot-backend/internal/features/ledger/service"
	maintmemory "topup-bot-backend/internal/features/maintenance/repository/memory"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	orderservice "topup-bot-backend/internal/features/order/service"
	topupservice "topup-bot-backend/internal/features/topup/service"
	"topup-bot-backend/internal/features/topup/state"
	"topup-bot-backend/internal/utils/keymutex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID = "777000"
	userID  = "424242"
)

type fanoutNotifier struct {
	mu    sync.Mutex
	users map[string][]string
}

func (n *fanoutNotifier) NotifyOwner(context.Context, string) {}
func (n *fanoutNotifier) NotifyOps(context.Context, string)   {}
func (n *fanoutNotifier) NotifyUser(_ context.Context, accountID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.users == nil {
		n.users = make(map[string][]string)
	}
	n.users[accountID] = append(n.users[accountID], text)
}
func (n *fanoutNotifier) ForwardProof(context.Context, string, int) {}

type world struct {
	d           *Dispatcher
	ledger      ledgerservice.LedgerService
	switchboard maintenance.SwitchboardService
	notify      *fanoutNotifier
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()

	accounts := accountmemory.NewAccountRepository()
	restrictions := state.NewRestrictionStore()
	stages := state.NewStageStore()
	notify := &fanoutNotifier{}

	auth := authservice.NewAuthService(authmemory.NewAuthorizedSetRepository(), restrictions, notify, ownerID)
	require.NoError(t, auth.Authorize(ctx, ownerID, userID))

	switchboard := maintenance.NewSwitchboardService(maintmemory.NewFlagRepository())
	catalog := catalogservice.NewCatalogService(catalogmemory.NewOverrideRepository(), 0)
	ledger := ledgerservice.NewLedgerService(accounts, keymutex.New())
	banned := validation.NewBannedAccountFilter(validation.DefaultDenyList)

	orders := orderservice.NewOrderService(auth, switchboard, restrictions, banned, catalog, ledger, notify)
	topups := topupservice.NewTopupService(auth, switchboard, stages, restrictions, ledger, accounts, notify, 1000)

	d := NewDispatcher(accounts, auth, switchboard, restrictions, catalog, ledger, orders, topups, notify)
	return &world{d: d, ledger: ledger, switchboard: switchboard, notify: notify}
}

func (w *world) send(caller, command string, args ...string) Reply {
	return w.d.Handle(context.Background(), Event{
		ID: "evt-1", CallerID: caller, Command: command, Args: args,
	})
}

func TestDispatch_UnauthorizedCaller(t *testing.T) {
	w := newWorld(t)
	reply := w.send("999999", CmdStart)
	assert.Contains(t, reply.Text, "not authorized")
}

func TestDispatch_StartThenBalance(t *testing.T) {
	w := newWorld(t)

	// balance before start
	reply := w.send(userID, CmdBalance)
	assert.Contains(t, reply.Text, "not initialized")

	reply = w.send(userID, CmdStart)
	assert.Contains(t, reply.Text, "Welcome")

	reply = w.send(userID, CmdBalance)
	assert.Equal(t, "Balance: 0.", reply.Text)

	// start is idempotent
	reply = w.send(userID, CmdStart)
	assert.Contains(t, reply.Text, "Welcome back")
}

func TestDispatch_BuyFlow(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.send(userID, CmdStart)
	_, err := w.ledger.Credit(ctx, userID, 20000, false)
	require.NoError(t, err)

	reply := w.send(userID, CmdBuy, "1234567", "2001", "wp2")
	assert.Contains(t, reply.Text, "Order ORD")
	assert.Contains(t, reply.Text, "Remaining balance: 7000")

	reply = w.send(userID, CmdBuy, "1234567", "2001")
	assert.Contains(t, reply.Text, "Usage:")

	reply = w.send(userID, CmdBuy, "1234567", "2001", "wp99")
	assert.Contains(t, reply.Text, "Unknown item")
}

func TestDispatch_TopupLifecycle(t *testing.T) {
	w := newWorld(t)

	w.send(userID, CmdStart)

	reply := w.send(userID, CmdStageTopup, "5000")
	assert.Contains(t, reply.Text, "staged")

	reply = w.d.Handle(context.Background(), Event{
		ID: "evt-2", CallerID: userID, Command: CmdSubmitProof, MessageID: 42,
	})
	assert.Contains(t, reply.Text, "Proof received")

	// restricted: everything except proof is gated
	reply = w.send(userID, CmdBalance)
	assert.Contains(t, reply.Text, "awaiting approval")
	reply = w.send(userID, CmdBuy, "1234567", "2001", "wp1")
	assert.Contains(t, reply.Text, "awaiting approval")

	// a second proof is redundant
	reply = w.d.Handle(context.Background(), Event{
		ID: "evt-3", CallerID: userID, Command: CmdSubmitProof, MessageID: 43,
	})
	assert.Contains(t, reply.Text, "awaiting approval")

	// owner approves, user unblocked with credited balance
	reply = w.send(ownerID, CmdApprove, userID, "5000")
	assert.Contains(t, reply.Text, "New balance: 5000")

	reply = w.send(userID, CmdBalance)
	assert.Equal(t, "Balance: 5000.", reply.Text)
}

func TestDispatch_GeneralMaintenanceGate(t *testing.T) {
	w := newWorld(t)
	w.send(userID, CmdStart)

	require.NoError(t, w.switchboard.SetFlag(context.Background(), maintenance.FeatureGeneral, false))
	reply := w.send(userID, CmdBalance)
	assert.Contains(t, reply.Text, "maintenance")
}

func TestDispatch_GeneralOffDoesNotLockOutOwner(t *testing.T) {
	w := newWorld(t)
	w.send(userID, CmdStart)

	reply := w.send(ownerID, CmdSetMaintenance, "general", "off")
	require.Contains(t, reply.Text, "general")

	// users are gated, the owner's admin surface is not
	reply = w.send(userID, CmdBalance)
	assert.Contains(t, reply.Text, "maintenance")

	reply = w.send(ownerID, CmdSetMaintenance, "general", "on")
	require.Contains(t, reply.Text, "set to on")

	reply = w.send(userID, CmdBalance)
	assert.Equal(t, "Balance: 0.", reply.Text)
}

func TestDispatch_OwnerOnlyCommands(t *testing.T) {
	w := newWorld(t)
	w.send(userID, CmdStart)

	// a regular caller issuing an admin command just gets the unknown
	// command reply; the admin surface does not exist for them
	reply := w.send(userID, CmdApprove, userID, "5000")
	assert.Contains(t, reply.Text, "Unknown command")

	reply = w.send(ownerID, CmdSetPrice, "wp1", "7000")
	assert.Contains(t, reply.Text, "set to 7000")

	reply = w.send(ownerID, CmdClearPrice, "wp1")
	assert.Contains(t, reply.Text, "cleared")

	reply = w.send(ownerID, CmdClearPrice, "wp1")
	assert.Contains(t, strings.ToLower(reply.Text), "no price override")

	reply = w.send(ownerID, CmdSetMaintenance, "orders", "off")
	assert.Contains(t, reply.Text, "orders")
	reply = w.send(ownerID, CmdSetMaintenance, "refunds", "off")
	assert.Contains(t, strings.ToLower(reply.Text), "unknown")
}

func TestDispatch_AuthorizeRevoke(t *testing.T) {
	w := newWorld(t)

	reply := w.send(ownerID, CmdAuthorize, "111222")
	assert.Contains(t, reply.Text, "authorized")

	reply = w.send(ownerID, CmdAuthorize, "111222")
	assert.Contains(t, reply.Text, "already")

	reply = w.send(ownerID, CmdRevoke, "111222")
	assert.Contains(t, reply.Text, "revoked")
}

func TestDispatch_BroadcastAndNotify(t *testing.T) {
	w := newWorld(t)

	reply := w.send(ownerID, CmdBroadcast, "scheduled", "maintenance", "tonight")
	assert.Contains(t, reply.Text, "1 accounts")
	require.Len(t, w.notify.users[userID], 2) // access granted + broadcast
	assert.Equal(t, "scheduled maintenance tonight", w.notify.users[userID][1])

	reply = w.send(ownerID, CmdNotifyUser, userID, "your", "order", "shipped")
	assert.Contains(t, reply.Text, "Message sent")
	assert.Equal(t, "your order shipped", w.notify.users[userID][2])
}

func TestDispatch_History(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.send(userID, CmdStart)
	reply := w.send(userID, CmdHistory)
	assert.Equal(t, "No orders or top-ups yet.", reply.Text)

	_, err := w.ledger.Credit(ctx, userID, 100000, false)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		reply = w.send(userID, CmdBuy, "1234567", "2001", "11")
		require.Contains(t, reply.Text, "Order ORD")
	}

	reply = w.send(userID, CmdHistory)
	assert.Contains(t, reply.Text, "Orders:")
	// capped at the five most recent
	assert.Equal(t, 5, strings.Count(reply.Text, "ORD"))
}

func TestDispatch_UnknownCommand(t *testing.T) {
	w := newWorld(t)
	reply := w.send(userID, "dance")
	assert.Contains(t, reply.Text, "Unknown command")
}

func TestDispatch_DeductKeepsRestriction(t *testing.T) {
	w := newWorld(t)
	w.send(userID, CmdStart)
	w.send(userID, CmdStageTopup, "5000")
	w.d.Handle(context.Background(), Event{ID: "e", CallerID: userID, Command: CmdSubmitProof, MessageID: 1})

	_, err := w.ledger.Credit(context.Background(), userID, 3000, false)
	require.NoError(t, err)

	reply := w.send(ownerID, CmdDeduct, userID, "1000")
	assert.Contains(t, reply.Text, "Deducted")

	// still restricted until an approve
	reply = w.send(userID, CmdBalance)
	assert.Contains(t, reply.Text, "awaiting approval")
}
