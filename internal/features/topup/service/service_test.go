package service

import (
	"context"
	"sync"
	"testing"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/account/models"
	accountmemory "topup-bot-backend/internal/features/account/repository/memory"
	authmemory "topup-bot-backend/internal/features/auth/repository/memory"
	authservice "topup-bot-backend/internal/features/auth/service"
	ledgerservice "topup-bot-backend/internal/features/ledger/service"
	maintmemory "topup-bot-backend/internal/features/maintenance/repository/memory"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	"topup-bot-backend/internal/features/topup/state"
	"topup-bot-backend/internal/service/notifier"
	"topup-bot-backend/internal/utils/keymutex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID   = "777000"
	holderID  = "424242"
	minAmount = 1000
)

type captureNotifier struct {
	mu       sync.Mutex
	owner    []string
	ops      []string
	users    map[string][]string
	forwards []int
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{users: make(map[string][]string)}
}

func (n *captureNotifier) NotifyOwner(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owner = append(n.owner, text)
}

func (n *captureNotifier) NotifyOps(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ops = append(n.ops, text)
}

func (n *captureNotifier) NotifyUser(_ context.Context, accountID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users[accountID] = append(n.users[accountID], text)
}

func (n *captureNotifier) ForwardProof(_ context.Context, _ string, messageID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forwards = append(n.forwards, messageID)
}

type fixture struct {
	svc          TopupService
	ledger       ledgerservice.LedgerService
	stages       *state.StageStore
	restrictions *state.RestrictionStore
	switchboard  maintenance.SwitchboardService
	notify       *captureNotifier
}

func newFixture(t *testing.T, holder *models.Account) *fixture {
	t.Helper()
	ctx := context.Background()

	accounts := accountmemory.NewAccountRepository()
	require.NoError(t, accounts.Create(ctx, holder))

	restrictions := state.NewRestrictionStore()
	stages := state.NewStageStore()
	notify := newCaptureNotifier()

	auth := authservice.NewAuthService(authmemory.NewAuthorizedSetRepository(), restrictions, notify, ownerID)
	require.NoError(t, auth.Authorize(ctx, ownerID, holder.ID))

	switchboard := maintenance.NewSwitchboardService(maintmemory.NewFlagRepository())
	ledger := ledgerservice.NewLedgerService(accounts, keymutex.New())

	svc := NewTopupService(auth, switchboard, stages, restrictions, ledger, accounts, notify, minAmount)

	return &fixture{
		svc:          svc,
		ledger:       ledger,
		stages:       stages,
		restrictions: restrictions,
		switchboard:  switchboard,
		notify:       notify,
	}
}

func TestTopupRoundTrip(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	ctx := context.Background()

	stage, err := f.svc.Stage(ctx, holderID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), stage.Amount)

	acc, err := f.svc.SubmitProof(ctx, holderID, 9001)
	require.NoError(t, err)
	require.Len(t, acc.Topups, 1)
	assert.Equal(t, int64(5000), acc.Topups[0].Amount)
	assert.Equal(t, models.TopupPending, acc.Topups[0].Status)
	assert.True(t, f.restrictions.IsRestricted(holderID))
	_, staged := f.stages.Get(holderID)
	assert.False(t, staged)

	// owner gets the forwarded proof plus an approval reference
	assert.Equal(t, []int{9001}, f.notify.forwards)
	require.Len(t, f.notify.owner, 1)
	assert.Contains(t, f.notify.owner[0], "approve "+holderID+" 5000")

	acc, err = f.svc.Approve(ctx, holderID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), acc.Balance)
	assert.Equal(t, models.TopupApproved, acc.Topups[0].Status)
	require.NotNil(t, acc.Topups[0].ApprovedAt)
	assert.False(t, f.restrictions.IsRestricted(holderID))

	require.Len(t, f.notify.users[holderID], 2) // access granted + approval
	assert.Contains(t, f.notify.users[holderID][1], "5000")
}

func TestStage_BelowMinimum(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	_, err := f.svc.Stage(context.Background(), holderID, minAmount-1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidAmount))
}

func TestStage_LastStageWins(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	ctx := context.Background()

	_, err := f.svc.Stage(ctx, holderID, 2000)
	require.NoError(t, err)
	stage, err := f.svc.Stage(ctx, holderID, 8000)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), stage.Amount)
}

func TestStage_Gates(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthorized", func(t *testing.T) {
		f := newFixture(t, &models.Account{ID: holderID})
		_, err := f.svc.Stage(ctx, "999999", 5000)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthorized))
	})

	t.Run("maintenance", func(t *testing.T) {
		f := newFixture(t, &models.Account{ID: holderID})
		require.NoError(t, f.switchboard.SetFlag(ctx, maintenance.FeatureTopups, false))
		_, err := f.svc.Stage(ctx, holderID, 5000)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMaintenanceDisabled))
	})

	t.Run("restricted", func(t *testing.T) {
		f := newFixture(t, &models.Account{ID: holderID})
		f.restrictions.Restrict(holderID)
		_, err := f.svc.Stage(ctx, holderID, 5000)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAwaitingApproval))
	})

	t.Run("pending conflict", func(t *testing.T) {
		f := newFixture(t, &models.Account{
			ID:     holderID,
			Topups: []models.Topup{models.NewPendingTopup(3000)},
		})
		_, err := f.svc.Stage(ctx, holderID, 5000)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePendingTopupConflict))
	})
}

func TestSubmitProof_NoActiveStage(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	_, err := f.svc.SubmitProof(context.Background(), holderID, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNoActiveStage))
}

func TestSubmitProof_ConcurrentSubmissionsAppendOnce(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	ctx := context.Background()

	_, err := f.svc.Stage(ctx, holderID, 5000)
	require.NoError(t, err)

	// A photo event can arrive twice in parallel (two devices, a
	// transport retry). Only one submission may win.
	const submitters = 2
	var wg sync.WaitGroup
	errs := make([]error, submitters)
	wg.Add(submitters)
	for i := 0; i < submitters; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SubmitProof(ctx, holderID, 100+i)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// The loser sees the winner's restriction or its cleared
		// stage, depending on where the interleave lands.
		rejected := apperrors.HasCode(err, apperrors.ErrCodeAwaitingApproval) ||
			apperrors.HasCode(err, apperrors.ErrCodeNoActiveStage)
		assert.True(t, rejected, "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	acc, err := f.ledger.Get(ctx, holderID)
	require.NoError(t, err)
	assert.Len(t, acc.PendingTopups(), 1)
	assert.True(t, f.restrictions.IsRestricted(holderID))
}

func TestSubmitProof_PendingAlreadyRecorded(t *testing.T) {
	// The state a lost race leaves behind: a pending record exists but
	// this submitter still holds a stage and no restriction flag.
	f := newFixture(t, &models.Account{
		ID:     holderID,
		Topups: []models.Topup{models.NewPendingTopup(5000)},
	})
	f.stages.Put(holderID, 5000)

	_, err := f.svc.SubmitProof(context.Background(), holderID, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAwaitingApproval))

	acc, err := f.ledger.Get(context.Background(), holderID)
	require.NoError(t, err)
	assert.Len(t, acc.PendingTopups(), 1)
}

func TestSubmitProof_RedundantWhileRestricted(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	ctx := context.Background()

	_, err := f.svc.Stage(ctx, holderID, 5000)
	require.NoError(t, err)
	_, err = f.svc.SubmitProof(ctx, holderID, 1)
	require.NoError(t, err)

	_, err = f.svc.SubmitProof(ctx, holderID, 2)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAwaitingApproval))
}

func TestDeduct_KeepsRestriction(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID, Balance: 10000})
	ctx := context.Background()
	f.restrictions.Restrict(holderID)

	acc, err := f.svc.Deduct(ctx, holderID, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), acc.Balance)
	assert.True(t, f.restrictions.IsRestricted(holderID))

	_, err = f.svc.Deduct(ctx, holderID, 60000)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientFunds))
}

func TestApprove_MissingAccount(t *testing.T) {
	f := newFixture(t, &models.Account{ID: holderID})
	_, err := f.svc.Approve(context.Background(), "31337", 5000)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestRehydrateRestrictions(t *testing.T) {
	ctx := context.Background()
	accounts := accountmemory.NewAccountRepository()
	require.NoError(t, accounts.Create(ctx, &models.Account{
		ID:     "111222",
		Topups: []models.Topup{models.NewPendingTopup(5000)},
	}))
	require.NoError(t, accounts.Create(ctx, &models.Account{ID: "333444"}))

	restrictions := state.NewRestrictionStore()
	auth := authservice.NewAuthService(authmemory.NewAuthorizedSetRepository(), restrictions, newCaptureNotifier(), ownerID)
	switchboard := maintenance.NewSwitchboardService(maintmemory.NewFlagRepository())
	ledger := ledgerservice.NewLedgerService(accounts, keymutex.New())
	svc := NewTopupService(auth, switchboard, state.NewStageStore(), restrictions, ledger, accounts, notifier.Nop{}, minAmount)

	require.NoError(t, svc.RehydrateRestrictions(ctx))
	assert.True(t, restrictions.IsRestricted("111222"))
	assert.False(t, restrictions.IsRestricted("333444"))
}
