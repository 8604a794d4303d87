package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pairledger/ledger"
	"github.com/warp/pairledger/ledger/store"
	"github.com/warp/pairledger/tasks"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store  *store.Memory
	engine *tasks.Engine
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemory(),
		now:   time.Date(2025, time.June, 2, 14, 30, 0, 0, time.UTC),
	}
	f.engine = tasks.NewEngine(f.store).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) seedAccount(t *testing.T, id, name string, partner *ledger.AccountID) {
	t.Helper()
	require.NoError(t, f.store.CreateAccount(context.Background(), ledger.Account{
		ID:        ledger.AccountID(id),
		Name:      name,
		Balance:   ledger.NewPointsFromInt(0),
		Partner:   partner,
		CreatedAt: f.now,
	}))
}

func (f *fixture) seedPair(t *testing.T) {
	t.Helper()
	boyPartner := ledger.AccountID("acc-girl")
	girlPartner := ledger.AccountID("acc-boy")
	f.seedAccount(t, "acc-boy", "boy", &boyPartner)
	f.seedAccount(t, "acc-girl", "girl", &girlPartner)
}

func (f *fixture) seedTask(t *testing.T, id string, reward int, recurrence ledger.TaskRecurrence, needsApproval, active bool) {
	t.Helper()
	require.NoError(t, f.store.CreateTask(context.Background(), ledger.Task{
		ID:            ledger.TaskID(id),
		Title:         "do the dishes",
		Reward:        ledger.NewPointsFromInt(reward),
		Recurrence:    recurrence,
		Penalty:       ledger.NewPointsFromInt(0),
		NeedsApproval: needsApproval,
		Active:        active,
		CreatedAt:     f.now,
	}))
}

func (f *fixture) balance(t *testing.T, id string) ledger.Points {
	t.Helper()
	a, err := f.store.Account(context.Background(), ledger.AccountID(id))
	require.NoError(t, err)
	return a.Balance
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_NoApproval_CreditsImmediately(t *testing.T) {
	// GIVEN: Account with balance 0 and a one_time task worth 5, no approval
	// WHEN: The account submits the task
	// THEN: Balance is 5, one completed log, one +5 task_reward transaction

	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, false, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.LogCompleted, log.Status)

	assert.True(t, f.balance(t, "acc-boy").Equal(ledger.NewPointsFromInt(5)))

	txs, err := f.store.Transactions(ctx, "acc-boy")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxTaskReward, txs[0].Kind)
	assert.True(t, txs[0].Amount.Equal(ledger.NewPointsFromInt(5)))
	assert.Contains(t, txs[0].Description, "do the dishes")

	logs, err := f.store.ListTaskLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestSubmit_NeedsApproval_PendingWithoutPayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, true, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.LogPendingApproval, log.Status)

	assert.True(t, f.balance(t, "acc-boy").IsZero(), "no payout before approval")
	txs, err := f.store.Transactions(ctx, "acc-boy")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSubmit_MissingOrInactiveTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-retired", 5, ledger.TaskOneTime, false, false)

	_, err := f.engine.Submit(ctx, "acc-boy", "task-missing")
	assert.ErrorIs(t, err, ledger.ErrTaskNotFound)

	_, err = f.engine.Submit(ctx, "acc-boy", "task-retired")
	assert.ErrorIs(t, err, ledger.ErrTaskNotFound, "inactive task behaves as missing")
}

func TestSubmit_EachAttemptCreatesNewLog(t *testing.T) {
	// One-time tasks have no dedup; two submissions produce two logs.
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, false, true)

	first, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)
	second, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	assert.True(t, f.balance(t, "acc-boy").Equal(ledger.NewPointsFromInt(10)))
}

// =============================================================================
// DAILY DEDUP
// =============================================================================

func TestSubmit_Daily_SecondSameDayRejected(t *testing.T) {
	// GIVEN: A daily task submitted at 14:30
	// WHEN: The same account submits again the same calendar day
	// THEN: DuplicateSubmission, exactly one log exists

	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-daily", 2, ledger.TaskDaily, false, true)

	_, err := f.engine.Submit(ctx, "acc-boy", "task-daily")
	require.NoError(t, err)

	f.now = f.now.Add(3 * time.Hour) // 17:30, same day
	_, err = f.engine.Submit(ctx, "acc-boy", "task-daily")
	assert.ErrorIs(t, err, ledger.ErrDuplicateSubmission)

	logs, err := f.store.ListTaskLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "rejected attempt must not leave a log")
	assert.True(t, f.balance(t, "acc-boy").Equal(ledger.NewPointsFromInt(2)))
}

func TestSubmit_Daily_CalendarDayNotRolling24h(t *testing.T) {
	// Submitting at 23:00 and again at 01:00 the next day is two calendar
	// days, so both succeed even though fewer than 24h passed.
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-daily", 2, ledger.TaskDaily, false, true)

	f.now = time.Date(2025, time.June, 2, 23, 0, 0, 0, time.UTC)
	_, err := f.engine.Submit(ctx, "acc-boy", "task-daily")
	require.NoError(t, err)

	f.now = time.Date(2025, time.June, 3, 1, 0, 0, 0, time.UTC)
	_, err = f.engine.Submit(ctx, "acc-boy", "task-daily")
	require.NoError(t, err)
}

func TestSubmit_Daily_IndependentPerAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-daily", 2, ledger.TaskDaily, false, true)

	_, err := f.engine.Submit(ctx, "acc-boy", "task-daily")
	require.NoError(t, err)
	_, err = f.engine.Submit(ctx, "acc-girl", "task-daily")
	require.NoError(t, err, "partner's submission is not a duplicate")
}

// =============================================================================
// APPROVE
// =============================================================================

func TestApprove_ByPartner_CreditsSubmitter(t *testing.T) {
	// GIVEN: A pending log submitted by boy
	// WHEN: girl (his partner) approves it
	// THEN: The log completes and boy - not girl - is credited

	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, true, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)

	require.NoError(t, f.engine.Approve(ctx, log.ID, "acc-girl"))

	got, err := f.store.TaskLog(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LogCompleted, got.Status)

	assert.True(t, f.balance(t, "acc-boy").Equal(ledger.NewPointsFromInt(5)))
	assert.True(t, f.balance(t, "acc-girl").IsZero())

	txs, err := f.store.Transactions(ctx, "acc-boy")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Contains(t, txs[0].Description, "girl", "description names the approver")
}

func TestApprove_BySubmitter_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, true, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)

	err = f.engine.Approve(ctx, log.ID, "acc-boy")
	assert.ErrorIs(t, err, ledger.ErrNotPartner, "self-approval is not allowed")
	assert.True(t, f.balance(t, "acc-boy").IsZero())
}

func TestApprove_ByStranger_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedAccount(t, "acc-stranger", "stranger", nil)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, true, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)

	err = f.engine.Approve(ctx, log.ID, "acc-stranger")
	assert.ErrorIs(t, err, ledger.ErrNotPartner)
}

func TestApprove_NotPending_InvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, false, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1") // auto-completed
	require.NoError(t, err)

	err = f.engine.Approve(ctx, log.ID, "acc-girl")
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	assert.True(t, f.balance(t, "acc-boy").Equal(ledger.NewPointsFromInt(5)), "no double payout")
}

func TestApprove_MissingLog(t *testing.T) {
	f := newFixture(t)
	f.seedPair(t)

	err := f.engine.Approve(context.Background(), "log-missing", "acc-girl")
	assert.ErrorIs(t, err, ledger.ErrTaskLogNotFound)
}

// =============================================================================
// REJECT
// =============================================================================

func TestReject_Pending_NoBalanceEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, true, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)

	require.NoError(t, f.engine.Reject(ctx, log.ID))

	got, err := f.store.TaskLog(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LogRejected, got.Status)
	assert.True(t, f.balance(t, "acc-boy").IsZero())
}

func TestReject_AlreadyRejected_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, true, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)
	require.NoError(t, f.engine.Reject(ctx, log.ID))

	assert.NoError(t, f.engine.Reject(ctx, log.ID), "re-rejecting is a no-op")
}

func TestReject_Completed_InvalidState(t *testing.T) {
	// A completed attempt has paid out; it can never also become rejected.
	f := newFixture(t)
	ctx := context.Background()
	f.seedPair(t)
	f.seedTask(t, "task-1", 5, ledger.TaskOneTime, false, true)

	log, err := f.engine.Submit(ctx, "acc-boy", "task-1")
	require.NoError(t, err)

	err = f.engine.Reject(ctx, log.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	got, err := f.store.TaskLog(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LogCompleted, got.Status)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCreate_RejectsNonPositiveReward(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(context.Background(), "free lunch", "", ledger.NewPointsFromInt(0), ledger.TaskOneTime, ledger.NewPointsFromInt(0), false)
	assert.Error(t, err)
}

func TestList_OnlyActiveTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTask(t, "task-live", 5, ledger.TaskOneTime, false, true)
	f.seedTask(t, "task-retired", 5, ledger.TaskOneTime, false, false)

	list, err := f.engine.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ledger.TaskID("task-live"), list[0].ID)
}
