// Package store provides an in-memory ledger.TxStore implementation,
// used by tests and local development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/pairledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds all entities in maps behind a single mutex. WithTx snapshots
// the maps and restores them on error, which makes rollback exact and keeps
// the no-interleaving guarantee trivially (one mutex, one writer).
type Memory struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	accounts     map[ledger.AccountID]ledger.Account
	tasks        map[ledger.TaskID]ledger.Task
	taskLogs     map[ledger.TaskLogID]ledger.TaskLog
	rewards      map[ledger.RewardID]ledger.Reward
	redemptions  map[ledger.RedemptionID]ledger.Redemption
	transactions map[ledger.AccountID][]ledger.Transaction
}

func NewMemory() *Memory {
	return &Memory{data: newMemoryData()}
}

func newMemoryData() *memoryData {
	return &memoryData{
		accounts:     make(map[ledger.AccountID]ledger.Account),
		tasks:        make(map[ledger.TaskID]ledger.Task),
		taskLogs:     make(map[ledger.TaskLogID]ledger.TaskLog),
		rewards:      make(map[ledger.RewardID]ledger.Reward),
		redemptions:  make(map[ledger.RedemptionID]ledger.Redemption),
		transactions: make(map[ledger.AccountID][]ledger.Transaction),
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	for k, v := range d.taskLogs {
		c.taskLogs[k] = v
	}
	for k, v := range d.rewards {
		c.rewards[k] = v
	}
	for k, v := range d.redemptions {
		c.redemptions[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = append([]ledger.Transaction{}, v...)
	}
	return c
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore
// =============================================================================

// WithTx executes fn against the live data under the store mutex. On error
// the pre-transaction snapshot is restored, so no write inside fn survives.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&view{data: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// view exposes the data without locking; it only ever lives inside a
// WithTx scope where the mutex is already held.
type view struct {
	data *memoryData
}

var _ ledger.Store = (*view)(nil)
var _ ledger.TxStore = (*Memory)(nil)

// Every top-level Store method takes the mutex and delegates to the same
// unlocked implementation WithTx uses.
func (m *Memory) locked() (*view, func()) {
	m.mu.Lock()
	return &view{data: m.data}, m.mu.Unlock
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (v *view) CreateAccount(_ context.Context, a ledger.Account) error {
	v.data.accounts[a.ID] = a
	return nil
}

func (v *view) Account(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	a, ok := v.data.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (v *view) AccountByName(_ context.Context, name string) (ledger.Account, error) {
	for _, a := range v.data.accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (v *view) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(v.data.accounts))
	for _, a := range v.data.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *view) SetBalance(_ context.Context, id ledger.AccountID, balance ledger.Points) error {
	a, ok := v.data.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Balance = balance
	v.data.accounts[id] = a
	return nil
}

func (v *view) SetPartner(_ context.Context, id ledger.AccountID, partner *ledger.AccountID) error {
	a, ok := v.data.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Partner = partner
	v.data.accounts[id] = a
	return nil
}

// =============================================================================
// TASKS
// =============================================================================

func (v *view) CreateTask(_ context.Context, t ledger.Task) error {
	v.data.tasks[t.ID] = t
	return nil
}

func (v *view) Task(_ context.Context, id ledger.TaskID) (ledger.Task, error) {
	t, ok := v.data.tasks[id]
	if !ok {
		return ledger.Task{}, ledger.ErrTaskNotFound
	}
	return t, nil
}

func (v *view) ListActiveTasks(_ context.Context) ([]ledger.Task, error) {
	var out []ledger.Task
	for _, t := range v.data.tasks {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *view) DeactivateTask(_ context.Context, id ledger.TaskID) error {
	t, ok := v.data.tasks[id]
	if !ok {
		return ledger.ErrTaskNotFound
	}
	t.Active = false
	v.data.tasks[id] = t
	return nil
}

// =============================================================================
// TASK LOGS
// =============================================================================

func (v *view) CreateTaskLog(_ context.Context, l ledger.TaskLog) error {
	v.data.taskLogs[l.ID] = l
	return nil
}

func (v *view) TaskLog(_ context.Context, id ledger.TaskLogID) (ledger.TaskLog, error) {
	l, ok := v.data.taskLogs[id]
	if !ok {
		return ledger.TaskLog{}, ledger.ErrTaskLogNotFound
	}
	return l, nil
}

func (v *view) ListTaskLogs(_ context.Context) ([]ledger.TaskLog, error) {
	out := make([]ledger.TaskLog, 0, len(v.data.taskLogs))
	for _, l := range v.data.taskLogs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v *view) SetTaskLogStatus(_ context.Context, id ledger.TaskLogID, status ledger.TaskLogStatus) error {
	l, ok := v.data.taskLogs[id]
	if !ok {
		return ledger.ErrTaskLogNotFound
	}
	l.Status = status
	v.data.taskLogs[id] = l
	return nil
}

func (v *view) HasTaskLogSince(_ context.Context, account ledger.AccountID, task ledger.TaskID, cutoff time.Time) (bool, error) {
	for _, l := range v.data.taskLogs {
		if l.AccountID == account && l.TaskID == task && !l.CreatedAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// REWARDS
// =============================================================================

func (v *view) CreateReward(_ context.Context, r ledger.Reward) error {
	v.data.rewards[r.ID] = r
	return nil
}

func (v *view) Reward(_ context.Context, id ledger.RewardID) (ledger.Reward, error) {
	r, ok := v.data.rewards[id]
	if !ok {
		return ledger.Reward{}, ledger.ErrRewardNotFound
	}
	return r, nil
}

func (v *view) ListActiveRewards(_ context.Context) ([]ledger.Reward, error) {
	var out []ledger.Reward
	for _, r := range v.data.rewards {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *view) SetRewardStock(_ context.Context, id ledger.RewardID, stock int) error {
	r, ok := v.data.rewards[id]
	if !ok {
		return ledger.ErrRewardNotFound
	}
	r.Stock = stock
	v.data.rewards[id] = r
	return nil
}

func (v *view) DeactivateReward(_ context.Context, id ledger.RewardID) error {
	r, ok := v.data.rewards[id]
	if !ok {
		return ledger.ErrRewardNotFound
	}
	r.Active = false
	v.data.rewards[id] = r
	return nil
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

func (v *view) CreateRedemption(_ context.Context, r ledger.Redemption) error {
	v.data.redemptions[r.ID] = r
	return nil
}

func (v *view) Redemption(_ context.Context, id ledger.RedemptionID) (ledger.Redemption, error) {
	r, ok := v.data.redemptions[id]
	if !ok {
		return ledger.Redemption{}, ledger.ErrRedemptionNotFound
	}
	return r, nil
}

func (v *view) ListRedemptions(_ context.Context) ([]ledger.Redemption, error) {
	out := make([]ledger.Redemption, 0, len(v.data.redemptions))
	for _, r := range v.data.redemptions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v *view) SetRedemptionStatus(_ context.Context, id ledger.RedemptionID, status ledger.RedemptionStatus) error {
	r, ok := v.data.redemptions[id]
	if !ok {
		return ledger.ErrRedemptionNotFound
	}
	r.Status = status
	v.data.redemptions[id] = r
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (v *view) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	v.data.transactions[tx.AccountID] = append(v.data.transactions[tx.AccountID], tx)
	return nil
}

func (v *view) Transactions(_ context.Context, account ledger.AccountID) ([]ledger.Transaction, error) {
	txs := v.data.transactions[account]
	out := make([]ledger.Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

// =============================================================================
// LOCKED DELEGATION - Top-level Store methods
// =============================================================================

func (m *Memory) CreateAccount(ctx context.Context, a ledger.Account) error {
	v, unlock := m.locked()
	defer unlock()
	return v.CreateAccount(ctx, a)
}

func (m *Memory) Account(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.Account(ctx, id)
}

func (m *Memory) AccountByName(ctx context.Context, name string) (ledger.Account, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.AccountByName(ctx, name)
}

func (m *Memory) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListAccounts(ctx)
}

func (m *Memory) SetBalance(ctx context.Context, id ledger.AccountID, balance ledger.Points) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SetBalance(ctx, id, balance)
}

func (m *Memory) SetPartner(ctx context.Context, id ledger.AccountID, partner *ledger.AccountID) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SetPartner(ctx, id, partner)
}

func (m *Memory) CreateTask(ctx context.Context, t ledger.Task) error {
	v, unlock := m.locked()
	defer unlock()
	return v.CreateTask(ctx, t)
}

func (m *Memory) Task(ctx context.Context, id ledger.TaskID) (ledger.Task, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.Task(ctx, id)
}

func (m *Memory) ListActiveTasks(ctx context.Context) ([]ledger.Task, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListActiveTasks(ctx)
}

func (m *Memory) DeactivateTask(ctx context.Context, id ledger.TaskID) error {
	v, unlock := m.locked()
	defer unlock()
	return v.DeactivateTask(ctx, id)
}

func (m *Memory) CreateTaskLog(ctx context.Context, l ledger.TaskLog) error {
	v, unlock := m.locked()
	defer unlock()
	return v.CreateTaskLog(ctx, l)
}

func (m *Memory) TaskLog(ctx context.Context, id ledger.TaskLogID) (ledger.TaskLog, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.TaskLog(ctx, id)
}

func (m *Memory) ListTaskLogs(ctx context.Context) ([]ledger.TaskLog, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListTaskLogs(ctx)
}

func (m *Memory) SetTaskLogStatus(ctx context.Context, id ledger.TaskLogID, status ledger.TaskLogStatus) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SetTaskLogStatus(ctx, id, status)
}

func (m *Memory) HasTaskLogSince(ctx context.Context, account ledger.AccountID, task ledger.TaskID, cutoff time.Time) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.HasTaskLogSince(ctx, account, task, cutoff)
}

func (m *Memory) CreateReward(ctx context.Context, r ledger.Reward) error {
	v, unlock := m.locked()
	defer unlock()
	return v.CreateReward(ctx, r)
}

func (m *Memory) Reward(ctx context.Context, id ledger.RewardID) (ledger.Reward, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.Reward(ctx, id)
}

func (m *Memory) ListActiveRewards(ctx context.Context) ([]ledger.Reward, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListActiveRewards(ctx)
}

func (m *Memory) SetRewardStock(ctx context.Context, id ledger.RewardID, stock int) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SetRewardStock(ctx, id, stock)
}

func (m *Memory) DeactivateReward(ctx context.Context, id ledger.RewardID) error {
	v, unlock := m.locked()
	defer unlock()
	return v.DeactivateReward(ctx, id)
}

func (m *Memory) CreateRedemption(ctx context.Context, r ledger.Redemption) error {
	v, unlock := m.locked()
	defer unlock()
	return v.CreateRedemption(ctx, r)
}

func (m *Memory) Redemption(ctx context.Context, id ledger.RedemptionID) (ledger.Redemption, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.Redemption(ctx, id)
}

func (m *Memory) ListRedemptions(ctx context.Context) ([]ledger.Redemption, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListRedemptions(ctx)
}

func (m *Memory) SetRedemptionStatus(ctx context.Context, id ledger.RedemptionID, status ledger.RedemptionStatus) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SetRedemptionStatus(ctx, id, status)
}

func (m *Memory) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	v, unlock := m.locked()
	defer unlock()
	return v.AppendTransaction(ctx, tx)
}

func (m *Memory) Transactions(ctx context.Context, account ledger.AccountID) ([]ledger.Transaction, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.Transactions(ctx, account)
}
