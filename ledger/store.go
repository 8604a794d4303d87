/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the interface between the workflow engines and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Reads and single-row writes for every entity
  TxStore: Store plus WithTx for atomic multi-row mutations

TRANSACTION HISTORY CONTRACT:
  The transactions table is APPEND-ONLY:
  - AppendTransaction(): the only write
  - NO update or delete methods exist
  Balance corrections happen via new transactions, never edits.

ATOMIC MUTATIONS:
  Every multi-field mutation (submit with immediate payout, approve, redeem,
  partner bind) runs inside exactly one WithTx scope. Implementations must
  guarantee that two WithTx executions touching the same account or reward
  cannot interleave - the SQLite store takes an immediate write lock, the
  memory store serializes under one mutex. Without this, stock can go
  negative and balances drift from the transaction-sum invariant.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - mutator.go: ApplyDelta, which must run inside WithTx
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Entity reads and single-row writes
// =============================================================================

// Store is the persistence surface the workflow engines program against.
// Lookup methods return the package's not-found sentinels; status strings
// are validated into closed enums before they escape an implementation.
type Store interface {
	// Accounts. Balance writes happen only via ApplyDelta; partner writes
	// happen only via the pairing manager.
	CreateAccount(ctx context.Context, a Account) error
	Account(ctx context.Context, id AccountID) (Account, error)
	AccountByName(ctx context.Context, name string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	SetBalance(ctx context.Context, id AccountID, balance Points) error
	SetPartner(ctx context.Context, id AccountID, partner *AccountID) error

	// Tasks. Immutable once created; Active is the only mutable field.
	CreateTask(ctx context.Context, t Task) error
	Task(ctx context.Context, id TaskID) (Task, error)
	ListActiveTasks(ctx context.Context) ([]Task, error)
	DeactivateTask(ctx context.Context, id TaskID) error

	// Task logs. One row per attempt, status transitions forward only.
	CreateTaskLog(ctx context.Context, l TaskLog) error
	TaskLog(ctx context.Context, id TaskLogID) (TaskLog, error)
	ListTaskLogs(ctx context.Context) ([]TaskLog, error)
	SetTaskLogStatus(ctx context.Context, id TaskLogID, status TaskLogStatus) error

	// HasTaskLogSince reports whether the account has any log for the task
	// created at or after the cutoff. Used for the daily dedup window.
	HasTaskLogSince(ctx context.Context, account AccountID, task TaskID, cutoff time.Time) (bool, error)

	// Rewards.
	CreateReward(ctx context.Context, r Reward) error
	Reward(ctx context.Context, id RewardID) (Reward, error)
	ListActiveRewards(ctx context.Context) ([]Reward, error)
	SetRewardStock(ctx context.Context, id RewardID, stock int) error
	DeactivateReward(ctx context.Context, id RewardID) error

	// Redemptions.
	CreateRedemption(ctx context.Context, r Redemption) error
	Redemption(ctx context.Context, id RedemptionID) (Redemption, error)
	ListRedemptions(ctx context.Context) ([]Redemption, error)
	SetRedemptionStatus(ctx context.Context, id RedemptionID, status RedemptionStatus) error

	// Transactions (append-only ledger history).
	AppendTransaction(ctx context.Context, tx Transaction) error
	Transactions(ctx context.Context, account AccountID) ([]Transaction, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-row mutations
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn against a transactional view of the store. If fn
// returns an error the transaction is rolled back and no write inside it is
// observable; if fn returns nil all writes commit together. Two WithTx
// executions never interleave on the same rows.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
