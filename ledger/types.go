/*
Package ledger provides the core data model and balance-mutation protocol
for the shared incentive ledger.

PURPOSE:
  This package contains the types shared by every workflow engine: accounts,
  tasks, task logs, rewards, redemptions, and the immutable transaction
  history. It also owns the Balance Mutator (mutator.go), the single code
  path through which an account balance may change.

KEY CONCEPTS IN THIS FILE (types.go):
  - Points: A decimal point amount (never floating point)
  - Account: A participant with a balance and an optional partner link
  - Transaction: An immutable audit entry recording a balance change
  - Closed status enumerations with parse-time validation

DESIGN PRINCIPLES:
  1. Immutability: Transactions are append-only, never edited
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing account/task IDs
  4. Closed States: Status strings are validated into enums at the store
     boundary; unknown values are rejected, not carried along

INVARIANT:
  For every account, balance == sum of its transaction amounts. The Balance
  Mutator preserves this by pairing every balance write with a transaction
  append inside one atomic store transaction.

SEE ALSO:
  - mutator.go: The ApplyDelta choke point
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POINTS - Decimal point amount
// =============================================================================

// Points is a signed point amount. The ledger has exactly one unit, so unlike
// a multi-currency system no unit tag is carried.
type Points struct {
	Value decimal.Decimal
}

func NewPoints(value float64) Points {
	return Points{Value: decimal.NewFromFloat(value)}
}

func NewPointsFromInt(value int) Points {
	return Points{Value: decimal.NewFromInt(int64(value))}
}

// MustParsePoints parses a decimal string, returning zero on malformed input.
func MustParsePoints(s string) Points {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Points{Value: decimal.Zero}
	}
	return Points{Value: d}
}

func (p Points) Add(q Points) Points      { return Points{Value: p.Value.Add(q.Value)} }
func (p Points) Sub(q Points) Points      { return Points{Value: p.Value.Sub(q.Value)} }
func (p Points) Neg() Points              { return Points{Value: p.Value.Neg()} }
func (p Points) IsNegative() bool         { return p.Value.IsNegative() }
func (p Points) IsPositive() bool         { return p.Value.IsPositive() }
func (p Points) IsZero() bool             { return p.Value.IsZero() }
func (p Points) LessThan(q Points) bool   { return p.Value.LessThan(q.Value) }
func (p Points) Equal(q Points) bool      { return p.Value.Equal(q.Value) }
func (p Points) String() string           { return p.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TaskID string
type TaskLogID string
type RewardID string
type RedemptionID string
type TransactionID string

// =============================================================================
// ACCOUNT - A participant
// =============================================================================

// Account is one of the two linked participants. Balance is mutated
// exclusively by ApplyDelta; Partner is maintained exclusively by the
// pairing manager. Accounts are never deleted in normal operation.
type Account struct {
	ID        AccountID
	Name      string // unique
	Balance   Points
	Partner   *AccountID // symmetric: if A.Partner = B then B.Partner = A
	CreatedAt time.Time
}

// =============================================================================
// TASK - A unit of work with a point reward
// =============================================================================

type TaskRecurrence string

const (
	TaskOneTime TaskRecurrence = "one_time"
	TaskDaily   TaskRecurrence = "daily"
)

// ParseTaskRecurrence validates a recurrence read from storage or input.
func ParseTaskRecurrence(s string) (TaskRecurrence, error) {
	switch TaskRecurrence(s) {
	case TaskOneTime, TaskDaily:
		return TaskRecurrence(s), nil
	}
	return "", &UnknownStatusError{Field: "task recurrence", Value: s}
}

// Task is immutable once created; it is logically removed via Active.
// Penalty is recorded but not yet consumed by any transition.
type Task struct {
	ID            TaskID
	Title         string
	Description   string
	Reward        Points // > 0
	Recurrence    TaskRecurrence
	Penalty       Points
	NeedsApproval bool
	Active        bool
	CreatedAt     time.Time
}

// =============================================================================
// TASK LOG - One submission attempt and its outcome
// =============================================================================

type TaskLogStatus string

const (
	LogPendingApproval TaskLogStatus = "pending_approval"
	LogCompleted       TaskLogStatus = "completed"
	LogRejected        TaskLogStatus = "rejected"
)

func ParseTaskLogStatus(s string) (TaskLogStatus, error) {
	switch TaskLogStatus(s) {
	case LogPendingApproval, LogCompleted, LogRejected:
		return TaskLogStatus(s), nil
	}
	return "", &UnknownStatusError{Field: "task log status", Value: s}
}

// TaskLog records one attempt. The status field doubles as the workflow
// state; transitions only move forward per the tasks engine.
type TaskLog struct {
	ID        TaskLogID
	AccountID AccountID
	TaskID    TaskID
	Status    TaskLogStatus
	CreatedAt time.Time
}

// =============================================================================
// REWARD - A redeemable catalog item
// =============================================================================

// StockUnlimited marks a reward with no stock tracking.
const StockUnlimited = -1

type Reward struct {
	ID          RewardID
	Title       string
	Description string
	Cost        Points // > 0
	Stock       int    // -1 = unlimited, >= 0 = remaining count
	Active      bool
	CreatedAt   time.Time
}

// =============================================================================
// REDEMPTION - A reward claim pending fulfillment
// =============================================================================

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionFulfilled RedemptionStatus = "fulfilled"
)

func ParseRedemptionStatus(s string) (RedemptionStatus, error) {
	switch RedemptionStatus(s) {
	case RedemptionPending, RedemptionFulfilled:
		return RedemptionStatus(s), nil
	}
	return "", &UnknownStatusError{Field: "redemption status", Value: s}
}

// Redemption snapshots the reward cost at claim time, so later catalog
// price changes do not rewrite history.
type Redemption struct {
	ID           RedemptionID
	AccountID    AccountID
	RewardID     RewardID
	CostSnapshot Points
	Status       RedemptionStatus
	CreatedAt    time.Time
}

// =============================================================================
// TRANSACTION - Immutable audit entry
// =============================================================================

type TransactionKind string

const (
	TxTaskReward TransactionKind = "task_reward" // task completion credit
	TxRedemption TransactionKind = "redemption"  // reward redemption debit
	TxPenalty    TransactionKind = "penalty"     // reserved, no transition emits it yet
	TxManual     TransactionKind = "manual"      // operator adjustment
)

func ParseTransactionKind(s string) (TransactionKind, error) {
	switch TransactionKind(s) {
	case TxTaskReward, TxRedemption, TxPenalty, TxManual:
		return TransactionKind(s), nil
	}
	return "", &UnknownStatusError{Field: "transaction kind", Value: s}
}

// Transaction is one signed ledger entry. Append-only: the sum of an
// account's transaction amounts always equals its current balance.
type Transaction struct {
	ID          TransactionID
	AccountID   AccountID
	Amount      Points
	Kind        TransactionKind
	Description string
	CreatedAt   time.Time
}
