/*
errors.go - Centralized error taxonomy for the ledger core

PURPOSE:
  All error kinds the workflow engines can surface, in one place. The HTTP
  layer maps each kind to a status code; nothing in the core retries or
  swallows errors - every failure aborts the enclosing atomic transaction.

ERROR CATEGORIES:
  1. Not-found errors     - referenced entity absent
  2. Lifecycle errors     - operation invalid for current state
  3. Precondition errors  - caller-supplied value violates a rule
  4. Store errors         - underlying atomic write failed (fully rolled
                            back, zero observable side effects)

USAGE:
  Check with errors.Is for sentinels, errors.As for structured types:

    if errors.Is(err, ledger.ErrInsufficientBalance) { ... }

    var ib *ledger.InsufficientBalanceError
    if errors.As(err, &ib) { ... ib.Shortfall ... }

SEE ALSO:
  - mutator.go, store.go: producers of ErrStore
  - tasks/, rewards/, accounts/: producers of the rest
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTaskNotFound is returned when a task is missing or inactive.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskLogNotFound is returned when a task log doesn't exist.
	ErrTaskLogNotFound = errors.New("task log not found")

	// ErrRewardNotFound is returned when a referenced reward doesn't exist.
	ErrRewardNotFound = errors.New("reward not found")

	// ErrRedemptionNotFound is returned when a redemption doesn't exist.
	ErrRedemptionNotFound = errors.New("redemption not found")

	// ErrInvalidState is returned when an operation is not valid for the
	// record's current lifecycle state (e.g. approving a rejected log).
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrDuplicateSubmission is returned when a daily task has already been
	// submitted during the current calendar day.
	ErrDuplicateSubmission = errors.New("daily task already submitted today")

	// ErrOutOfStock is returned when a reward's remaining stock is zero.
	ErrOutOfStock = errors.New("reward out of stock")

	// ErrInsufficientBalance is returned when a redemption exceeds the
	// account's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotPartner is returned when an approval is attempted by anyone
	// other than the submitter's bound partner.
	ErrNotPartner = errors.New("approver is not the submitter's partner")

	// ErrSelfPartner is returned when an account tries to bind itself.
	ErrSelfPartner = errors.New("cannot bind an account to itself")

	// ErrDuplicateName is returned when registering an account name that
	// already exists.
	ErrDuplicateName = errors.New("account name already registered")

	// ErrStore is returned when the underlying atomic write cannot
	// complete. The operation is fully rolled back; callers must not
	// assume partial success.
	ErrStore = errors.New("store operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	AccountID AccountID
	Available Points
	Requested Points
	Shortfall Points
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, shortfall %s",
		e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// InvalidStateError reports the state that blocked a transition.
type InvalidStateError struct {
	Entity  string // "task log", "redemption"
	Current string
	Wanted  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is %s, expected %s", e.Entity, e.Current, e.Wanted)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// UnknownStatusError is raised at the store boundary when a persisted or
// supplied status string is outside the closed enumeration.
type UnknownStatusError struct {
	Field string
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

// StoreError wraps a low-level persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return ErrStore
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrTaskLogNotFound) ||
		errors.Is(err, ErrRewardNotFound) ||
		errors.Is(err, ErrRedemptionNotFound)
}

// IsClientError returns true if the error is due to the caller's input or
// timing rather than a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrSelfPartner) ||
		errors.Is(err, ErrDuplicateName)
}
