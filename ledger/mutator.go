/*
mutator.go - The single path by which an account balance changes

PURPOSE:
  ApplyDelta pairs a balance write with a transaction-history append as one
  unit. Every credit and debit in the system - task payouts, redemption
  debits, manual adjustments - moves through this function and nothing else
  writes to Account.Balance.

CRITICAL INVARIANT:
  balance == sum(transaction amounts) for every account, after any sequence
  of operations. ApplyDelta preserves it because the two writes land in the
  same store transaction: the caller invokes it inside a TxStore.WithTx
  scope, so either both commit or neither does. No intermediate state is
  externally observable.

WHY A CHOKE POINT?
  - Auditability: every balance change has a matching signed entry
  - Debugging: "why is the balance X?" is answered by the history
  - Correctness: no code path can credit without recording, or record
    without crediting

SEE ALSO:
  - store.go: the WithTx contract this relies on
  - tasks/engine.go, rewards/engine.go: the only callers that move points
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ApplyDelta increments the account's balance by amount (which may be
// negative) and appends a matching Transaction. Must be called inside a
// TxStore.WithTx scope so both writes share one atomic transaction.
//
// ApplyDelta does not enforce a non-negative balance; affordability checks
// belong to the calling workflow (rewards.Engine.Redeem).
func ApplyDelta(ctx context.Context, s Store, accountID AccountID, amount Points, kind TransactionKind, description string, now time.Time) (Transaction, error) {
	account, err := s.Account(ctx, accountID)
	if err != nil {
		return Transaction{}, err
	}

	if err := s.SetBalance(ctx, accountID, account.Balance.Add(amount)); err != nil {
		return Transaction{}, &StoreError{Op: "set balance", Err: err}
	}

	tx := Transaction{
		ID:          TransactionID(uuid.NewString()),
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   now,
	}
	if err := s.AppendTransaction(ctx, tx); err != nil {
		return Transaction{}, &StoreError{Op: "append transaction", Err: err}
	}
	return tx, nil
}
