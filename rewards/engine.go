/*
Package rewards implements the redemption workflow engine.

PURPOSE:
  Validates affordability and stock, then commits four effects as one
  atomic unit: balance debit, transaction append, stock decrement, and
  redemption insert. Either all four land or none do - a simulated failure
  between the debit and the insert leaves the ledger untouched.

STOCK MODEL:
  Stock -1 means unlimited (never decremented). Stock 0 means sold out.
  Stock > 0 is the remaining count, decremented per redemption inside the
  same transaction that debits the balance, so stock can never go negative
  even under concurrent redemptions.

COST SNAPSHOT:
  Each redemption records the reward's cost at claim time. Later catalog
  price changes do not rewrite redemption history or the debit amount.

FULFILLMENT:
  pending -> fulfilled, no balance effect. Fulfilling twice is a no-op.

SEE ALSO:
  - ledger/mutator.go: the debit choke point
  - tasks/: the submission workflow, same transactional shape
*/
package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pairledger/ledger"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine drives reward redemption and fulfillment. Stateless between
// calls; every mutation runs inside one store transaction.
type Engine struct {
	store ledger.TxStore
	now   func() time.Time
}

func NewEngine(store ledger.TxStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// =============================================================================
// REDEEM
// =============================================================================

// Redeem claims a reward for the account. Fails with ErrRewardNotFound,
// ErrOutOfStock (stock == 0), or an InsufficientBalanceError. On success
// the debit, its transaction, the stock decrement, and the pending
// redemption commit together.
func (e *Engine) Redeem(ctx context.Context, accountID ledger.AccountID, rewardID ledger.RewardID) (ledger.Redemption, error) {
	var redemption ledger.Redemption
	err := e.store.WithTx(ctx, func(s ledger.Store) error {
		reward, err := s.Reward(ctx, rewardID)
		if err != nil {
			return err
		}
		if reward.Stock == 0 {
			return ledger.ErrOutOfStock
		}

		account, err := s.Account(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(reward.Cost) {
			return &ledger.InsufficientBalanceError{
				AccountID: accountID,
				Available: account.Balance,
				Requested: reward.Cost,
				Shortfall: reward.Cost.Sub(account.Balance),
			}
		}

		now := e.now()
		desc := fmt.Sprintf("Redeemed: %s", reward.Title)
		if _, err := ledger.ApplyDelta(ctx, s, accountID, reward.Cost.Neg(), ledger.TxRedemption, desc, now); err != nil {
			return err
		}

		if reward.Stock > 0 {
			if err := s.SetRewardStock(ctx, rewardID, reward.Stock-1); err != nil {
				return &ledger.StoreError{Op: "decrement stock", Err: err}
			}
		}

		redemption = ledger.Redemption{
			ID:           ledger.RedemptionID(uuid.NewString()),
			AccountID:    accountID,
			RewardID:     rewardID,
			CostSnapshot: reward.Cost,
			Status:       ledger.RedemptionPending,
			CreatedAt:    now,
		}
		if err := s.CreateRedemption(ctx, redemption); err != nil {
			return &ledger.StoreError{Op: "create redemption", Err: err}
		}
		return nil
	})
	if err != nil {
		return ledger.Redemption{}, err
	}
	return redemption, nil
}

// =============================================================================
// FULFILL
// =============================================================================

// Fulfill marks a pending redemption as handed over. No balance effect;
// fulfilling an already-fulfilled redemption is a no-op.
func (e *Engine) Fulfill(ctx context.Context, redemptionID ledger.RedemptionID) error {
	return e.store.WithTx(ctx, func(s ledger.Store) error {
		redemption, err := s.Redemption(ctx, redemptionID)
		if err != nil {
			return err
		}
		if redemption.Status == ledger.RedemptionFulfilled {
			return nil // idempotent
		}
		if err := s.SetRedemptionStatus(ctx, redemptionID, ledger.RedemptionFulfilled); err != nil {
			return &ledger.StoreError{Op: "set redemption status", Err: err}
		}
		return nil
	})
}

// =============================================================================
// CATALOG
// =============================================================================

// Create adds a reward to the catalog. Stock -1 means unlimited.
func (e *Engine) Create(ctx context.Context, title, description string, cost ledger.Points, stock int) (ledger.Reward, error) {
	if !cost.IsPositive() {
		return ledger.Reward{}, fmt.Errorf("reward cost must be positive, got %s", cost)
	}
	if stock < ledger.StockUnlimited {
		return ledger.Reward{}, fmt.Errorf("reward stock must be -1 or >= 0, got %d", stock)
	}
	reward := ledger.Reward{
		ID:          ledger.RewardID(uuid.NewString()),
		Title:       title,
		Description: description,
		Cost:        cost,
		Stock:       stock,
		Active:      true,
		CreatedAt:   e.now(),
	}
	if err := e.store.CreateReward(ctx, reward); err != nil {
		return ledger.Reward{}, &ledger.StoreError{Op: "create reward", Err: err}
	}
	return reward, nil
}

// List returns the active catalog.
func (e *Engine) List(ctx context.Context) ([]ledger.Reward, error) {
	return e.store.ListActiveRewards(ctx)
}

// Redemptions returns all claims, newest first.
func (e *Engine) Redemptions(ctx context.Context) ([]ledger.Redemption, error) {
	return e.store.ListRedemptions(ctx)
}

// Deactivate logically removes a reward from the catalog.
func (e *Engine) Deactivate(ctx context.Context, id ledger.RewardID) error {
	return e.store.DeactivateReward(ctx, id)
}
