/*
Package accounts maintains the two participant accounts and their
bidirectional partner link.

PURPOSE:
  Registration, lookup, and the pairing protocol. The manager only touches
  account records - balances belong to ledger.ApplyDelta and are never
  written here.

PAIRING INVARIANT:
  The partner link is symmetric: if A.Partner = B then B.Partner = A.
  Rebinding unlinks the previous partner of either side inside the same
  transaction, so an asymmetric link can never be observed.

BOOTSTRAP:
  SeedPair creates the two named accounts if absent and binds them. Safe to
  run on every start.
*/
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pairledger/ledger"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager maintains accounts and the partner link.
type Manager struct {
	store ledger.TxStore
	now   func() time.Time
}

func NewManager(store ledger.TxStore) *Manager {
	return &Manager{store: store, now: time.Now}
}

// =============================================================================
// REGISTRATION & LOOKUP
// =============================================================================

// Register creates an account with a zero balance. Names are unique;
// duplicates fail with ErrDuplicateName.
func (m *Manager) Register(ctx context.Context, name string) (ledger.Account, error) {
	var account ledger.Account
	err := m.store.WithTx(ctx, func(s ledger.Store) error {
		if _, err := s.AccountByName(ctx, name); err == nil {
			return ledger.ErrDuplicateName
		} else if !errors.Is(err, ledger.ErrAccountNotFound) {
			return err
		}
		account = ledger.Account{
			ID:        ledger.AccountID(uuid.NewString()),
			Name:      name,
			Balance:   ledger.NewPointsFromInt(0),
			CreatedAt: m.now(),
		}
		if err := s.CreateAccount(ctx, account); err != nil {
			return &ledger.StoreError{Op: "create account", Err: err}
		}
		return nil
	})
	if err != nil {
		return ledger.Account{}, err
	}
	return account, nil
}

// Get returns one account.
func (m *Manager) Get(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	return m.store.Account(ctx, id)
}

// GetByName returns the account with the given unique name.
func (m *Manager) GetByName(ctx context.Context, name string) (ledger.Account, error) {
	return m.store.AccountByName(ctx, name)
}

// List returns every account, ordered by name.
func (m *Manager) List(ctx context.Context) ([]ledger.Account, error) {
	return m.store.ListAccounts(ctx)
}

// Transactions returns the account's full history.
func (m *Manager) Transactions(ctx context.Context, id ledger.AccountID) ([]ledger.Transaction, error) {
	if _, err := m.store.Account(ctx, id); err != nil {
		return nil, err
	}
	return m.store.Transactions(ctx, id)
}

// =============================================================================
// PAIRING
// =============================================================================

// BindPartner links two accounts symmetrically. Self-binding fails with
// ErrSelfPartner; missing accounts fail with ErrAccountNotFound. If either
// side was previously bound to someone else, that previous partner is
// unlinked in the same transaction.
func (m *Manager) BindPartner(ctx context.Context, accountID, partnerID ledger.AccountID) error {
	if accountID == partnerID {
		return ledger.ErrSelfPartner
	}
	return m.store.WithTx(ctx, func(s ledger.Store) error {
		account, err := s.Account(ctx, accountID)
		if err != nil {
			return err
		}
		partner, err := s.Account(ctx, partnerID)
		if err != nil {
			return err
		}

		// Unlink displaced partners so the symmetric invariant holds.
		if prev := account.Partner; prev != nil && *prev != partnerID {
			if err := s.SetPartner(ctx, *prev, nil); err != nil {
				return &ledger.StoreError{Op: "unlink previous partner", Err: err}
			}
		}
		if prev := partner.Partner; prev != nil && *prev != accountID {
			if err := s.SetPartner(ctx, *prev, nil); err != nil {
				return &ledger.StoreError{Op: "unlink previous partner", Err: err}
			}
		}

		if err := s.SetPartner(ctx, accountID, &partnerID); err != nil {
			return &ledger.StoreError{Op: "set partner", Err: err}
		}
		if err := s.SetPartner(ctx, partnerID, &accountID); err != nil {
			return &ledger.StoreError{Op: "set partner", Err: err}
		}
		return nil
	})
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// SeedPair ensures the two named accounts exist and are bound to each
// other. Existing accounts and an existing link are left untouched, so the
// call is safe on every process start.
func (m *Manager) SeedPair(ctx context.Context, first, second string) error {
	if first == second {
		return ledger.ErrSelfPartner
	}
	var firstID, secondID ledger.AccountID
	err := m.store.WithTx(ctx, func(s ledger.Store) error {
		for _, name := range []string{first, second} {
			a, err := s.AccountByName(ctx, name)
			if errors.Is(err, ledger.ErrAccountNotFound) {
				a = ledger.Account{
					ID:        ledger.AccountID(uuid.NewString()),
					Name:      name,
					Balance:   ledger.NewPointsFromInt(0),
					CreatedAt: m.now(),
				}
				if err := s.CreateAccount(ctx, a); err != nil {
					return &ledger.StoreError{Op: "seed account", Err: err}
				}
			} else if err != nil {
				return err
			}
			if name == first {
				firstID = a.ID
			} else {
				secondID = a.ID
			}
		}

		a, err := s.Account(ctx, firstID)
		if err != nil {
			return err
		}
		if a.Partner != nil {
			return nil // already paired
		}
		if err := s.SetPartner(ctx, firstID, &secondID); err != nil {
			return &ledger.StoreError{Op: "seed partner link", Err: err}
		}
		if err := s.SetPartner(ctx, secondID, &firstID); err != nil {
			return &ledger.StoreError{Op: "seed partner link", Err: err}
		}
		return nil
	})
	return err
}
