package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pairledger/accounts"
	"github.com/warp/pairledger/ledger"
	"github.com/warp/pairledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestManager(t *testing.T) (*accounts.Manager, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	return accounts.NewManager(s), s
}

func mustRegister(t *testing.T, m *accounts.Manager, name string) ledger.Account {
	t.Helper()
	a, err := m.Register(context.Background(), name)
	require.NoError(t, err)
	return a
}

func partnerOf(t *testing.T, m *accounts.Manager, id ledger.AccountID) *ledger.AccountID {
	t.Helper()
	a, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	return a.Partner
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestRegister_ZeroBalanceAndUniqueName(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a := mustRegister(t, m, "boy")
	assert.True(t, a.Balance.IsZero())
	assert.Nil(t, a.Partner)

	_, err := m.Register(ctx, "boy")
	assert.ErrorIs(t, err, ledger.ErrDuplicateName)

	got, err := m.GetByName(ctx, "boy")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestTransactions_MissingAccount(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Transactions(context.Background(), "nope")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

// =============================================================================
// PAIRING
// =============================================================================

func TestBindPartner_Symmetric(t *testing.T) {
	// GIVEN: Two unlinked accounts
	// WHEN: A binds to B
	// THEN: Both sides point at each other

	m, _ := newTestManager(t)
	ctx := context.Background()
	a := mustRegister(t, m, "boy")
	b := mustRegister(t, m, "girl")

	require.NoError(t, m.BindPartner(ctx, a.ID, b.ID))

	require.NotNil(t, partnerOf(t, m, a.ID))
	assert.Equal(t, b.ID, *partnerOf(t, m, a.ID))
	require.NotNil(t, partnerOf(t, m, b.ID))
	assert.Equal(t, a.ID, *partnerOf(t, m, b.ID))
}

func TestBindPartner_SelfRejected(t *testing.T) {
	m, _ := newTestManager(t)
	a := mustRegister(t, m, "boy")

	err := m.BindPartner(context.Background(), a.ID, a.ID)
	assert.ErrorIs(t, err, ledger.ErrSelfPartner)
}

func TestBindPartner_MissingAccounts(t *testing.T) {
	m, _ := newTestManager(t)
	a := mustRegister(t, m, "boy")
	ctx := context.Background()

	assert.ErrorIs(t, m.BindPartner(ctx, a.ID, "nope"), ledger.ErrAccountNotFound)
	assert.ErrorIs(t, m.BindPartner(ctx, "nope", a.ID), ledger.ErrAccountNotFound)
}

func TestBindPartner_RebindUnlinksDisplacedPartner(t *testing.T) {
	// GIVEN: A is bound to B
	// WHEN: A rebinds to C
	// THEN: A and C point at each other and B is unlinked - the symmetric
	//       invariant holds for everyone, nobody keeps a dangling link

	m, _ := newTestManager(t)
	ctx := context.Background()
	a := mustRegister(t, m, "boy")
	b := mustRegister(t, m, "girl")
	c := mustRegister(t, m, "newcomer")

	require.NoError(t, m.BindPartner(ctx, a.ID, b.ID))
	require.NoError(t, m.BindPartner(ctx, a.ID, c.ID))

	require.NotNil(t, partnerOf(t, m, a.ID))
	assert.Equal(t, c.ID, *partnerOf(t, m, a.ID))
	require.NotNil(t, partnerOf(t, m, c.ID))
	assert.Equal(t, a.ID, *partnerOf(t, m, c.ID))
	assert.Nil(t, partnerOf(t, m, b.ID), "displaced partner must be unlinked")
}

func TestBindPartner_RebindSamePartnerIsStable(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	a := mustRegister(t, m, "boy")
	b := mustRegister(t, m, "girl")

	require.NoError(t, m.BindPartner(ctx, a.ID, b.ID))
	require.NoError(t, m.BindPartner(ctx, a.ID, b.ID))

	assert.Equal(t, b.ID, *partnerOf(t, m, a.ID))
	assert.Equal(t, a.ID, *partnerOf(t, m, b.ID))
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestSeedPair_CreatesAndBindsOnce(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SeedPair(ctx, "boy", "girl"))

	boy, err := m.GetByName(ctx, "boy")
	require.NoError(t, err)
	girl, err := m.GetByName(ctx, "girl")
	require.NoError(t, err)

	require.NotNil(t, boy.Partner)
	assert.Equal(t, girl.ID, *boy.Partner)
	require.NotNil(t, girl.Partner)
	assert.Equal(t, boy.ID, *girl.Partner)

	// Second run must not create duplicates or rebind.
	require.NoError(t, m.SeedPair(ctx, "boy", "girl"))
	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSeedPair_SameNameRejected(t *testing.T) {
	m, _ := newTestManager(t)
	assert.ErrorIs(t, m.SeedPair(context.Background(), "boy", "boy"), ledger.ErrSelfPartner)
}
