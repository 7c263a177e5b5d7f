package cache

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func testPubkey(b byte) pubkey.Pubkey {
	raw := make([]byte, pubkey.Size)
	raw[0] = b
	p, _ := pubkey.FromBytes(raw)
	return p
}

func cpmmPool(baseVault, quoteVault pubkey.Pubkey) domain.Pool {
	return domain.Pool{
		Kind: domain.PoolKindCPMM,
		CPMM: &domain.CPMM{
			BaseVault:      baseVault,
			QuoteVault:     quoteVault,
			LPFeeBps:       25,
			ProtocolFeeBps: 5,
			PnLBase:        math.ZeroInt(),
			PnLQuote:       math.ZeroInt(),
		},
	}
}

func TestCommitVersioning(t *testing.T) {
	c := New()
	pool := testPubkey(1)

	r := c.Commit(Update{Kind: UpdateVault, Pubkey: pool, Slot: 10, WriteVersion: 1, Source: SourceCanonical})
	require.True(t, r.Applied)

	// equal version is an idempotent no-op
	r = c.Commit(Update{Kind: UpdateVault, Pubkey: pool, Slot: 10, WriteVersion: 1, Source: SourceCanonical})
	require.False(t, r.Applied)
	require.Equal(t, ReasonStale, r.Reason)

	// strictly older version is stale
	r = c.Commit(Update{Kind: UpdateVault, Pubkey: pool, Slot: 9, WriteVersion: 99, Source: SourceCanonical})
	require.False(t, r.Applied)
	require.Equal(t, ReasonStale, r.Reason)

	// newer version applies
	r = c.Commit(Update{Kind: UpdateVault, Pubkey: pool, Slot: 11, WriteVersion: 0, Source: SourceCanonical})
	require.True(t, r.Applied)
}

func TestCommitBlockedByLifecycle(t *testing.T) {
	c := New()
	poolID := testPubkey(1)
	baseVault := testPubkey(2)
	quoteVault := testPubkey(3)

	r := c.Commit(Update{Kind: UpdatePool, Pubkey: poolID, Slot: 1, Pool: cpmmPool(baseVault, quoteVault), Source: SourceBootstrap})
	require.True(t, r.Applied)

	c.Freeze(poolID, 1)

	// bootstrap writes to the pool's own account are now rejected
	r = c.Commit(Update{Kind: UpdatePool, Pubkey: poolID, Slot: 2, Pool: cpmmPool(baseVault, quoteVault), Source: SourceBootstrap})
	require.False(t, r.Applied)
	require.Equal(t, ReasonBlockedByLifecycle, r.Reason)

	// bootstrap writes to a frozen dependency are also rejected
	r = c.Commit(Update{Kind: UpdateVault, Pubkey: baseVault, Slot: 2, WriteVersion: 1, Vault: domain.Vault{Amount: 100}, Source: SourceBootstrap})
	require.False(t, r.Applied)
	require.Equal(t, ReasonBlockedByLifecycle, r.Reason)

	// canonical writes still apply
	r = c.Commit(Update{Kind: UpdateVault, Pubkey: baseVault, Slot: 2, WriteVersion: 1, Vault: domain.Vault{Amount: 100}, Source: SourceCanonical})
	require.True(t, r.Applied)
}

func TestFreezeAndActivate(t *testing.T) {
	c := New()
	poolID := testPubkey(1)
	baseVault := testPubkey(2)
	quoteVault := testPubkey(3)

	c.Commit(Update{Kind: UpdatePool, Pubkey: poolID, Slot: 1, Pool: cpmmPool(baseVault, quoteVault), Source: SourceBootstrap})

	activated, missing := c.FreezeAndActivate(poolID, 1)
	require.False(t, activated)
	require.ElementsMatch(t, []pubkey.Pubkey{baseVault, quoteVault}, missing.Vaults)
	require.Equal(t, StateFrozen, c.Lifecycle.State(poolID))

	c.Commit(Update{Kind: UpdateVault, Pubkey: baseVault, Slot: 1, WriteVersion: 1, Vault: domain.Vault{Amount: 1}, Source: SourceCanonical})
	activated, _ = c.TryActivate(poolID)
	require.False(t, activated)

	c.Commit(Update{Kind: UpdateVault, Pubkey: quoteVault, Slot: 1, WriteVersion: 1, Vault: domain.Vault{Amount: 1}, Source: SourceCanonical})
	activated, missing = c.TryActivate(poolID)
	require.True(t, activated)
	require.True(t, missing.empty())
	require.Equal(t, StateActive, c.Lifecycle.State(poolID))
}

func TestTryActivateRejectsCanonicalDependencyWrittenBeforeFreezeSlot(t *testing.T) {
	c := New()
	poolID := testPubkey(1)
	baseVault := testPubkey(2)
	quoteVault := testPubkey(3)

	// Vaults arrive canonically before the pool itself is even seen.
	c.Commit(Update{Kind: UpdateVault, Pubkey: baseVault, Slot: 1, WriteVersion: 1, Vault: domain.Vault{Amount: 1}, Source: SourceCanonical})
	c.Commit(Update{Kind: UpdateVault, Pubkey: quoteVault, Slot: 1, WriteVersion: 1, Vault: domain.Vault{Amount: 1}, Source: SourceCanonical})

	c.Commit(Update{Kind: UpdatePool, Pubkey: poolID, Slot: 5, Pool: cpmmPool(baseVault, quoteVault), Source: SourceBootstrap})

	// Freeze at slot 10: both vault entries are stale pre-freeze state
	// and must not satisfy activation even though Has() would see them.
	activated, missing := c.FreezeAndActivate(poolID, 10)
	require.False(t, activated)
	require.ElementsMatch(t, []pubkey.Pubkey{baseVault, quoteVault}, missing.Vaults)

	// A canonical write at or after the freeze slot does satisfy it.
	c.Commit(Update{Kind: UpdateVault, Pubkey: baseVault, Slot: 10, WriteVersion: 2, Vault: domain.Vault{Amount: 2}, Source: SourceCanonical})
	c.Commit(Update{Kind: UpdateVault, Pubkey: quoteVault, Slot: 11, WriteVersion: 2, Vault: domain.Vault{Amount: 2}, Source: SourceCanonical})
	activated, missing = c.TryActivate(poolID)
	require.True(t, activated)
	require.True(t, missing.empty())
}

func TestTryActivateExemptsBootstrapSourcedDependency(t *testing.T) {
	c := New()
	poolID := testPubkey(1)
	baseVault := testPubkey(2)
	quoteVault := testPubkey(3)

	// Both vaults seeded by the same bootstrap snapshot that discovered
	// the pool, at a slot before the freeze slot the pool is later
	// frozen at — this is the normal bootstrap ordering, not stale data,
	// so it must be exempt from the freeze-slot comparison.
	c.Commit(Update{Kind: UpdatePool, Pubkey: poolID, Slot: 5, Pool: cpmmPool(baseVault, quoteVault), Source: SourceBootstrap})
	c.Commit(Update{Kind: UpdateVault, Pubkey: baseVault, Slot: 5, WriteVersion: 1, Vault: domain.Vault{Amount: 1}, Source: SourceBootstrap})
	c.Commit(Update{Kind: UpdateVault, Pubkey: quoteVault, Slot: 5, WriteVersion: 1, Vault: domain.Vault{Amount: 1}, Source: SourceBootstrap})

	activated, missing := c.FreezeAndActivate(poolID, 10)
	require.True(t, activated)
	require.True(t, missing.empty())
}

func TestRollbackObserver(t *testing.T) {
	c := New()
	var calls [][2]uint64
	c.OnRollback(func(prev, observed uint64) {
		calls = append(calls, [2]uint64{prev, observed})
	})

	c.observeSlot(10)
	c.observeSlot(12)
	c.observeSlot(11) // rollback

	require.Len(t, calls, 1)
	require.Equal(t, [2]uint64{12, 11}, calls[0])
}

func TestFirstSlotCapture(t *testing.T) {
	c := New()
	_, ok := c.FirstSlot()
	require.False(t, ok)

	c.observeSlot(5)
	c.observeSlot(7)
	slot, ok := c.FirstSlot()
	require.True(t, ok)
	require.Equal(t, uint64(5), slot)

	c.Reset()
	_, ok = c.FirstSlot()
	require.False(t, ok)
}
