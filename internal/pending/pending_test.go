package pending

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func tx(sigByte byte, slot uint64, receivedAt int64) domain.PendingTx {
	var sig [64]byte
	sig[0] = sigByte
	return domain.PendingTx{Signature: sig, Slot: slot, ReceivedAt: receivedAt}
}

func TestInsertRejectsDuplicate(t *testing.T) {
	q := New(DefaultConfig())
	entry := tx(1, 100, 0)
	require.True(t, q.Insert(entry))
	require.False(t, q.Insert(entry))
	require.Equal(t, 1, q.Len())
}

func TestConfirmRemoves(t *testing.T) {
	q := New(DefaultConfig())
	entry := tx(1, 100, 0)
	q.Insert(entry)
	require.True(t, q.Confirm(entry.SignatureHex()))
	require.False(t, q.Confirm(entry.SignatureHex()))
	require.Equal(t, 0, q.Len())
}

func TestGetOrderedSortsBySlotThenSignature(t *testing.T) {
	q := New(DefaultConfig())
	q.Insert(tx(3, 200, 0))
	q.Insert(tx(1, 100, 0))
	q.Insert(tx(2, 100, 0))

	ordered := q.GetOrdered()
	require.Len(t, ordered, 3)
	require.Equal(t, uint64(100), ordered[0].Slot)
	require.Equal(t, uint64(100), ordered[1].Slot)
	require.Equal(t, uint64(200), ordered[2].Slot)
	require.True(t, ordered[0].SignatureHex() < ordered[1].SignatureHex())
}

func TestGetOrderedCachesUntilDirty(t *testing.T) {
	q := New(DefaultConfig())
	q.Insert(tx(1, 100, 0))
	first := q.GetOrdered()
	second := q.GetOrdered()
	require.Equal(t, first, second)

	q.Insert(tx(2, 50, 0))
	third := q.GetOrdered()
	require.Equal(t, uint64(50), third[0].Slot)
}

func TestGetForPoolScansDecodedLegs(t *testing.T) {
	q := New(DefaultConfig())
	var pool pubkey.Pubkey
	pool[0] = 0xAA

	withLeg := tx(1, 100, 0)
	withLeg.DecodedLegs = []domain.SwapLeg{{Pool: pool}}
	q.Insert(withLeg)
	q.Insert(tx(2, 100, 0))

	matches := q.GetForPool(pool)
	require.Len(t, matches, 1)
}

func TestEvictionAtCapacity(t *testing.T) {
	q := New(Config{MaxSize: 10, ExpirationSlots: DefaultExpirationSlots, ExpirationMS: DefaultExpirationMS})
	for i := 0; i < 10; i++ {
		q.Insert(tx(byte(i), uint64(i), 0))
	}
	require.Equal(t, 10, q.Len())

	q.Insert(tx(200, 200, 0))
	require.Less(t, q.Len(), 11)
}

func TestExpireBySlotAndTime(t *testing.T) {
	q := New(DefaultConfig())
	q.Insert(tx(1, 10, 0))                  // far behind head slot
	q.Insert(tx(2, 1000, 0))                // stale by wall clock
	q.Insert(tx(3, 1000, 2_000_000_000_000)) // fresh

	evicted := q.Expire(1000, 2_000_000_000_000)
	require.Equal(t, 2, evicted)
	require.Equal(t, 1, q.Len())
}
