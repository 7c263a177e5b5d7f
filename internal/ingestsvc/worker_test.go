package ingestsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/logging"
	"github.com/solana-zh/arb-engine/internal/metrics"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

type fakeIngester struct {
	events chan Event
	err    error
}

func (f *fakeIngester) Events(ctx context.Context) (<-chan Event, error) {
	return f.events, f.err
}

func TestWorkerHandleCommitsAppliedVault(t *testing.T) {
	c := cache.New()
	reg := metrics.New(prometheus.NewRegistry())
	w := New(c, nil, nil, reg, logging.Noop())

	pk := pubkey.Pubkey{0x02}
	w.handle(Event{Update: &RawUpdate{Kind: KindVault, Pubkey: pk, Slot: 1, WriteVersion: 1, Data: vaultBytes(42)}})

	v, _, ok := c.Vaults.Get(pk)
	require.True(t, ok)
	require.Equal(t, uint64(42), v.Amount)
}

func TestWorkerHandleDecodeErrorIsNotApplied(t *testing.T) {
	c := cache.New()
	reg := metrics.New(prometheus.NewRegistry())
	w := New(c, nil, nil, reg, logging.Noop())

	pk := pubkey.Pubkey{0x03}
	w.handle(Event{Update: &RawUpdate{Kind: KindVault, Pubkey: pk, Data: []byte{1}}})

	_, _, ok := c.Vaults.Get(pk)
	require.False(t, ok)
}

func TestWorkerHandleRollbackDoesNotPanic(t *testing.T) {
	c := cache.New()
	reg := metrics.New(prometheus.NewRegistry())
	w := New(c, nil, nil, reg, logging.Noop())

	w.handle(Event{Rollback: &RollbackEvent{PreviousHighSlot: 10, ObservedSlot: 5}})
}

func TestRunReconnectsAfterSourceError(t *testing.T) {
	c := cache.New()
	reg := metrics.New(prometheus.NewRegistry())
	ingester := &fakeIngester{err: errors.New("connect refused")}
	w := New(c, nil, ingester, reg, logging.Noop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)
}

func TestRunDrainsEventsUntilChannelCloses(t *testing.T) {
	c := cache.New()
	reg := metrics.New(prometheus.NewRegistry())
	events := make(chan Event, 1)
	pk := pubkey.Pubkey{0x04}
	events <- Event{Update: &RawUpdate{Kind: KindVault, Pubkey: pk, Slot: 1, WriteVersion: 1, Data: vaultBytes(7)}}
	close(events)
	ingester := &fakeIngester{events: events}
	w := New(c, nil, ingester, reg, logging.Noop())

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	v, _, ok := c.Vaults.Get(pk)
	require.True(t, ok)
	require.Equal(t, uint64(7), v.Amount)
}
