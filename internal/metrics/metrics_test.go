package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestLatencySnapshotQuantiles(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	for i := 0; i < 100; i++ {
		r.ObserveLatency(StageSim, 0.0001)
	}
	for i := 0; i < 5; i++ {
		r.ObserveLatency(StageSim, 1.0)
	}

	snap, err := r.LatencySnapshot(StageSim)
	require.NoError(t, err)
	require.Less(t, snap.P50, 0.01)
	require.Greater(t, snap.P99, snap.P50)
}

func TestLatencySnapshotEmpty(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	snap, err := r.LatencySnapshot(StageDecode)
	require.NoError(t, err)
	require.Equal(t, Snapshot{}, snap)
}
