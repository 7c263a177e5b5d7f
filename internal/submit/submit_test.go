package submit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	failCount int32
	submitted [][]byte
	results   chan ResultEvent
	resultsErr error
}

func (f *fakeTransport) SubmitBundle(ctx context.Context, txs [][]byte) (string, error) {
	if atomic.AddInt32(&f.failCount, -1) >= 0 {
		return "", errors.New("transient failure")
	}
	f.submitted = append(f.submitted, txs[0])
	return "bundle-1", nil
}

func (f *fakeTransport) Results(ctx context.Context) (<-chan ResultEvent, error) {
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return f.results, nil
}

func TestSubmitRetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{failCount: 2}
	s := New(ft, Config{MaxRetries: 3, AttemptTimeoutMS: 100})

	id, err := s.Submit(context.Background(), [][]byte{{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, "bundle-1", id)
	require.Equal(t, int64(1), s.Counters().Sent.Load())
}

func TestSubmitExhaustsRetries(t *testing.T) {
	ft := &fakeTransport{failCount: 100}
	s := New(ft, Config{MaxRetries: 2, AttemptTimeoutMS: 100})

	_, err := s.Submit(context.Background(), [][]byte{{1}})
	require.Error(t, err)
	require.Equal(t, int64(0), s.Counters().Sent.Load())
}

func TestSubmitDryRunNeverCallsTransport(t *testing.T) {
	ft := &fakeTransport{failCount: 100}
	s := New(ft, Config{DryRun: true})

	id, err := s.Submit(context.Background(), [][]byte{{1}})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Empty(t, ft.submitted)
	require.Equal(t, int64(1), s.Counters().Sent.Load())
}

func TestReconcileDedupesByBundleAndState(t *testing.T) {
	s := New(&fakeTransport{}, DefaultConfig())

	s.reconcile(ResultEvent{BundleID: "b1", State: StateAccepted})
	s.reconcile(ResultEvent{BundleID: "b1", State: StateAccepted})
	require.Equal(t, int64(1), s.Counters().Accepted.Load())

	s.reconcile(ResultEvent{BundleID: "b1", State: StateFinalized})
	require.Equal(t, int64(1), s.Counters().Finalized.Load())
	require.Equal(t, int64(1), s.Counters().Landed.Load())
	require.Zero(t, s.Counters().LandingRate()) // Sent was never incremented via Submit
}

func TestRunReconnectsAfterTransportError(t *testing.T) {
	ft := &fakeTransport{resultsErr: errors.New("connect refused")}
	s := New(ft, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx) // should return promptly once ctx is done, not hang
}

func TestRunDrainsResultsUntilChannelCloses(t *testing.T) {
	results := make(chan ResultEvent, 2)
	results <- ResultEvent{BundleID: "b2", State: StateProcessed}
	close(results)
	ft := &fakeTransport{results: results}
	s := New(ft, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	require.Equal(t, int64(1), s.Counters().Processed.Load())
}
