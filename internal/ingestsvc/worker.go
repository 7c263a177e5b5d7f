package ingestsvc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/metrics"
	"github.com/solana-zh/arb-engine/internal/pending"
)

// reconnectDelay matches the submitter's own reconnect cadence
// (spec.md §4.8, §5): sleep 1s, then try the source again.
const reconnectDelay = time.Second

// Worker drains an Ingester's event stream, decodes each raw update,
// and commits it into the cache — the single background role spec.md
// §5 calls out as the cache's only writer.
type Worker struct {
	cache    *cache.Cache
	pending  *pending.Queue
	ingester Ingester
	metrics  *metrics.Registry
	log      *zap.Logger
}

// New constructs a Worker. log may be logging.Noop() in tests. pending
// may be nil, in which case pending-tx events are decoded (so their
// cost is still measured) but discarded rather than queued.
func New(c *cache.Cache, pendingQueue *pending.Queue, ingester Ingester, m *metrics.Registry, log *zap.Logger) *Worker {
	return &Worker{cache: c, pending: pendingQueue, ingester: ingester, metrics: m, log: log}
}

// Run drives the worker forever, reconnecting on source failure or
// channel close until ctx is cancelled (spec.md §5: "Ingest worker:
// on socket read, on decode completion for a batch").
func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		events, err := w.ingester.Events(ctx)
		if err != nil {
			w.log.Warn("ingest source unavailable", zap.Error(err))
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			continue
		}
		w.cache.Reset()
		w.drain(ctx, events)
		if !sleepOrDone(ctx, reconnectDelay) {
			return
		}
	}
}

// Bootstrap runs a one-shot batch of bootstrap-sourced updates through
// the same decode-and-commit path Run uses for a live stream, letting a
// Bootstrapper.Discover result seed the cache before the canonical
// Ingester's first connection (spec.md §4.1's bootstrap source tag
// exists precisely for this one-shot sweep).
func (w *Worker) Bootstrap(updates []RawUpdate) {
	for i := range updates {
		w.handle(Event{Update: &updates[i]})
	}
}

func (w *Worker) drain(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			w.handle(evt)
		}
	}
}

func (w *Worker) handle(evt Event) {
	if evt.Rollback != nil {
		if w.metrics != nil {
			w.metrics.SlotRollbacks.Inc()
		}
		w.log.Warn("ingest slot rollback",
			zap.Uint64("previous_high_slot", evt.Rollback.PreviousHighSlot),
			zap.Uint64("observed_slot", evt.Rollback.ObservedSlot))
		return
	}
	if evt.PendingTx != nil {
		w.handlePendingTx(*evt.PendingTx)
		return
	}
	if evt.Update == nil {
		return
	}

	started := time.Now()
	update, err := buildCacheUpdate(*evt.Update)
	if w.metrics != nil {
		w.metrics.ObserveLatency(metrics.StageDecode, time.Since(started).Seconds())
	}
	if err != nil {
		w.countDrop(cache.ReasonDecodeError)
		w.log.Debug("ingest decode error", zap.String("kind", evt.Update.Kind.String()), zap.Error(err))
		return
	}

	result := w.cache.Commit(update)
	if !result.Applied {
		w.countDrop(result.Reason)
		return
	}
	if w.metrics != nil {
		w.metrics.Ingests.Inc()
	}
}

// handlePendingTx decodes raw into a domain.PendingTx (resolving any
// CPMM swap legs against the current cache) and inserts it into the
// pending queue, the hot path's own entry point for back-run detection
// (spec.md §4.5, §4.6).
func (w *Worker) handlePendingTx(raw RawPendingTx) {
	started := time.Now()
	tx := buildPendingTx(raw, w.cache)
	if w.metrics != nil {
		w.metrics.ObserveLatency(metrics.StageDecode, time.Since(started).Seconds())
	}
	if w.pending == nil {
		return
	}
	if !w.pending.Insert(tx) {
		w.countDrop(cache.ReasonStale)
	}
}

func (w *Worker) countDrop(reason cache.Reason) {
	if w.metrics != nil {
		w.metrics.Drops.WithLabelValues(string(reason)).Inc()
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
