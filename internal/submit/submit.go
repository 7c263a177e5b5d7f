// Package submit fire-and-forget submits bundles against an abstract
// block-builder endpoint with exponential-backoff retry, and separately
// reconciles bundle state transitions from a streaming (or polled)
// result source into the counters spec.md §4.8 names. Neither path
// blocks the hot path: Submit and Run are both background-worker
// operations (spec.md §5).
package submit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// BundleState is one of the states a submitted bundle may pass through
// (spec.md §4.8: "accepted → processed → finalized (terminal success),
// or rejected | dropped (terminal failure)").
type BundleState int

const (
	StateAccepted BundleState = iota
	StateProcessed
	StateFinalized
	StateRejected
	StateDropped
)

func (s BundleState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateProcessed:
		return "processed"
	case StateFinalized:
		return "finalized"
	case StateRejected:
		return "rejected"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a bundle's lifecycle.
func (s BundleState) Terminal() bool {
	return s == StateFinalized || s == StateRejected || s == StateDropped
}

// ResultEvent is one observation off the result stream, keyed by the id
// returned from a prior SubmitBundle call.
type ResultEvent struct {
	BundleID string
	State    BundleState
}

// Transport is the abstract submission interface spec.md §6 names:
// "submit_bundle(Bundle) → { id | error }" plus a streaming
// "bundle_results(id → {...})". The engine depends only on this shape,
// never on a specific block-builder's wire protocol.
type Transport interface {
	SubmitBundle(ctx context.Context, txs [][]byte) (string, error)
	Results(ctx context.Context) (<-chan ResultEvent, error)
}

// Config bundles spec.md §6's submitter knobs.
type Config struct {
	MaxRetries       int
	AttemptTimeoutMS int64
	DryRun           bool // build and count, never call the transport (spec.md §6)
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, AttemptTimeoutMS: 5_000}
}

const (
	backoffBase = 100 * time.Millisecond
	backoffCap  = time.Second
	reconnectDelay = time.Second
)

// Counters are the monotonically increasing totals spec.md §4.8 names.
// Every field is safe to read concurrently with Submit/Run.
type Counters struct {
	Sent, Accepted, Rejected, Processed, Finalized, Dropped, Landed atomic.Int64
}

// LandingRate is spec.md §4.8's "landed / sent".
func (c *Counters) LandingRate() float64 {
	sent := c.Sent.Load()
	if sent == 0 {
		return 0
	}
	return float64(c.Landed.Load()) / float64(sent)
}

// Submitter drives fire-and-forget submission and result reconciliation
// against a Transport.
type Submitter struct {
	transport Transport
	cfg       Config
	counters  Counters

	mu   sync.Mutex
	seen map[string]map[BundleState]bool // bundle id -> states already counted
}

// New constructs a Submitter. cfg.MaxRetries<=0 falls back to the
// spec.md §6 default of 3.
func New(transport Transport, cfg Config) *Submitter {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.AttemptTimeoutMS <= 0 {
		cfg.AttemptTimeoutMS = DefaultConfig().AttemptTimeoutMS
	}
	return &Submitter{transport: transport, cfg: cfg, seen: make(map[string]map[BundleState]bool)}
}

// Counters returns the live counter set.
func (s *Submitter) Counters() *Counters { return &s.counters }

// Submit fire-and-forgets txs with exponential backoff (base 100ms, cap
// 1s, limit max_retries). In dry-run mode it counts as "sent" without
// ever calling the transport (spec.md §6: "record would-have-submitted
// counts but never call the external submitter").
func (s *Submitter) Submit(ctx context.Context, txs [][]byte) (string, error) {
	if s.cfg.DryRun {
		s.counters.Sent.Add(1)
		return uuid.NewString(), nil // synthetic id: nothing was actually sent to reconcile against
	}

	backoff := backoffBase
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			if backoff > backoffCap {
				backoff = backoffCap
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.AttemptTimeoutMS)*time.Millisecond)
		id, err := s.transport.SubmitBundle(attemptCtx, txs)
		cancel()
		if err == nil {
			s.counters.Sent.Add(1)
			return id, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("submit bundle: exhausted %d retries: %w", s.cfg.MaxRetries, lastErr)
}

// Run drives the result-stream reader forever: on a Results() error or
// channel close, it sleeps 1s and reconnects, until ctx is cancelled
// (spec.md §4.8, §5 "Submitter: ... on result-stream read").
func (s *Submitter) Run(ctx context.Context) {
	for ctx.Err() == nil {
		results, err := s.transport.Results(ctx)
		if err != nil {
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			continue
		}
		s.drain(ctx, results)
		if !sleepOrDone(ctx, reconnectDelay) {
			return
		}
	}
}

func (s *Submitter) drain(ctx context.Context, results <-chan ResultEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-results:
			if !ok {
				return
			}
			s.reconcile(evt)
		}
	}
}

// reconcile applies evt, deduplicating repeat events for the same
// (bundle id, state) pair via a per-bundle "seen" set (spec.md §4.8).
func (s *Submitter) reconcile(evt ResultEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, ok := s.seen[evt.BundleID]
	if !ok {
		states = make(map[BundleState]bool)
		s.seen[evt.BundleID] = states
	}
	if states[evt.State] {
		return
	}
	states[evt.State] = true

	switch evt.State {
	case StateAccepted:
		s.counters.Accepted.Add(1)
	case StateProcessed:
		s.counters.Processed.Add(1)
	case StateFinalized:
		s.counters.Finalized.Add(1)
		s.counters.Landed.Add(1) // landed = finalized once (spec.md §4.8)
	case StateRejected:
		s.counters.Rejected.Add(1)
	case StateDropped:
		s.counters.Dropped.Add(1)
	}

	if evt.State.Terminal() {
		delete(s.seen, evt.BundleID)
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
