// Package pending implements the bounded pending-transaction queue
// (spec.md §4.6): signature-hex keyed entries, a lazily-sorted
// (slot, signature) view, and slot/time-based retention. It is owned
// exclusively by the hot-path role (spec.md §5); nothing here blocks.
package pending

import (
	"sort"
	"sync"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// DefaultMaxSize, DefaultExpirationSlots, and DefaultExpirationMS are
// spec.md §4.6's documented defaults.
const (
	DefaultMaxSize         = 10_000
	DefaultExpirationSlots = 150
	DefaultExpirationMS    = 60_000
)

// evictFraction is the share of capacity evicted at once when the
// queue is full, to amortize the cost of making room (spec.md §4.6:
// "Evict the oldest 10% when at capacity").
const evictFraction = 0.10

// Config bounds a Queue's retention policy.
type Config struct {
	MaxSize         int
	ExpirationSlots uint64
	ExpirationMS    int64
}

// DefaultConfig returns spec.md §4.6's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:         DefaultMaxSize,
		ExpirationSlots: DefaultExpirationSlots,
		ExpirationMS:    DefaultExpirationMS,
	}
}

// Queue is a bounded, signature-hex-keyed map of pending transactions
// with a lazily-rebuilt (slot, signature) ordered view (spec.md §4.6).
type Queue struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]domain.PendingTx
	order   []string // cached ordering, rebuilt only when dirty
	dirty   bool
}

// New constructs an empty Queue under cfg.
func New(cfg Config) *Queue {
	return &Queue{cfg: cfg, entries: make(map[string]domain.PendingTx)}
}

// Insert adds tx, keyed by its signature hex. Reports false (no-op) if
// an entry for this signature already exists (spec.md §4.6).
func (q *Queue) Insert(tx domain.PendingTx) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := tx.SignatureHex()
	if _, exists := q.entries[key]; exists {
		return false
	}
	if len(q.entries) >= q.cfg.MaxSize {
		q.evictOldestLocked()
	}
	q.entries[key] = tx
	q.dirty = true
	return true
}

// Confirm removes the entry for signature, reporting whether one was
// present (spec.md §4.6: "confirm(signature) → bool (removes)").
func (q *Queue) Confirm(signatureHex string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[signatureHex]; !exists {
		return false
	}
	delete(q.entries, signatureHex)
	q.dirty = true
	return true
}

// GetOrdered returns every live entry sorted by (slot ASC, signature
// lex ASC), rebuilding the cached view only if the queue has changed
// since the last call (spec.md §4.6).
func (q *Queue) GetOrdered() []domain.PendingTx {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rebuildLocked()
	out := make([]domain.PendingTx, 0, len(q.order))
	for _, key := range q.order {
		out = append(out, q.entries[key])
	}
	return out
}

// GetForPool scans entries for decoded legs touching pool, returning
// them in no particular order (spec.md §4.6: "by scanning stored
// per-entry deltas"). A scan, not a secondary index, since pending-tx
// volume per pool is small relative to total queue size.
func (q *Queue) GetForPool(pool pubkey.Pubkey) []domain.PendingTx {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []domain.PendingTx
	for _, tx := range q.entries {
		for _, leg := range tx.DecodedLegs {
			if leg.Pool == pool {
				out = append(out, tx)
				break
			}
		}
	}
	return out
}

// Len reports the number of live entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) rebuildLocked() {
	if !q.dirty {
		return
	}
	order := make([]string, 0, len(q.entries))
	for key := range q.entries {
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := q.entries[order[i]], q.entries[order[j]]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return order[i] < order[j]
	})
	q.order = order
	q.dirty = false
}

// evictOldestLocked drops the oldest evictFraction of entries by
// (slot, signature) order to make room for a new insert.
func (q *Queue) evictOldestLocked() {
	q.rebuildLocked()
	n := len(q.order)
	toEvict := int(float64(n) * evictFraction)
	if toEvict < 1 {
		toEvict = 1
	}
	if toEvict > n {
		toEvict = n
	}
	for i := 0; i < toEvict; i++ {
		delete(q.entries, q.order[i])
	}
	q.order = q.order[toEvict:]
}

// Expire removes entries older than headSlot−expirationSlots or older
// than expirationMS relative to nowUnixNano, whichever fires first,
// returning the count evicted (spec.md §4.6).
func (q *Queue) Expire(headSlot uint64, nowUnixNano int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	slotFloor := uint64(0)
	if headSlot > q.cfg.ExpirationSlots {
		slotFloor = headSlot - q.cfg.ExpirationSlots
	}
	msFloor := nowUnixNano - q.cfg.ExpirationMS*int64(1_000_000)

	evicted := 0
	for key, tx := range q.entries {
		if tx.Slot < slotFloor || tx.ReceivedAt < msFloor {
			delete(q.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		q.dirty = true
	}
	return evicted
}
