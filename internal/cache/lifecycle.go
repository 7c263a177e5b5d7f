package cache

import (
	"sync"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// State is a pool's position in the Discovered → Frozen → Active
// lifecycle (spec.md §3).
type State int

const (
	StateDiscovered State = iota
	StateFrozen
	StateActive
)

func (s State) String() string {
	switch s {
	case StateFrozen:
		return "frozen"
	case StateActive:
		return "active"
	default:
		return "discovered"
	}
}

// Missing reports which dependency categories try_activate found absent.
type Missing struct {
	Vaults     []pubkey.Pubkey
	Configs    []pubkey.Pubkey
	TickArrays []int32
	BinArrays  []int64
}

func (m Missing) empty() bool {
	return len(m.Vaults) == 0 && len(m.Configs) == 0 && len(m.TickArrays) == 0 && len(m.BinArrays) == 0
}

type poolRecord struct {
	state      State
	freezeSlot uint64
	deps       Dependencies
}

// Lifecycle is the per-pool state machine and the index from a
// dependency pubkey back to the pool(s) that froze it, used by Commit
// to enforce write-source admission on dependency accounts.
type Lifecycle struct {
	mu    sync.Mutex
	pools map[pubkey.Pubkey]*poolRecord

	// depOwners maps a dependency account pubkey to the pools that
	// listed it in their frozen dependency set (vaults/configs only;
	// tick/bin arrays are addressed by composite key, not pubkey, so
	// they are gated by pool lifecycle directly in Commit).
	depOwners map[pubkey.Pubkey][]pubkey.Pubkey
}

// NewLifecycle constructs an empty registry.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		pools:     make(map[pubkey.Pubkey]*poolRecord),
		depOwners: make(map[pubkey.Pubkey][]pubkey.Pubkey),
	}
}

// State returns a pool's current lifecycle state (Discovered if unseen).
func (l *Lifecycle) State(pool pubkey.Pubkey) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.pools[pool]
	if !ok {
		return StateDiscovered
	}
	return rec.state
}

// Touch ensures a pool has a Discovered record, called on first ingest
// of that pool's own account.
func (l *Lifecycle) Touch(pool pubkey.Pubkey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pools[pool]; !ok {
		l.pools[pool] = &poolRecord{state: StateDiscovered}
	}
}

// Freeze records a pool's dependency set and marks it Frozen. Calling
// Freeze again on an already-frozen pool is a no-op returning the
// previously recorded dependency set (freezing is not meant to be
// re-derived mid-flight).
func (l *Lifecycle) Freeze(pool pubkey.Pubkey, slot uint64, deps Dependencies) Dependencies {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.pools[pool]
	if !ok {
		rec = &poolRecord{}
		l.pools[pool] = rec
	}
	if rec.state != StateDiscovered {
		return rec.deps
	}
	rec.state = StateFrozen
	rec.freezeSlot = slot
	rec.deps = deps

	for _, v := range deps.Vaults {
		l.depOwners[v] = append(l.depOwners[v], pool)
	}
	for _, c := range deps.Configs {
		l.depOwners[c] = append(l.depOwners[c], pool)
	}
	return deps
}

// owners returns which pools, if any, have frozen dep as a dependency.
func (l *Lifecycle) owners(dep pubkey.Pubkey) []pubkey.Pubkey {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]pubkey.Pubkey(nil), l.depOwners[dep]...)
}

// blockedByAnyFrozenOwner reports whether dep is owned by a pool that
// is currently Frozen or Active (the write-admission gate applies to
// the dependency, not just the pool's own account).
func (l *Lifecycle) blockedByAnyFrozenOwner(dep pubkey.Pubkey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, owner := range l.depOwners[dep] {
		if rec, ok := l.pools[owner]; ok && rec.state != StateDiscovered {
			return true
		}
	}
	return false
}

// record returns a snapshot of the pool's lifecycle record.
func (l *Lifecycle) record(pool pubkey.Pubkey) (poolRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.pools[pool]
	if !ok {
		return poolRecord{}, false
	}
	return *rec, true
}

// activate marks a frozen pool Active. No-op if not currently Frozen.
func (l *Lifecycle) activate(pool pubkey.Pubkey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.pools[pool]; ok && rec.state == StateFrozen {
		rec.state = StateActive
	}
}
