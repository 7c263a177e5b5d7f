package cache

import (
	"sync"
	"sync/atomic"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// Source tags where an update came from. Only canonical writes are
// admitted once a pool (or one of its dependencies) is Frozen or
// Active (spec.md §4.1).
type Source int

const (
	SourceCanonical Source = iota
	SourceBootstrap
)

// UpdateKind discriminates the tagged update variant.
type UpdateKind int

const (
	UpdatePool UpdateKind = iota
	UpdateVault
	UpdateTickArray
	UpdateBinArray
	UpdateAmmConfig
	UpdateGlobalConfig
)

// TickArrayKey addresses a tick array by its owning pool and start
// index; tick arrays have no independent account pubkey in this model.
type TickArrayKey struct {
	Pool  pubkey.Pubkey
	Start int32
}

// BinArrayKey addresses a bin array by its owning pool and array index.
type BinArrayKey struct {
	Pool  pubkey.Pubkey
	Index int64
}

// Update is the tagged variant committed to the cache. Exactly one of
// the payload fields matching Kind is populated.
type Update struct {
	Kind         UpdateKind
	Pubkey       pubkey.Pubkey
	Slot         uint64
	WriteVersion uint64
	DataLen      int
	Source       Source

	Pool         domain.Pool
	Vault        domain.Vault
	TickArray    domain.TickArray
	TickStart    int32
	BinArray     domain.BinArray
	BinIndex     int64
	AmmConfig    domain.AmmConfig
	GlobalConfig domain.GlobalConfig

	// PoolOwner is required for Tick/Bin array updates: the pool they
	// belong to, for lifecycle gating and the topology index.
	PoolOwner pubkey.Pubkey
}

// Reason enumerates why a commit did or didn't apply.
type Reason string

const (
	ReasonApplied            Reason = "applied"
	ReasonStale              Reason = "stale"
	ReasonBlockedByLifecycle Reason = "blocked_by_lifecycle"
	ReasonDecodeError        Reason = "decode_error"
)

// Result is commit's outcome.
type Result struct {
	Applied bool
	Reason  Reason
}

// RollbackObserver is notified when the ingest stream's slot goes
// backward (spec.md §4.1's "slot rollback" rule).
type RollbackObserver func(previousHighSlot, observedSlot uint64)

// Cache is the single-writer Ingest & Lifecycle Cache. All exported
// methods are safe to call only from the ingest worker goroutine; it
// does not lock against itself, matching the single-writer model in
// spec.md §5. The per-Store locks exist to let concurrent hot-path
// readers (simulation, opportunity scan) read without blocking the
// writer.
type Cache struct {
	Pools         *Store[pubkey.Pubkey, domain.Pool]
	Vaults        *Store[pubkey.Pubkey, domain.Vault]
	TickArrays    *Store[TickArrayKey, domain.TickArray]
	BinArrays     *Store[BinArrayKey, domain.BinArray]
	AmmConfigs    *Store[pubkey.Pubkey, domain.AmmConfig]
	GlobalConfigs *Store[pubkey.Pubkey, domain.GlobalConfig]

	Lifecycle *Lifecycle

	highSlot   atomic.Uint64
	firstSlot  atomic.Int64 // -1 means none captured yet
	rollbackMu sync.Mutex
	onRollback RollbackObserver
}

// New constructs an empty Cache.
func New() *Cache {
	c := &Cache{
		Pools:         NewStore[pubkey.Pubkey, domain.Pool](),
		Vaults:        NewStore[pubkey.Pubkey, domain.Vault](),
		TickArrays:    NewStore[TickArrayKey, domain.TickArray](),
		BinArrays:     NewStore[BinArrayKey, domain.BinArray](),
		AmmConfigs:    NewStore[pubkey.Pubkey, domain.AmmConfig](),
		GlobalConfigs: NewStore[pubkey.Pubkey, domain.GlobalConfig](),
		Lifecycle:     NewLifecycle(),
	}
	c.firstSlot.Store(-1)
	return c
}

// OnRollback registers the rollback observer. Not safe to call
// concurrently with Commit.
func (c *Cache) OnRollback(f RollbackObserver) {
	c.rollbackMu.Lock()
	defer c.rollbackMu.Unlock()
	c.onRollback = f
}

// FirstSlot returns the first slot observed on the current stream, or
// (0, false) if none has been captured since construction or the last
// Reset.
func (c *Cache) FirstSlot() (uint64, bool) {
	v := c.firstSlot.Load()
	if v < 0 {
		return 0, false
	}
	return uint64(v), true
}

// HighSlot returns the highest slot observed so far, or 0 if none has
// been committed yet. cmd/arbd's expiry sweep uses this as the pending
// queue's retention head (spec.md §4.6).
func (c *Cache) HighSlot() uint64 {
	return c.highSlot.Load()
}

// Reset clears the first-slot capture, called by the ingest worker on
// reconnect (spec.md §4.1).
func (c *Cache) Reset() {
	c.firstSlot.Store(-1)
}

func (c *Cache) observeSlot(slot uint64) {
	if c.firstSlot.Load() < 0 {
		c.firstSlot.CompareAndSwap(-1, int64(slot))
	}
	for {
		high := c.highSlot.Load()
		if slot <= high {
			if slot < high {
				c.rollbackMu.Lock()
				obs := c.onRollback
				c.rollbackMu.Unlock()
				if obs != nil {
					obs(high, slot)
				}
			}
			return
		}
		if c.highSlot.CompareAndSwap(high, slot) {
			return
		}
	}
}

// Commit is the cache's single public write operation (spec.md §4.1).
func (c *Cache) Commit(u Update) Result {
	c.observeSlot(u.Slot)
	version := domain.Version{Slot: u.Slot, WriteVersion: u.WriteVersion}

	switch u.Kind {
	case UpdatePool:
		c.Lifecycle.Touch(u.Pubkey)
		if blocked(c.Lifecycle, u.Pubkey, u.Source) {
			return Result{Reason: ReasonBlockedByLifecycle}
		}
		if !c.Pools.Put(u.Pubkey, u.Pool, version, u.Source) {
			return Result{Reason: ReasonStale}
		}
		return Result{Applied: true, Reason: ReasonApplied}

	case UpdateVault:
		if blocked(c.Lifecycle, u.Pubkey, u.Source) {
			return Result{Reason: ReasonBlockedByLifecycle}
		}
		if !c.Vaults.Put(u.Pubkey, u.Vault, version, u.Source) {
			return Result{Reason: ReasonStale}
		}
		return Result{Applied: true, Reason: ReasonApplied}

	case UpdateAmmConfig:
		if blocked(c.Lifecycle, u.Pubkey, u.Source) {
			return Result{Reason: ReasonBlockedByLifecycle}
		}
		if !c.AmmConfigs.Put(u.Pubkey, u.AmmConfig, version, u.Source) {
			return Result{Reason: ReasonStale}
		}
		return Result{Applied: true, Reason: ReasonApplied}

	case UpdateGlobalConfig:
		if blocked(c.Lifecycle, u.Pubkey, u.Source) {
			return Result{Reason: ReasonBlockedByLifecycle}
		}
		if !c.GlobalConfigs.Put(u.Pubkey, u.GlobalConfig, version, u.Source) {
			return Result{Reason: ReasonStale}
		}
		return Result{Applied: true, Reason: ReasonApplied}

	case UpdateTickArray:
		if blockedByPool(c.Lifecycle, u.PoolOwner, u.Source) {
			return Result{Reason: ReasonBlockedByLifecycle}
		}
		key := TickArrayKey{Pool: u.PoolOwner, Start: u.TickStart}
		if !c.TickArrays.Put(key, u.TickArray, version, u.Source) {
			return Result{Reason: ReasonStale}
		}
		return Result{Applied: true, Reason: ReasonApplied}

	case UpdateBinArray:
		if blockedByPool(c.Lifecycle, u.PoolOwner, u.Source) {
			return Result{Reason: ReasonBlockedByLifecycle}
		}
		key := BinArrayKey{Pool: u.PoolOwner, Index: u.BinIndex}
		if !c.BinArrays.Put(key, u.BinArray, version, u.Source) {
			return Result{Reason: ReasonStale}
		}
		return Result{Applied: true, Reason: ReasonApplied}

	default:
		return Result{Reason: ReasonDecodeError}
	}
}

// blocked checks the write-admission rule for a pool's own account: a
// bootstrap write is rejected once that pool is Frozen or Active, or
// once it's a recognized dependency of a Frozen/Active pool.
func blocked(lc *Lifecycle, key pubkey.Pubkey, source Source) bool {
	if source == SourceCanonical {
		return false
	}
	if rec, ok := lc.record(key); ok && rec.state != StateDiscovered {
		return true
	}
	return lc.blockedByAnyFrozenOwner(key)
}

// blockedByPool checks tick/bin array admission against their owning
// pool's lifecycle state directly, since arrays have no pubkey-keyed
// dependency-owner index of their own.
func blockedByPool(lc *Lifecycle, pool pubkey.Pubkey, source Source) bool {
	if source == SourceCanonical {
		return false
	}
	rec, ok := lc.record(pool)
	return ok && rec.state != StateDiscovered
}

// Freeze computes and records a pool's dependency set, transitioning it
// to Frozen (spec.md §4.2).
func (c *Cache) Freeze(pool pubkey.Pubkey, slot uint64) Dependencies {
	p, _, ok := c.Pools.Get(pool)
	if !ok {
		return Dependencies{}
	}
	deps := DeriveDependencies(p)
	return c.Lifecycle.Freeze(pool, slot, deps)
}

// resident reports whether a dependency entry counts toward
// activation: present, and either bootstrap-sourced (exempt from the
// freeze-slot check, spec.md §4.2's carve-out for the snapshot that
// seeded the pool itself) or canonical at or past freezeSlot. A
// canonical entry written before the pool froze is pre-freeze state
// and must not satisfy activation.
func resident[T any](entry Entry[T], ok bool, freezeSlot uint64) bool {
	if !ok {
		return false
	}
	if entry.Source == SourceBootstrap {
		return true
	}
	return entry.Version.Slot >= freezeSlot
}

// TryActivate checks whether every dependency of a Frozen pool is
// resident at or past its freeze slot, and if so promotes it to
// Active (spec.md §4.2).
func (c *Cache) TryActivate(pool pubkey.Pubkey) (activated bool, missing Missing) {
	rec, ok := c.Lifecycle.record(pool)
	if !ok || rec.state == StateDiscovered {
		return false, Missing{}
	}
	if rec.state == StateActive {
		return true, Missing{}
	}

	for _, v := range rec.deps.Vaults {
		entry, ok := c.Vaults.GetEntry(v)
		if !resident(entry, ok, rec.freezeSlot) {
			missing.Vaults = append(missing.Vaults, v)
		}
	}
	for _, cfg := range rec.deps.Configs {
		ammEntry, ammOK := c.AmmConfigs.GetEntry(cfg)
		globalEntry, globalOK := c.GlobalConfigs.GetEntry(cfg)
		if !resident(ammEntry, ammOK, rec.freezeSlot) && !resident(globalEntry, globalOK, rec.freezeSlot) {
			missing.Configs = append(missing.Configs, cfg)
		}
	}
	for _, start := range rec.deps.TickArrayStarts {
		entry, ok := c.TickArrays.GetEntry(TickArrayKey{Pool: pool, Start: start})
		if !resident(entry, ok, rec.freezeSlot) {
			missing.TickArrays = append(missing.TickArrays, start)
		}
	}
	for _, idx := range rec.deps.BinArrayIndices {
		entry, ok := c.BinArrays.GetEntry(BinArrayKey{Pool: pool, Index: idx})
		if !resident(entry, ok, rec.freezeSlot) {
			missing.BinArrays = append(missing.BinArrays, idx)
		}
	}

	if !missing.empty() {
		return false, missing
	}
	c.Lifecycle.activate(pool)
	return true, Missing{}
}

// FreezeAndActivate is the atomic composite of Freeze followed by
// TryActivate (spec.md §4.2).
func (c *Cache) FreezeAndActivate(pool pubkey.Pubkey, slot uint64) (activated bool, missing Missing) {
	c.Freeze(pool, slot)
	return c.TryActivate(pool)
}
