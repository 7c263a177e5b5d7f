// Package ingestsvc is the background worker that wraps an abstract
// Ingester (spec.md §6: "delivers an ordered stream of typed updates
// { kind, pubkey, owner, slot, write_version, data, source }"),
// decodes each raw account by its Kind, and commits the result into
// the lifecycle cache. It is background/outer-edge code (spec.md §5):
// it logs, allocates, and blocks on I/O, unlike the cache it feeds.
package ingestsvc

import (
	"context"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// Kind tags which decoder a RawUpdate's bytes must go through. Two
// PumpSwap account types — the pre-graduation bonding curve and the
// post-graduation AMM pool — share the same on-chain discriminator
// (spec.md §6: `f19a6d0411b16dbc` for both), so the discriminator
// bytes alone cannot disambiguate them; Kind carries that information
// out of band, the way the abstract ingest source's tuple does.
type Kind int

const (
	KindVault Kind = iota
	KindBondingCurve
	KindPumpAMMPool
	KindRaydiumCPMMPool
	KindCLMMPool
	KindDLMMPool
	KindTickArray
	KindBinArray
	KindAmmConfig
	KindGlobalConfig
)

func (k Kind) String() string {
	switch k {
	case KindVault:
		return "vault"
	case KindBondingCurve:
		return "bonding_curve"
	case KindPumpAMMPool:
		return "pump_amm_pool"
	case KindRaydiumCPMMPool:
		return "raydium_cpmm_pool"
	case KindCLMMPool:
		return "clmm_pool"
	case KindDLMMPool:
		return "dlmm_pool"
	case KindTickArray:
		return "tick_array"
	case KindBinArray:
		return "bin_array"
	case KindAmmConfig:
		return "amm_config"
	case KindGlobalConfig:
		return "global_config"
	default:
		return "unknown"
	}
}

// RawUpdate is one tuple off an Ingester's stream (spec.md §6).
type RawUpdate struct {
	Kind         Kind
	Pubkey       pubkey.Pubkey
	Owner        pubkey.Pubkey
	Slot         uint64
	WriteVersion uint64
	Data         []byte
	Source       cache.Source

	// PoolOwner addresses the pool a TickArray/BinArray update belongs
	// to. Required when Kind is KindTickArray or KindBinArray, ignored
	// otherwise (mirrors cache.Update.PoolOwner).
	PoolOwner pubkey.Pubkey
	// TickStart/BinIndex key a TickArray/BinArray independently of its
	// own pubkey, matching cache.TickArrayKey/cache.BinArrayKey.
	TickStart int32
	BinIndex  int64
}

// RollbackEvent is delivered in place of a RawUpdate when an Ingester
// observes the stream's slot go backward (spec.md §4.1, §6).
type RollbackEvent struct {
	PreviousHighSlot uint64
	ObservedSlot     uint64
}

// RawPendingTx is an unconfirmed transaction as handed off by an
// Ingester, before its instructions are decoded into domain.SwapLeg
// values (spec.md §3, §4.6).
type RawPendingTx struct {
	Signature [64]byte
	Slot      uint64

	// RawTransaction is the full signed wire transaction, spliced
	// verbatim into a bundle as the victim leg (spec.md §4.7).
	RawTransaction []byte
	// RawMessage is RawTransaction with its leading signatures
	// stripped, the form wire.ParseMessage expects when decoding swap
	// instructions out of it.
	RawMessage []byte
	ReceivedAt int64 // unix nanos, stamped by the ingester
}

// Event is the sum type an Ingester's channel carries: a raw account
// update, a pending transaction, or an explicit rollback notice.
type Event struct {
	Update    *RawUpdate
	PendingTx *RawPendingTx
	Rollback  *RollbackEvent
}

// Ingester is the abstract ingest source contract (spec.md §6). A
// concrete implementation (WebSocket subscription, file replay, test
// fixture) need only satisfy this to feed the worker.
type Ingester interface {
	// Events returns a channel of Event values. The channel is closed
	// when the underlying source disconnects; the worker treats that
	// as a transient failure and reconnects.
	Events(ctx context.Context) (<-chan Event, error)
}
