// Package domain holds the data model shared by the cache, decoders,
// simulation kernels, and opportunity engine: the pool tagged union,
// vault/tick-array/bin-array records, and the version stamp that orders
// writes into the lifecycle cache (spec.md §3).
package domain

import (
	"cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// Version orders writes into a keyed store: (slot, write_version),
// compared lexicographically on slot then write version.
type Version struct {
	Slot         uint64
	WriteVersion uint64
}

// Less reports whether v happened before o.
func (v Version) Less(o Version) bool {
	if v.Slot != o.Slot {
		return v.Slot < o.Slot
	}
	return v.WriteVersion < o.WriteVersion
}

// LessOrEqual reports whether v is not newer than o.
func (v Version) LessOrEqual(o Version) bool {
	return v == o || v.Less(o)
}

// PoolKind tags which venue family a Pool variant belongs to.
type PoolKind int

const (
	PoolKindUnknown PoolKind = iota
	PoolKindCPMM
	PoolKindBondingCurve
	PoolKindCLMM
	PoolKindDLMM
)

func (k PoolKind) String() string {
	switch k {
	case PoolKindCPMM:
		return "cpmm"
	case PoolKindBondingCurve:
		return "bonding_curve"
	case PoolKindCLMM:
		return "clmm"
	case PoolKindDLMM:
		return "dlmm"
	default:
		return "unknown"
	}
}

// CPMM is the ConstantProduct pool variant (RaydiumV4 and PumpSwap's
// post-graduation AMM pool share this shape).
type CPMM struct {
	BaseVault      pubkey.Pubkey
	QuoteVault     pubkey.Pubkey
	LPFeeBps       int64
	ProtocolFeeBps int64

	HasPnLAccrual bool
	PnLBase       math.Int
	PnLQuote      math.Int

	// BaseMint/QuoteMint are populated when the venue's pool account
	// carries them directly (RaydiumCPMM does; PumpSwap's post-graduation
	// AMM pool layout this engine decodes does not, so they stay zero
	// there). The cross-venue spread scan keys on these and skips any
	// pool where they're unset.
	BaseMint  pubkey.Pubkey
	QuoteMint pubkey.Pubkey

	// Observation is RaydiumCPMM's per-pool price-oracle account,
	// required by its swap instruction's account list. Zero for
	// PumpSwap's post-graduation AMM pool, which has no such account.
	Observation pubkey.Pubkey

	// GlobalConfig is the pool's shared fee/parameter account — PumpSwap's
	// GlobalConfig for its post-graduation AMM pool, or RaydiumCPMM's
	// AmmConfig for its pool state. Only used as a lifecycle dependency
	// gate (spec.md §4.2); fee rates are fixed at decode time instead of
	// read back from this account, matching decode.GlobalConfig's own
	// documented default-fee convention.
	GlobalConfig pubkey.Pubkey
}

// BondingCurve is PumpSwap's pre-graduation venue.
type BondingCurve struct {
	VirtualTokenReserves math.Int
	VirtualSolReserves   math.Int
	RealTokenReserves    math.Int
	RealSolReserves      math.Int
	Creator              pubkey.Pubkey
	Complete             bool
	GlobalConfig         pubkey.Pubkey
}

// CLMM is RaydiumCLMM's concentrated-liquidity pool.
type CLMM struct {
	AmmConfig     pubkey.Pubkey
	TokenMint0    pubkey.Pubkey
	TokenMint1    pubkey.Pubkey
	Vault0        pubkey.Pubkey
	Vault1        pubkey.Pubkey
	SqrtPriceX64  uint128.Uint128
	Liquidity     uint128.Uint128
	TickCurrent   int32
	TickSpacing   uint16
	MintDecimals0 uint8
	MintDecimals1 uint8
	Status        uint8
}

// DLMM is MeteoraDLMM's discrete-bin pool.
type DLMM struct {
	BaseFactor          uint16
	VariableFeeControl  uint32
	VolatilityAccum     uint32
	MaxVolatilityAccum  uint32
	ActiveID            int32
	BinStep             uint16
	BaseFeePowerFactor  uint8
	TokenXMint          pubkey.Pubkey
	TokenYMint          pubkey.Pubkey
	ReserveX            pubkey.Pubkey
	ReserveY            pubkey.Pubkey
	Status              uint8
}

// Pool is the tagged union over the four venue variants (spec.md §3).
// Exactly one of the pointer fields matching Kind is non-nil.
type Pool struct {
	Kind         PoolKind
	CPMM         *CPMM
	BondingCurve *BondingCurve
	CLMM         *CLMM
	DLMM         *DLMM
}

// Vault is an SPL-token-style balance account.
type Vault struct {
	Amount uint64
}

// Tick is one entry of a TickArray.
type Tick struct {
	Index          int32
	LiquidityNet   *math.Int // i128-range; math.Int supports arbitrary precision
	LiquidityGross *math.Int
	Initialized    bool
}

// TickArraySize is the number of ticks packed per array (spec.md §3).
const TickArraySize = 60

// TickArray is a contiguous run of TickArraySize ticks starting at
// StartTickIndex, covering TickArraySize*tick_spacing ticks.
type TickArray struct {
	PoolID         pubkey.Pubkey
	StartTickIndex int32
	Ticks          [TickArraySize]Tick
}

// BinArraySize is the number of bins packed per array (spec.md §3).
const BinArraySize = 70

// Bin is one discrete price bucket of a DLMM pool.
type Bin struct {
	AmountX uint128.Uint128
	AmountY uint128.Uint128
}

// BinArray is a contiguous run of BinArraySize bins. Index = floor(bin_id / 70).
type BinArray struct {
	LBPair pubkey.Pubkey
	Index  int64
	Bins   [BinArraySize]Bin
}

// BinArrayIndex returns the array index a bin id lives in, and its
// Euclidean-remainder offset within that array (spec.md §3: "bin offset
// = bin_id mod 70 with Euclidean remainder").
func BinArrayIndex(binID int64) (index int64, offset int) {
	const n = int64(BinArraySize)
	idx := binID / n
	rem := binID % n
	if rem < 0 {
		rem += n
		idx--
	}
	return idx, int(rem)
}

// AmmConfig is a small fee/parameter record shared across CLMM pools.
type AmmConfig struct {
	TradeFeeRate    uint32
	ProtocolFeeRate uint32
	FundFeeRate     uint32
	TickSpacing     uint16
}

// GlobalConfig is PumpSwap's shared fee/parameter record.
type GlobalConfig struct {
	LPFeeBps       int64
	ProtocolFeeBps int64
}

// AddressLookupTable is a decoded ALT: a fixed 56-byte header followed
// by 32-byte address entries (spec.md §3, §6). Resolution of the table
// into a transaction's account list is out of scope for this engine.
type AddressLookupTable struct {
	Pubkey    pubkey.Pubkey
	Addresses []pubkey.Pubkey
	Slot      uint64
}

// SwapLeg is one decoded instruction inside a PendingTx.
type SwapLeg struct {
	Pool        pubkey.Pubkey
	Kind        PoolKind
	AmountIn    uint64
	MinOut      uint64
	ZeroForOne  bool
}

// PendingTx is an unconfirmed transaction observed on the ingest stream.
type PendingTx struct {
	Signature   [64]byte
	Slot        uint64
	DecodedLegs []SwapLeg
	// RawTransaction is the full signed wire bytes, spliced verbatim
	// into a bundle as the victim leg (spec.md §4.7).
	RawTransaction []byte
	// RawMessage is RawTransaction with its signatures stripped, the
	// form the swap-leg decoder parses.
	RawMessage []byte
	ReceivedAt int64 // unix nanos, stamped by the ingest worker
}

// SignatureHex is the pending-tx queue's key (spec.md §3: "key is
// hex-signature").
func (p PendingTx) SignatureHex() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(p.Signature)*2)
	for i, b := range p.Signature {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}
