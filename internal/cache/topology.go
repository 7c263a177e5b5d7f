package cache

import "github.com/solana-zh/arb-engine/internal/domain"
import "github.com/solana-zh/arb-engine/internal/pubkey"

// DLMMSearchArrays is how many bin arrays on each side of active_id's
// own array the oracle freezes as dependencies. Chosen to mirror the
// CLMM convention of freezing ±3 tick arrays around tick_current
// (spec.md §4.2 requires only that the window be at least the
// simulator's search horizon; ±3 arrays is 210 bins each side, well
// past the per-call bin walk most swaps take before exhausting input).
const DLMMSearchArrays = 3

// Dependencies is the exact set of account pubkeys (or array indices,
// for tick/bin arrays addressed by start index) a pool needs resident
// before it is simulation-ready.
type Dependencies struct {
	Vaults          []pubkey.Pubkey
	Configs         []pubkey.Pubkey
	TickArrayStarts []int32 // CLMM only
	BinArrayIndices []int64 // DLMM only
}

// Empty reports whether the pool has no dependencies at all (never
// true for a known venue, but guards against an unrecognized Kind).
func (d Dependencies) Empty() bool {
	return len(d.Vaults) == 0 && len(d.Configs) == 0 && len(d.TickArrayStarts) == 0 && len(d.BinArrayIndices) == 0
}

// DeriveDependencies computes a pool's dependency set per the
// derivation rules in spec.md §4.2.
func DeriveDependencies(pool domain.Pool) Dependencies {
	switch pool.Kind {
	case domain.PoolKindCPMM:
		c := pool.CPMM
		deps := Dependencies{Vaults: []pubkey.Pubkey{c.BaseVault, c.QuoteVault}}
		if !c.GlobalConfig.IsZero() {
			deps.Configs = []pubkey.Pubkey{c.GlobalConfig}
		}
		return deps
	case domain.PoolKindBondingCurve:
		b := pool.BondingCurve
		if !b.GlobalConfig.IsZero() {
			return Dependencies{Configs: []pubkey.Pubkey{b.GlobalConfig}}
		}
		return Dependencies{}
	case domain.PoolKindCLMM:
		c := pool.CLMM
		return Dependencies{
			Vaults:          []pubkey.Pubkey{c.Vault0, c.Vault1},
			Configs:         []pubkey.Pubkey{c.AmmConfig},
			TickArrayStarts: bracketTickArrayStarts(c.TickCurrent, c.TickSpacing),
		}
	case domain.PoolKindDLMM:
		d := pool.DLMM
		return Dependencies{
			Vaults:          []pubkey.Pubkey{d.ReserveX, d.ReserveY},
			BinArrayIndices: bracketBinArrayIndices(d.ActiveID),
		}
	default:
		return Dependencies{}
	}
}

// bracketTickArrayStarts returns the 7 tick-array start indices (the
// multiples of 60*tick_spacing bracketing tick_current at ±3 arrays).
func bracketTickArrayStarts(tickCurrent int32, tickSpacing uint16) []int32 {
	span := int32(domain.TickArraySize) * int32(tickSpacing)
	if span <= 0 {
		return nil
	}
	currentStart := floorDiv(tickCurrent, span) * span
	starts := make([]int32, 0, 7)
	for i := int32(-3); i <= 3; i++ {
		starts = append(starts, currentStart+i*span)
	}
	return starts
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// bracketBinArrayIndices returns the bin-array indices within
// ±DLMMSearchArrays of active_id's own array.
func bracketBinArrayIndices(activeID int32) []int64 {
	centerIndex, _ := domain.BinArrayIndex(int64(activeID))
	indices := make([]int64, 0, 2*DLMMSearchArrays+1)
	for i := -DLMMSearchArrays; i <= DLMMSearchArrays; i++ {
		indices = append(indices, centerIndex+int64(i))
	}
	return indices
}
