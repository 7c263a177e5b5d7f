// Package bonding implements PumpSwap's pre-graduation bonding-curve
// kernel: the same constant-product formula as cpmm, applied to
// virtual+real reserves combined additively (spec.md §4.4.1).
package bonding

import (
	"cosmossdk.io/math"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/amm/cpmm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

// DefaultFeeBps and CreatorFeeBps are PumpSwap's documented schedule
// (spec.md §4.4.1: "default 20+5 = 25 bps; 30 bps with creator fee").
const (
	DefaultFeeBps = 25
	CreatorFeeBps = 30
)

// FeeBps selects the applicable fee schedule for a bonding-curve swap.
func FeeBps(p *domain.BondingCurve) int64 {
	if !p.Creator.IsZero() {
		return CreatorFeeBps
	}
	return DefaultFeeBps
}

// Swap simulates one exact-input swap against a bonding curve,
// returning the post-swap real+virtual reserves. Virtual reserves are
// the curve's fixed initial offset and do not move; real reserves
// absorb the full delta, matching the on-chain settlement of actual
// token/SOL balances.
func Swap(p *domain.BondingCurve, dir amm.Direction, input uint64) (amm.Result, domain.BondingCurve) {
	if p.Complete {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}

	tokenReserve := p.VirtualTokenReserves.Add(p.RealTokenReserves)
	solReserve := p.VirtualSolReserves.Add(p.RealSolReserves)
	if !tokenReserve.IsPositive() || !solReserve.IsPositive() {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}

	fee := FeeBps(p)
	in := math.NewIntFromUint64(input)

	var reserveIn, reserveOut math.Int
	if dir == amm.BaseToQuote {
		reserveIn, reserveOut = tokenReserve, solReserve
	} else {
		reserveIn, reserveOut = solReserve, tokenReserve
	}

	out := cpmm.GetAmountOut(in, reserveIn, reserveOut, fee)
	if !out.IsPositive() || out.GTE(reserveOut) {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}

	inAfterFee := in.MulRaw(10_000 - fee).QuoRaw(10_000)
	feePaid := in.Sub(inAfterFee)
	newReserveIn := reserveIn.Add(in)
	newReserveOut := reserveOut.Sub(out)
	impactBps := cpmm.PriceImpactBps(reserveIn, reserveOut, newReserveIn, newReserveOut)

	next := *p
	if dir == amm.BaseToQuote {
		next.RealTokenReserves = p.RealTokenReserves.Add(in)
		next.RealSolReserves = p.RealSolReserves.Sub(out)
	} else {
		next.RealSolReserves = p.RealSolReserves.Add(in)
		next.RealTokenReserves = p.RealTokenReserves.Sub(out)
	}

	return amm.Result{
		Success:        true,
		OutputAmount:   out.Uint64(),
		PriceImpactBps: impactBps,
		FeePaid:        feePaid.Uint64(),
	}, next
}
