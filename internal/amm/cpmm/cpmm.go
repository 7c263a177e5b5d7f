// Package cpmm implements the constant-product swap kernel shared by
// RaydiumV4 and PumpSwap's post-graduation AMM pool (spec.md §4.4.1).
package cpmm

import (
	"cosmossdk.io/math"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

const bpsDenominator = 10_000

// GetAmountOut computes the constant-product output for an exact
// input, floor division throughout (spec.md §4.4.1).
func GetAmountOut(input, reserveIn, reserveOut math.Int, feeBps int64) math.Int {
	if input.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return math.ZeroInt()
	}
	inAfterFee := input.MulRaw(bpsDenominator - feeBps).QuoRaw(bpsDenominator)
	numerator := reserveOut.Mul(inAfterFee)
	denominator := reserveIn.Add(inAfterFee)
	return numerator.Quo(denominator)
}

// GetAmountIn is the symbolic inverse of GetAmountOut: the minimum
// input that produces at least output, derived algebraically and
// rounded up (ceil) so round-tripping never under-quotes.
func GetAmountIn(output, reserveIn, reserveOut math.Int, feeBps int64) math.Int {
	if output.IsZero() || reserveOut.LTE(output) {
		return math.ZeroInt()
	}
	numerator := reserveIn.Mul(output).MulRaw(bpsDenominator)
	denominator := reserveOut.Sub(output).MulRaw(bpsDenominator - feeBps)
	in := numerator.Quo(denominator)
	// ceil: bump by one if the division truncated a remainder
	if numerator.Mod(denominator).IsPositive() {
		in = in.AddRaw(1)
	}
	return in
}

// EffectiveFeeBps combines a CPMM pool's lp and protocol fee
// components, matching the venue-adapter rule in spec.md §4.4.1.
func EffectiveFeeBps(p *domain.CPMM) int64 {
	return p.LPFeeBps + p.ProtocolFeeBps
}

// effectiveReserves subtracts a venue's PnL accrual from the raw vault
// balance, per spec.md §3: "Effective reserves = vault balance − pnl
// accrual (venue-specific)."
func effectiveReserves(p *domain.CPMM, baseVault, quoteVault math.Int) (base, quote math.Int) {
	base, quote = baseVault, quoteVault
	if p.HasPnLAccrual {
		base = base.Sub(p.PnLBase)
		quote = quote.Sub(p.PnLQuote)
	}
	return base, quote
}

// Swap simulates one exact-input swap against a CPMM pool's current
// vault balances, returning the uniform amm.Result plus the pool's
// post-swap effective reserves (base, quote) for the caller to fold
// into a multi-step simulation.
func Swap(p *domain.CPMM, baseVault, quoteVault uint64, dir amm.Direction, input uint64) (amm.Result, math.Int, math.Int) {
	base, quote := effectiveReserves(p, math.NewIntFromUint64(baseVault), math.NewIntFromUint64(quoteVault))
	if !base.IsPositive() || !quote.IsPositive() {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, base, quote
	}

	fee := EffectiveFeeBps(p)
	in := math.NewIntFromUint64(input)

	var reserveIn, reserveOut math.Int
	if dir == amm.BaseToQuote {
		reserveIn, reserveOut = base, quote
	} else {
		reserveIn, reserveOut = quote, base
	}

	out := GetAmountOut(in, reserveIn, reserveOut, fee)
	if !out.IsPositive() || out.GTE(reserveOut) {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, base, quote
	}

	inAfterFee := in.MulRaw(bpsDenominator - fee).QuoRaw(bpsDenominator)
	feePaid := in.Sub(inAfterFee)

	newReserveIn := reserveIn.Add(in)
	newReserveOut := reserveOut.Sub(out)

	impactBps := PriceImpactBps(reserveIn, reserveOut, newReserveIn, newReserveOut)

	var newBase, newQuote math.Int
	if dir == amm.BaseToQuote {
		newBase, newQuote = newReserveIn, newReserveOut
	} else {
		newBase, newQuote = newReserveOut, newReserveIn
	}

	return amm.Result{
		Success:        true,
		OutputAmount:   out.Uint64(),
		PriceImpactBps: impactBps,
		FeePaid:        feePaid.Uint64(),
	}, newBase, newQuote
}

// PriceImpactBps compares the pre- and post-swap marginal price
// (reserveOut/reserveIn) in basis points. Shared with bonding, whose
// curve reduces to this same constant-product formula over combined
// virtual+real reserves.
func PriceImpactBps(preIn, preOut, postIn, postOut math.Int) int64 {
	if preIn.IsZero() || postIn.IsZero() {
		return 0
	}
	// price = reserveOut/reserveIn, scaled by 1e9 to keep integer precision
	const scale = 1_000_000_000
	preScaled := preOut.MulRaw(scale).Quo(preIn)
	postScaled := postOut.MulRaw(scale).Quo(postIn)
	if preScaled.IsZero() {
		return 0
	}
	diff := preScaled.Sub(postScaled)
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	return diff.MulRaw(bpsDenominator).Quo(preScaled).Int64()
}
