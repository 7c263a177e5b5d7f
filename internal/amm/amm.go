// Package amm defines the shared simulation-kernel contract spec.md
// §4.4 specifies: every venue kernel takes { pool_state, direction,
// input_amount } and returns { success, output_amount, new_pool_state,
// price_impact_bps, fee_paid, error }. Kernels in the cpmm, bonding,
// clmm, dlmm, and sequence subpackages all return this Result shape;
// this package holds only the contract, not venue math. Among the
// kernels, bonding reuses cpmm's formula and sequence dispatches to
// the other four; cpmm, clmm and dlmm import no other kernel.
package amm

import "errors"

// ErrInsufficientLiquidity is returned when effective reserves are
// exhausted or non-positive before a swap can proceed (spec.md §3
// invariant 3, §7).
var ErrInsufficientLiquidity = errors.New("insufficient_liquidity")

// ErrIterationCap is returned when a CLMM/DLMM swap loop exceeds its
// hard iteration cap without consuming the input (spec.md §4.4.2,
// §4.4.3, §7: "Exceeding the cap returns Unknown").
var ErrIterationCap = errors.New("unknown: iteration cap reached")

// Direction selects which side of the pool receives the input.
type Direction int

const (
	// BaseToQuote (CPMM/bonding) or ZeroForOne (CLMM/DLMM): input is
	// the pool's first-listed asset.
	BaseToQuote Direction = iota
	// QuoteToBase (CPMM/bonding) or OneForZero (CLMM/DLMM): input is
	// the pool's second-listed asset.
	QuoteToBase
)

// ZeroForOne reports whether d moves price in the "token0 in" direction.
func (d Direction) ZeroForOne() bool { return d == BaseToQuote }

// Result is the uniform kernel output spec.md §4.4 specifies.
type Result struct {
	Success        bool
	OutputAmount   uint64
	PriceImpactBps int64
	FeePaid        uint64
	Error          error
}
