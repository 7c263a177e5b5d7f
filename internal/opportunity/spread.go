// Package opportunity implements the two detector modes spec.md §4.5
// specifies: a scheduled cross-venue spread scan and a pending-tx
// driven back-run search. Both run on the hot-path role and never
// block (spec.md §5).
package opportunity

import (
	"time"

	"cosmossdk.io/math"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// maxSpreadBps rejects a spread as a decoder-bug guard rather than a
// genuine dislocation (spec.md §4.5: "Reject spreads > 10_000 bps").
const maxSpreadBps = 10_000

// PricePoint is one venue's current spot price for a token, expressed
// as a ratio to avoid floating point in the hot path (spec.md §9).
type PricePoint struct {
	TokenMint pubkey.Pubkey
	Pool      pubkey.Pubkey
	Num       math.Int
	Denom     math.Int
	Slot      uint64
}

// SpreadOpportunity is one emitted cross-venue dislocation.
type SpreadOpportunity struct {
	TokenMint   pubkey.Pubkey
	HighPool    PricePoint
	LowPool     PricePoint
	SpreadBps   int64
}

// SpreadDetector tracks the latest price per (token, pool) and applies
// a per-token cooldown between emitted opportunities (spec.md §4.5).
type SpreadDetector struct {
	minSpreadBps int64
	cooldown     time.Duration

	prices     map[pubkey.Pubkey]map[pubkey.Pubkey]PricePoint // token -> pool -> price
	lastEmitAt map[pubkey.Pubkey]time.Time
}

// NewSpreadDetector constructs a detector gated at minSpreadBps with
// the given per-token cooldown.
func NewSpreadDetector(minSpreadBps int64, cooldown time.Duration) *SpreadDetector {
	return &SpreadDetector{
		minSpreadBps: minSpreadBps,
		cooldown:     cooldown,
		prices:       make(map[pubkey.Pubkey]map[pubkey.Pubkey]PricePoint),
		lastEmitAt:   make(map[pubkey.Pubkey]time.Time),
	}
}

// Observe records pool's current price for token.
func (d *SpreadDetector) Observe(p PricePoint) {
	byPool, ok := d.prices[p.TokenMint]
	if !ok {
		byPool = make(map[pubkey.Pubkey]PricePoint)
		d.prices[p.TokenMint] = byPool
	}
	byPool[p.Pool] = p
}

// Scan computes the spread for every token seen on ≥2 venues as of
// now, honoring each token's emission cooldown, and returns the
// opportunities that clear min_candidate_spread_bps.
func (d *SpreadDetector) Scan(now time.Time) []SpreadOpportunity {
	var out []SpreadOpportunity

	for token, byPool := range d.prices {
		if len(byPool) < 2 {
			continue
		}
		if last, ok := d.lastEmitAt[token]; ok && now.Sub(last) < d.cooldown {
			continue
		}

		var high, low PricePoint
		first := true
		for _, p := range byPool {
			if first {
				high, low = p, p
				first = false
				continue
			}
			if greater(p, high) {
				high = p
			}
			if greater(low, p) {
				low = p
			}
		}

		spread, ok := spreadBps(high, low)
		if !ok || spread > maxSpreadBps {
			continue
		}
		if spread < d.minSpreadBps {
			continue
		}

		out = append(out, SpreadOpportunity{
			TokenMint: token,
			HighPool:  high,
			LowPool:   low,
			SpreadBps: spread,
		})
		d.lastEmitAt[token] = now
	}

	return out
}

// greater reports whether a's price (num/denom) exceeds b's, via
// cross-multiplication to avoid any floating-point division.
func greater(a, b PricePoint) bool {
	lhs := a.Num.Mul(b.Denom)
	rhs := b.Num.Mul(a.Denom)
	return lhs.GT(rhs)
}

// spreadBps computes (max-min)*10000/min via cross-multiplied integer
// ratios (spec.md §4.5). Returns ok=false if min's price is zero.
func spreadBps(high, low PricePoint) (int64, bool) {
	if low.Num.IsZero() || low.Denom.IsZero() {
		return 0, false
	}
	// spread = (high.Num/high.Denom − low.Num/low.Denom) / (low.Num/low.Denom) * 10_000
	//        = (high.Num*low.Denom − low.Num*high.Denom) * 10_000 / (high.Denom*low.Num)
	diff := high.Num.Mul(low.Denom).Sub(low.Num.Mul(high.Denom))
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	denominator := high.Denom.Mul(low.Num)
	if denominator.IsZero() {
		return 0, false
	}
	return diff.MulRaw(10_000).Quo(denominator).Int64(), true
}
