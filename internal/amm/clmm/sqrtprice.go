// Package clmm implements the concentrated-liquidity (Q64 sqrt-price)
// swap kernel shared by RaydiumCLMM-style pools (spec.md §4.4.2). All
// arithmetic runs on math/big so intermediate products never overflow
// a fixed machine word, per spec.md §9's 256-bit-intermediate rule.
package clmm

import "math/big"

// MinTick and MaxTick bound a valid tick_current (spec.md §3 invariant 4).
const (
	MinTick = -443636
	MaxTick = 443636
)

var q64 = new(big.Int).Lsh(big.NewInt(1), 64)
var q128 = new(big.Int).Lsh(big.NewInt(1), 128)

// ratios is the precomputed table of 19 Q64 multipliers used to build
// tick_to_sqrt_price_q64 by binary decomposition of the tick's
// absolute value (spec.md §4.4.2, §9). Ground-truthed against the
// teacher's getSqrtPriceX64FromTick table.
var ratios = mustBigInts([]string{
	"18445821805675395072", // bit 0
	"18444899583751176192", // bit 1
	"18443055278223355904", // bit 2
	"18439367220385607680", // bit 3
	"18431993317065453568", // bit 4
	"18417254355718170624", // bit 5
	"18387811781193609216", // bit 6
	"18329067761203558400", // bit 7
	"18212142134806163456", // bit 8
	"17980523815641700352", // bit 9
	"17526086738831433728", // bit 10
	"16651378430235570176", // bit 11
	"15030750278694412288", // bit 12
	"12247334978884435968", // bit 13
	"8131365268886854656",  // bit 14
	"3584323654725218816",  // bit 15
	"696457651848324352",   // bit 16
	"26294789957507116",    // bit 17
	"37481735321082",       // bit 18
})

var baseRatioEven = mustBigInt("18446744073709551616") // 2^64, even-tick base

func mustBigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("clmm: bad big.Int literal " + s)
	}
	return n
}

func mustBigInts(ss []string) []*big.Int {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		out[i] = mustBigInt(s)
	}
	return out
}

// TickToSqrtPriceX64 computes the Q64 sqrt-price for a tick via
// exponentiation by squaring over the precomputed ratio table
// (spec.md §4.4.2). The table's factors are all below 2^64, so their
// product is the sqrt-price of -|tick|; positive ticks are then
// inverted via 2^128 / ratio.
func TickToSqrtPriceX64(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, errTickRange(tick)
	}
	abs := tick
	if abs < 0 {
		abs = -abs
	}

	ratio := new(big.Int).Set(baseRatioEven)
	if abs&0x1 != 0 {
		ratio.Set(ratios[0])
	}
	for i := 1; i < len(ratios); i++ {
		bit := int32(1) << uint(i)
		if int32(abs)&bit != 0 {
			ratio = rightShift64(new(big.Int).Mul(ratio, ratios[i]))
		}
	}

	if tick > 0 {
		ratio = new(big.Int).Quo(q128, ratio)
	}
	return ratio, nil
}

func rightShift64(v *big.Int) *big.Int {
	return new(big.Int).Rsh(v, 64)
}

// SqrtPriceX64ToTick is the integer binary search over
// TickToSqrtPriceX64 spec.md §4.4.2 prescribes directly: find t such
// that tick_to_sqrt_price_q64(t) ≤ p < tick_to_sqrt_price_q64(t+1).
func SqrtPriceX64ToTick(price *big.Int) (int32, error) {
	lo, hi := int32(MinTick), int32(MaxTick)
	loPrice, err := TickToSqrtPriceX64(lo)
	if err != nil {
		return 0, err
	}
	if price.Cmp(loPrice) < 0 {
		return 0, errPriceRange()
	}
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		midPrice, err := TickToSqrtPriceX64(mid)
		if err != nil {
			return 0, err
		}
		if midPrice.Cmp(price) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
