// Package dlmm implements MeteoraDLMM's discrete-bin swap kernel
// (spec.md §4.4.3): a Q64 per-bin price ladder and a dynamic,
// volatility-scaled fee, both computed on math/big for the same
// overflow-safety reason as the clmm kernel.
package dlmm

import "math/big"

var q64 = new(big.Int).Lsh(big.NewInt(1), 64)
var q128 = new(big.Int).Lsh(big.NewInt(1), 128)

const binStepDenominator = 10_000

// PriceQ64 computes (1 + bin_step/10_000)^bin_id in Q64 fixed point via
// exponentiation by squaring (spec.md §4.4.3, §9: "no floating point").
// Negative bin_id inverts through Q128/base^|bin_id|, matching the
// CLMM kernel's symmetric negative-tick handling.
func PriceQ64(binID int32, binStep uint16) *big.Int {
	base := new(big.Int).Lsh(big.NewInt(int64(binStepDenominator)+int64(binStep)), 64)
	base.Quo(base, big.NewInt(binStepDenominator))

	abs := binID
	if abs < 0 {
		abs = -abs
	}

	result := new(big.Int).Lsh(big.NewInt(1), 64)
	squaring := base
	exp := uint32(abs)
	for exp > 0 {
		if exp&1 == 1 {
			result = mulQ64(result, squaring)
		}
		squaring = mulQ64(squaring, squaring)
		exp >>= 1
	}

	if binID < 0 {
		result = new(big.Int).Quo(q128, result)
	}
	return result
}

func mulQ64(a, b *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	return prod.Rsh(prod, 64)
}

// BinIDFromPriceQ64 is the integer binary search inverse of PriceQ64,
// symmetric to the CLMM kernel's SqrtPriceX64ToTick (spec.md §4.4.3:
// "bin_id_from_price_q64 is an integer binary search symmetric to
// CLMM").
func BinIDFromPriceQ64(price *big.Int, binStep uint16, minBinID, maxBinID int32) (int32, error) {
	lo, hi := minBinID, maxBinID
	loPrice := PriceQ64(lo, binStep)
	if price.Cmp(loPrice) < 0 {
		return 0, errPriceRange()
	}
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		midPrice := PriceQ64(mid, binStep)
		if midPrice.Cmp(price) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
