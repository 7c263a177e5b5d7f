package clmm

import "math/big"

// mulDivFloor and mulDivCeil compute floor(a*b/denom) and
// ceil(a*b/denom) over unbounded precision, ground-truthed on the
// teacher's mulDivFloor/mulDivCeil (clmm_tickerarray.go) which exist
// precisely because a*b overflows a u128 for realistic liquidity
// values.
func mulDivFloor(a, b, denom *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	return new(big.Int).Quo(prod, denom)
}

func mulDivCeil(a, b, denom *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	q, r := new(big.Int).QuoRem(prod, denom, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// amount0Delta is the token0 reserve change between two sqrt prices at
// a given liquidity, i.e. liquidity * (1/sqrtLower - 1/sqrtUpper) in
// Q64 fixed point, grounded on the teacher's
// getTokenAmountAFromLiquidity.
func amount0Delta(sqrtLower, sqrtUpper, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtLower.Cmp(sqrtUpper) > 0 {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}
	numerator1 := new(big.Int).Lsh(liquidity, 64)
	numerator2 := new(big.Int).Sub(sqrtUpper, sqrtLower)
	if roundUp {
		num := mulDivCeil(numerator1, numerator2, sqrtUpper)
		return ceilDiv(num, sqrtLower)
	}
	num := mulDivFloor(numerator1, numerator2, sqrtUpper)
	return new(big.Int).Quo(num, sqrtLower)
}

// amount1Delta is the token1 reserve change: liquidity * (sqrtUpper -
// sqrtLower) in Q64, grounded on getTokenAmountBFromLiquidity.
func amount1Delta(sqrtLower, sqrtUpper, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtLower.Cmp(sqrtUpper) > 0 {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}
	diff := new(big.Int).Sub(sqrtUpper, sqrtLower)
	if roundUp {
		return mulDivCeil(liquidity, diff, q64)
	}
	return mulDivFloor(liquidity, diff, q64)
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// nextSqrtPriceFromInput computes the post-swap sqrt price for an
// exact-input step, grounded on getNextSqrtPriceX64FromInput: solving
// the constant-product invariant L*sqrt(P) directly in the traded
// token's direction.
func nextSqrtPriceFromInput(sqrtPrice, liquidity *big.Int, amountIn *big.Int, zeroForOne bool) *big.Int {
	if zeroForOne {
		// token0 in: sqrtNext = L*sqrtP / (L + amountIn*sqrtP/2^64)
		product := mulDivFloor(amountIn, sqrtPrice, q64)
		denom := new(big.Int).Add(liquidity, product)
		if denom.Sign() == 0 {
			return sqrtPrice
		}
		return mulDivCeil(liquidity, sqrtPrice, denom)
	}
	// token1 in: sqrtNext = sqrtP + amountIn*2^64/L
	quotient := mulDivFloor(amountIn, q64, liquidity)
	return new(big.Int).Add(sqrtPrice, quotient)
}
