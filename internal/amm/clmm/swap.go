package clmm

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

// FeeRateDenominator is Raydium CLMM's fixed-point denominator for
// AmmConfig.TradeFeeRate (parts per 1,000,000). Not present anywhere
// in the retrieved teacher sources (FEE_RATE_DENOMINATOR is referenced
// but never declared there); this is the venue's published constant.
const FeeRateDenominator = 1_000_000

// maxSwapSteps bounds the tick-crossing loop (spec.md §4.4.2: "cap
// iterations, e.g. at 100, and return an error rather than loop
// forever").
const maxSwapSteps = 100

// TickArrays holds the bracketed tick arrays the caller looked up from
// the topology oracle's derivation (spec.md §4.2), keyed by
// StartTickIndex.
type TickArrays map[int32]domain.TickArray

// nextInitializedTick scans the loaded tick arrays for the closest
// initialized tick strictly beyond currentTick in the swap direction.
// Returns found=false when the search exhausts all loaded arrays,
// signalling the simulator ran past its bracketed dependency set.
func nextInitializedTick(arrays TickArrays, tickSpacing uint16, currentTick int32, zeroForOne bool) (domain.Tick, bool) {
	var best *domain.Tick
	bestIdx := currentTick
	found := false

	for _, arr := range arrays {
		for i := range arr.Ticks {
			t := arr.Ticks[i]
			if !t.Initialized {
				continue
			}
			if zeroForOne {
				if t.Index < currentTick && (!found || t.Index > bestIdx) {
					best, bestIdx, found = &arr.Ticks[i], t.Index, true
				}
			} else {
				if t.Index > currentTick && (!found || t.Index < bestIdx) {
					best, bestIdx, found = &arr.Ticks[i], t.Index, true
				}
			}
		}
	}
	if !found {
		return domain.Tick{}, false
	}
	return *best, true
}

// Swap simulates one exact-input swap through a CLMM pool, crossing
// ticks as liquidity is exhausted, grounded on the teacher's
// swapStepCompute loop in clmm_tickerarray.go.
func Swap(p *domain.CLMM, cfg *domain.AmmConfig, arrays TickArrays, dir amm.Direction, amountIn uint64) (amm.Result, domain.CLMM) {
	if amountIn == 0 || p.Liquidity.IsZero() {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}

	zeroForOne := dir.ZeroForOne()
	startSqrtPrice := p.SqrtPriceX64.Big()
	sqrtPrice := p.SqrtPriceX64.Big()
	liquidity := p.Liquidity.Big()
	tickCurrent := p.TickCurrent
	remaining := new(big.Int).SetUint64(amountIn)
	totalOut := new(big.Int)
	totalFee := new(big.Int)

	feeRate := big.NewInt(int64(FeeRateDenominator))
	feeNum := big.NewInt(int64(FeeRateDenominator))
	if cfg != nil {
		feeNum = new(big.Int).SetUint64(uint64(cfg.TradeFeeRate))
	} else {
		feeNum = big.NewInt(0)
	}

	for step := 0; step < maxSwapSteps && remaining.Sign() > 0; step++ {
		boundTick, hasNext := nextInitializedTick(arrays, p.TickSpacing, tickCurrent, zeroForOne)
		var boundPrice *big.Int
		var err error
		if hasNext {
			boundPrice, err = TickToSqrtPriceX64(boundTick.Index)
		} else {
			lim := MaxTick
			if zeroForOne {
				lim = MinTick
			}
			boundPrice, err = TickToSqrtPriceX64(int32(lim))
		}
		if err != nil {
			return amm.Result{Error: err}, *p
		}

		feeAmount := mulDivCeil(remaining, feeNum, feeRate)
		inAfterFee := new(big.Int).Sub(remaining, feeAmount)

		targetSqrtPrice := nextSqrtPriceFromInput(sqrtPrice, liquidity, inAfterFee, zeroForOne)
		reachedBound := false
		if zeroForOne {
			if targetSqrtPrice.Cmp(boundPrice) <= 0 {
				targetSqrtPrice = boundPrice
				reachedBound = true
			}
		} else {
			if targetSqrtPrice.Cmp(boundPrice) >= 0 {
				targetSqrtPrice = boundPrice
				reachedBound = true
			}
		}

		var consumedIn, stepOut *big.Int
		if zeroForOne {
			consumedIn = amount0Delta(targetSqrtPrice, sqrtPrice, liquidity, true)
			stepOut = amount1Delta(targetSqrtPrice, sqrtPrice, liquidity, false)
		} else {
			consumedIn = amount1Delta(sqrtPrice, targetSqrtPrice, liquidity, true)
			stepOut = amount0Delta(sqrtPrice, targetSqrtPrice, liquidity, false)
		}
		if consumedIn.Cmp(inAfterFee) > 0 {
			consumedIn = inAfterFee
		}
		stepFee := mulDivCeil(consumedIn, feeNum, new(big.Int).Sub(feeRate, feeNum))

		totalOut.Add(totalOut, stepOut)
		totalFee.Add(totalFee, stepFee)
		remaining.Sub(remaining, new(big.Int).Add(consumedIn, stepFee))
		if remaining.Sign() < 0 {
			remaining.SetInt64(0)
		}

		sqrtPrice = targetSqrtPrice
		if reachedBound && hasNext {
			if zeroForOne {
				liquidity = new(big.Int).Sub(liquidity, boundTick.LiquidityNet.BigInt())
			} else {
				liquidity = new(big.Int).Add(liquidity, boundTick.LiquidityNet.BigInt())
			}
			if liquidity.Sign() < 0 {
				liquidity.SetInt64(0)
			}
			if zeroForOne {
				tickCurrent = boundTick.Index - 1
			} else {
				tickCurrent = boundTick.Index
			}
		} else {
			tick, err := SqrtPriceX64ToTick(sqrtPrice)
			if err != nil {
				return amm.Result{Error: err}, *p
			}
			tickCurrent = tick
			break
		}
	}

	if remaining.Sign() > 0 {
		return amm.Result{Error: amm.ErrIterationCap}, *p
	}
	if totalOut.Sign() <= 0 {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}

	next := *p
	next.SqrtPriceX64 = uint128.FromBig(sqrtPrice)
	next.Liquidity = uint128.FromBig(liquidity)
	next.TickCurrent = tickCurrent

	return amm.Result{
		Success:        true,
		OutputAmount:   totalOut.Uint64(),
		PriceImpactBps: priceImpactBps(startSqrtPrice, sqrtPrice),
		FeePaid:        totalFee.Uint64(),
	}, next
}

// bpsDenominator is basis-point scale (1/10000), matching cpmm's.
const bpsDenominator = 10_000

// priceImpactBps compares the pre- and post-swap marginal price
// (sqrtPriceX64^2, the 2^128 scale cancels in the ratio) in basis
// points, mirroring cpmm.PriceImpactBps.
func priceImpactBps(preSqrtPrice, postSqrtPrice *big.Int) int64 {
	preP := new(big.Int).Mul(preSqrtPrice, preSqrtPrice)
	if preP.Sign() == 0 {
		return 0
	}
	postP := new(big.Int).Mul(postSqrtPrice, postSqrtPrice)
	diff := new(big.Int).Sub(preP, postP)
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(bpsDenominator))
	return diff.Quo(diff, preP).Int64()
}
