package dlmm

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

// minBinID and maxBinID bound a valid active_id (spec.md §3 invariant
// 5: "price exponent magnitude |active_id| ≤ 50000 is a validity
// gate").
const (
	minBinID = -50000
	maxBinID = 50000
)

// maxBinWalk bounds the per-bin walk loop (spec.md §4.4.3: "up to 1000
// bins").
const maxBinWalk = 1000

// BinArrays is the bracketed dependency set the topology oracle
// derived for this pool, keyed by array index (spec.md §4.2).
type BinArrays map[int64]domain.BinArray

func lookupBin(arrays BinArrays, binID int64) (domain.Bin, bool) {
	idx, offset := domain.BinArrayIndex(binID)
	arr, ok := arrays[idx]
	if !ok {
		return domain.Bin{}, false
	}
	return arr.Bins[offset], true
}

// storeBin writes bin back into its owning array in arrays. BinArray
// is stored by value in the map, so a bin fetched via lookupBin must
// be re-inserted through its array after mutation or the change is
// invisible to the next step and to the caller (spec.md §4.4.4).
func storeBin(arrays BinArrays, binID int64, bin domain.Bin) {
	idx, offset := domain.BinArrayIndex(binID)
	arr := arrays[idx]
	arr.Bins[offset] = bin
	arrays[idx] = arr
}

// outputForInput converts a net (post-fee) input amount to the output
// amount at a bin's price (spec.md §4.4.3: "output_y = input_x *
// price_q64 / 2^64" for swap_for_y, inverse for swap_for_x).
func outputForInput(netIn uint64, price *big.Int, swapForY bool) uint64 {
	in := new(big.Int).SetUint64(netIn)
	if swapForY {
		out := new(big.Int).Mul(in, price)
		out.Rsh(out, 64)
		return clampUint64(out)
	}
	out := new(big.Int).Lsh(in, 64)
	out.Quo(out, price)
	return clampUint64(out)
}

// netInputForOutput back-solves the net input that exactly produces
// out at a bin's price, ceil-rounded (spec.md §4.4.3: "when clipped,
// back-solve exact input_x consumed").
func netInputForOutput(out uint64, price *big.Int, swapForY bool) uint64 {
	o := new(big.Int).SetUint64(out)
	if swapForY {
		num := new(big.Int).Lsh(o, 64)
		return clampUint64(ceilQuo(num, price))
	}
	num := new(big.Int).Mul(o, price)
	return clampUint64(ceilQuo(num, q64))
}

func clampUint64(v *big.Int) uint64 {
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}

func ceilQuo(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func addU128(u uint128.Uint128, v uint64) uint128.Uint128 {
	return uint128.FromBig(new(big.Int).Add(u.Big(), new(big.Int).SetUint64(v)))
}

func subU128(u uint128.Uint128, v uint64) uint128.Uint128 {
	return uint128.FromBig(new(big.Int).Sub(u.Big(), new(big.Int).SetUint64(v)))
}

// Swap simulates one exact-input swap walking bins outward from
// active_id, grounded on the teacher's per-bin Swap/AdvanceActiveBin
// loop in pkg/pool/meteora/price.go.
func Swap(p *domain.DLMM, arrays BinArrays, dir amm.Direction, amountIn uint64) (amm.Result, domain.DLMM) {
	if amountIn == 0 {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}

	swapForY := dir.ZeroForOne()
	feeRate := TotalFeeRate(FeeParams{
		BaseFactor:         p.BaseFactor,
		BaseFeePowerFactor: p.BaseFeePowerFactor,
		BinStep:            p.BinStep,
		VariableFeeControl: p.VariableFeeControl,
		VolatilityAccum:    p.VolatilityAccum,
		MaxVolatilityAccum: p.MaxVolatilityAccum,
	})

	remaining := amountIn
	totalOut := uint64(0)
	totalFee := uint64(0)
	activeID := int64(p.ActiveID)
	startPrice := PriceQ64(int32(activeID), p.BinStep)
	steps := 0

	for steps < maxBinWalk && remaining > 0 {
		steps++
		if activeID < minBinID || activeID > maxBinID {
			break
		}
		bin, ok := lookupBin(arrays, activeID)
		if !ok {
			break
		}

		price := PriceQ64(int32(activeID), p.BinStep)
		var reserveOut uint64
		if swapForY {
			reserveOut = bin.AmountY.Big().Uint64()
		} else {
			reserveOut = bin.AmountX.Big().Uint64()
		}
		if reserveOut == 0 {
			if swapForY {
				activeID--
			} else {
				activeID++
			}
			continue
		}

		netMaxIn := netInputForOutput(reserveOut, price, swapForY)
		grossMaxIn := netMaxIn + FeeFromAmount(netMaxIn, feeRate)

		var consumed, out, fee uint64
		drained := false
		if remaining >= grossMaxIn && grossMaxIn > 0 {
			consumed, out, fee = grossMaxIn, reserveOut, grossMaxIn-netMaxIn
			drained = true
		} else {
			fee = FeeFromAmount(remaining, feeRate)
			netIn := remaining - fee
			out = outputForInput(netIn, price, swapForY)
			if out > reserveOut {
				out = reserveOut
			}
			consumed = remaining
		}

		netIn := consumed - fee
		if swapForY {
			bin.AmountX = addU128(bin.AmountX, netIn)
			bin.AmountY = subU128(bin.AmountY, out)
		} else {
			bin.AmountY = addU128(bin.AmountY, netIn)
			bin.AmountX = subU128(bin.AmountX, out)
		}
		storeBin(arrays, activeID, bin)

		totalOut += out
		totalFee += fee
		remaining -= consumed

		if !drained {
			break
		}
		if swapForY {
			activeID--
		} else {
			activeID++
		}
	}

	if totalOut == 0 {
		return amm.Result{Error: amm.ErrInsufficientLiquidity}, *p
	}
	if remaining > 0 && steps >= maxBinWalk {
		return amm.Result{Error: amm.ErrIterationCap}, *p
	}

	next := *p
	next.ActiveID = int32(activeID)
	endPrice := PriceQ64(int32(activeID), p.BinStep)

	return amm.Result{
		Success:        true,
		OutputAmount:   totalOut,
		PriceImpactBps: priceImpactBps(startPrice, endPrice),
		FeePaid:        totalFee,
	}, next
}

// priceImpactBps compares the pre- and post-swap bin price in basis
// points, mirroring cpmm.PriceImpactBps.
func priceImpactBps(prePrice, postPrice *big.Int) int64 {
	if prePrice.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(prePrice, postPrice)
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(10_000))
	return diff.Quo(diff, prePrice).Int64()
}
