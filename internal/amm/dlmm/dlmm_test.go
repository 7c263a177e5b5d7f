package dlmm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

func TestPriceQ64ZeroBinIsUnity(t *testing.T) {
	for _, step := range []uint16{1, 10, 25, 100, 500} {
		price := PriceQ64(0, step)
		require.Equal(t, q64.String(), price.String())
	}
}

func TestPriceQ64Symmetry(t *testing.T) {
	// price_q64(n, s) * price_q64(-n, s) ~= 2^128 within rounding (spec.md §8 property 4).
	for _, n := range []int32{1, 5, 100, 1000} {
		pos := PriceQ64(n, 10)
		neg := PriceQ64(-n, 10)
		product := new(big.Int).Mul(pos, neg)
		diff := new(big.Int).Sub(q128, product)
		diff.Abs(diff)
		// bounded epsilon: neg is 2^128/pos rounded down, i.e. within 1
		// ULP of the exact inverse, so the product falls short of 2^128
		// by less than pos (one ULP of neg scaled by pos)
		require.True(t, diff.Cmp(pos) < 0, "n=%d diff=%s", n, diff.String())
	}
}

func TestBinIDRoundTrip(t *testing.T) {
	for _, id := range []int32{0, 1, -1, 100, -100, 5000} {
		price := PriceQ64(id, 10)
		got, err := BinIDFromPriceQ64(price, 10, minBinID, maxBinID)
		require.NoError(t, err)
		require.Equal(t, id, got)
	}
}

func TestTotalFeeRateCapped(t *testing.T) {
	rate := TotalFeeRate(FeeParams{
		BaseFactor:         10000,
		BaseFeePowerFactor: 5,
		BinStep:            500,
		VariableFeeControl: 1_000_000,
		VolatilityAccum:    100000,
		MaxVolatilityAccum: 100000,
	})
	require.True(t, rate.Int64() <= MaxFeeRate)
}

func TestSwapCrossesBinWhenDrained(t *testing.T) {
	arrays := BinArrays{
		0: {
			Index: 0,
			Bins: func() [domain.BinArraySize]domain.Bin {
				var bins [domain.BinArraySize]domain.Bin
				_, off0 := domain.BinArrayIndex(0)
				bins[off0] = domain.Bin{AmountX: uint128.From64(1_000), AmountY: uint128.From64(1_000)}
				_, off1 := domain.BinArrayIndex(1)
				bins[off1] = domain.Bin{AmountX: uint128.From64(0), AmountY: uint128.From64(500)}
				return bins
			}(),
		},
	}

	p := &domain.DLMM{ActiveID: 0, BinStep: 10}
	result, next := Swap(p, arrays, amm.QuoteToBase, 2_000)
	require.True(t, result.Success)
	require.Greater(t, result.OutputAmount, uint64(0))
	require.NotEqual(t, p.ActiveID, next.ActiveID)
	require.Greater(t, result.PriceImpactBps, int64(0), "crossing a bin must register a nonzero price move")
}

func TestSwapWritesDepletedBinBackIntoArrays(t *testing.T) {
	arrays := BinArrays{
		0: {
			Index: 0,
			Bins: func() [domain.BinArraySize]domain.Bin {
				var bins [domain.BinArraySize]domain.Bin
				_, off0 := domain.BinArrayIndex(0)
				bins[off0] = domain.Bin{AmountX: uint128.From64(1_000), AmountY: uint128.From64(1_000)}
				return bins
			}(),
		},
	}

	p := &domain.DLMM{ActiveID: 0, BinStep: 10}
	result, _ := Swap(p, arrays, amm.QuoteToBase, 500)
	require.True(t, result.Success)

	bin, ok := lookupBin(arrays, 0)
	require.True(t, ok)
	require.Less(t, bin.AmountX.Big().Uint64(), uint64(1_000), "the consumed bin must be written back depleted")
}

func TestSwapSecondCallSeesBinDrainedByFirst(t *testing.T) {
	arrays := BinArrays{
		0: {
			Index: 0,
			Bins: func() [domain.BinArraySize]domain.Bin {
				var bins [domain.BinArraySize]domain.Bin
				_, off0 := domain.BinArrayIndex(0)
				bins[off0] = domain.Bin{AmountX: uint128.From64(1_000), AmountY: uint128.From64(1_000)}
				return bins
			}(),
		},
	}

	// First call fully drains bin 0's AmountX (the only bin present, so
	// the walk breaks once it crosses out of the array).
	p := &domain.DLMM{ActiveID: 0, BinStep: 10}
	first, _ := Swap(p, arrays, amm.QuoteToBase, 10_000)
	require.True(t, first.Success)

	// A second call starting fresh at bin 0 must see it already
	// exhausted, not the original 1,000 reserve, proving the first
	// call's mutation was written back into arrays.
	second, _ := Swap(&domain.DLMM{ActiveID: 0, BinStep: 10}, arrays, amm.QuoteToBase, 10)
	require.False(t, second.Success)
	require.ErrorIs(t, second.Error, amm.ErrInsufficientLiquidity)
}

func TestSwapNoLiquidityRejected(t *testing.T) {
	p := &domain.DLMM{ActiveID: 0, BinStep: 10}
	result, _ := Swap(p, BinArrays{}, amm.BaseToQuote, 100)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Error, amm.ErrInsufficientLiquidity)
}
