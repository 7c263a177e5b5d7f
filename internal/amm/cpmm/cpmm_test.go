package cpmm

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

func TestGetAmountOutMonotone(t *testing.T) {
	reserveIn := math.NewInt(1_000_000)
	reserveOut := math.NewInt(1_000)

	prev := math.ZeroInt()
	for _, in := range []int64{1, 10, 100, 1000, 10000, 100000} {
		out := GetAmountOut(math.NewInt(in), reserveIn, reserveOut, 25)
		require.True(t, out.GTE(prev))
		require.True(t, out.LT(reserveOut))
		prev = out
	}
}

func TestGetAmountInRoundTripZeroFee(t *testing.T) {
	reserveIn := math.NewInt(1_000_000)
	reserveOut := math.NewInt(1_000)
	x := math.NewInt(1000)

	out := GetAmountOut(x, reserveIn, reserveOut, 0)
	in := GetAmountIn(out, reserveIn, reserveOut, 0)
	require.True(t, in.LTE(x.AddRaw(1)))
}

func TestSwapExactInputRoundTrip(t *testing.T) {
	p := &domain.CPMM{LPFeeBps: 20, ProtocolFeeBps: 5}
	result, newBase, newQuote := Swap(p, 1_000_000, 1_000, amm.QuoteToBase, 100)
	require.True(t, result.Success)
	require.Greater(t, result.OutputAmount, uint64(0))
	require.Equal(t, uint64(1_100), newQuote.Uint64())
	require.Less(t, newBase.Uint64(), uint64(1_000_000))
}

func TestSwapInsufficientLiquidity(t *testing.T) {
	p := &domain.CPMM{LPFeeBps: 20, ProtocolFeeBps: 5}
	result, _, _ := Swap(p, 0, 0, amm.BaseToQuote, 100)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Error, amm.ErrInsufficientLiquidity)
}

func TestSwapWithPnLAccrual(t *testing.T) {
	p := &domain.CPMM{
		LPFeeBps: 20, ProtocolFeeBps: 5,
		HasPnLAccrual: true,
		PnLBase:       math.NewInt(100),
		PnLQuote:      math.ZeroInt(),
	}
	result, _, _ := Swap(p, 1_000_000, 1_000, amm.BaseToQuote, 1000)
	require.True(t, result.Success)
}
