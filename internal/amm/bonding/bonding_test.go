package bonding

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

func curve() *domain.BondingCurve {
	return &domain.BondingCurve{
		VirtualTokenReserves: math.NewInt(1_000_000_000),
		VirtualSolReserves:   math.NewInt(30_000_000_000),
		RealTokenReserves:    math.NewInt(500_000_000),
		RealSolReserves:      math.NewInt(0),
	}
}

func TestSwapBuyIncreasesSol(t *testing.T) {
	p := curve()
	result, next := Swap(p, amm.QuoteToBase, 1_000_000_000)
	require.True(t, result.Success)
	require.Greater(t, result.OutputAmount, uint64(0))
	require.True(t, next.RealSolReserves.GT(p.RealSolReserves))
	require.True(t, next.RealTokenReserves.LT(p.RealTokenReserves))
	require.Greater(t, result.PriceImpactBps, int64(0))
}

func TestSwapRejectsCompletedCurve(t *testing.T) {
	p := curve()
	p.Complete = true
	result, _ := Swap(p, amm.QuoteToBase, 1000)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Error, amm.ErrInsufficientLiquidity)
}
