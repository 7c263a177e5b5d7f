package clmm

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

func TestTickSqrtPriceRoundTrip(t *testing.T) {
	for _, tick := range []int32{0, 1, -1, 100, -100, 10000, -10000, 443635, -443635} {
		price, err := TickToSqrtPriceX64(tick)
		require.NoError(t, err)

		got, err := SqrtPriceX64ToTick(price)
		require.NoError(t, err)
		require.Equal(t, tick, got)

		upper, err := TickToSqrtPriceX64(tick + 1)
		require.NoError(t, err)
		require.True(t, price.Cmp(upper) < 0)
	}
}

func TestTickToSqrtPriceMonotone(t *testing.T) {
	prev, err := TickToSqrtPriceX64(-1000)
	require.NoError(t, err)
	for tick := int32(-999); tick <= 1000; tick++ {
		cur, err := TickToSqrtPriceX64(tick)
		require.NoError(t, err)
		require.True(t, cur.Cmp(prev) > 0)
		prev = cur
	}
}

func TestTickRangeRejected(t *testing.T) {
	_, err := TickToSqrtPriceX64(MaxTick + 1)
	require.Error(t, err)
	_, err = TickToSqrtPriceX64(MinTick - 1)
	require.Error(t, err)
}

func intPtr(v int64) *math.Int {
	i := math.NewInt(v)
	return &i
}

func TestSwapSingleTickNoInitializedCrossing(t *testing.T) {
	sqrtPrice, err := TickToSqrtPriceX64(0)
	require.NoError(t, err)

	pool := &domain.CLMM{
		SqrtPriceX64: uint128.FromBig(sqrtPrice),
		Liquidity:    uint128.From64(1_000_000_000),
		TickCurrent:  0,
		TickSpacing:  60,
	}
	cfg := &domain.AmmConfig{TradeFeeRate: 2500}

	result, next := Swap(pool, cfg, TickArrays{}, amm.QuoteToBase, 1_000_000)
	require.True(t, result.Success)
	require.Greater(t, result.OutputAmount, uint64(0))
	require.Greater(t, result.FeePaid, uint64(0))
	require.NotEqual(t, pool.SqrtPriceX64, next.SqrtPriceX64)
	require.Greater(t, result.PriceImpactBps, int64(0))
}

func TestSwapCrossesInitializedTick(t *testing.T) {
	sqrtPrice, err := TickToSqrtPriceX64(0)
	require.NoError(t, err)

	arrays := TickArrays{
		0: {
			StartTickIndex: 0,
			Ticks: [domain.TickArraySize]domain.Tick{
				0: {Index: 60, Initialized: true, LiquidityNet: intPtr(-500_000_000), LiquidityGross: intPtr(500_000_000)},
			},
		},
	}

	pool := &domain.CLMM{
		SqrtPriceX64: uint128.FromBig(sqrtPrice),
		Liquidity:    uint128.From64(1_000_000_000),
		TickCurrent:  0,
		TickSpacing:  60,
	}
	cfg := &domain.AmmConfig{TradeFeeRate: 2500}

	result, next := Swap(pool, cfg, arrays, amm.QuoteToBase, 4_000_000)
	require.True(t, result.Success)
	// the price rose through tick 60, applying its liquidity_net
	require.Equal(t, uint128.From64(500_000_000), next.Liquidity)
	require.GreaterOrEqual(t, next.TickCurrent, int32(60))
}

func TestSwapZeroLiquidityRejected(t *testing.T) {
	pool := &domain.CLMM{SqrtPriceX64: uint128.From64(1 << 32), Liquidity: uint128.Zero}
	result, _ := Swap(pool, nil, TickArrays{}, amm.BaseToQuote, 100)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Error, amm.ErrInsufficientLiquidity)
}
