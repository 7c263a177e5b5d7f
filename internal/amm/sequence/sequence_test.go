package sequence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/amm/dlmm"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func cpmmState(base, quote uint64) *PoolState {
	return &PoolState{
		Pool: domain.Pool{
			Kind: domain.PoolKindCPMM,
			CPMM: &domain.CPMM{LPFeeBps: 20, ProtocolFeeBps: 5},
		},
		BaseVault:  base,
		QuoteVault: quote,
	}
}

func dlmmState(reserveX, reserveY uint64) *PoolState {
	_, off := domain.BinArrayIndex(0)
	var bins [domain.BinArraySize]domain.Bin
	bins[off] = domain.Bin{AmountX: uint128.From64(reserveX), AmountY: uint128.From64(reserveY)}
	return &PoolState{
		Pool: domain.Pool{
			Kind: domain.PoolKindDLMM,
			DLMM: &domain.DLMM{ActiveID: 0, BinStep: 10, BaseFactor: 10_000},
		},
		BinArrays: dlmm.BinArrays{0: {Index: 0, Bins: bins}},
	}
}

func testKey(b byte) pubkey.Pubkey {
	var k pubkey.Pubkey
	k[0] = b
	return k
}

func TestMultiHopThreadsOutputIntoNextInput(t *testing.T) {
	poolA, poolB := testKey(1), testKey(2)
	states := map[pubkey.Pubkey]*PoolState{
		poolA: cpmmState(1_000_000, 1_000_000),
		poolB: cpmmState(1_000_000, 1_000_000),
	}

	results, err := Run([]Step{
		{Pool: poolA, Direction: amm.BaseToQuote, AmountIn: 10_000, ThreadFrom: NoThread},
		{Pool: poolB, Direction: amm.QuoteToBase, ThreadFrom: 0},
	}, states)

	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, results[0].Result.OutputAmount, results[1].Step.AmountIn)
	require.Greater(t, results[1].Result.OutputAmount, uint64(0))
}

func TestSandwichReplayIsNonCommutative(t *testing.T) {
	pool := testKey(7)

	// Victim's trade against the untouched pool, for comparison.
	baseline := map[pubkey.Pubkey]*PoolState{pool: cpmmState(1_000_000, 1_000_000)}
	baselineResults, err := Run([]Step{
		{Pool: pool, Direction: amm.QuoteToBase, AmountIn: 5_000, ThreadFrom: NoThread},
	}, baseline)
	require.NoError(t, err)

	// Frontrun moves price before the victim's same-sized trade lands,
	// then backrun sells the frontrun's exact acquisition back.
	sandwiched := map[pubkey.Pubkey]*PoolState{pool: cpmmState(1_000_000, 1_000_000)}
	results, err := Run([]Step{
		{Pool: pool, Direction: amm.QuoteToBase, AmountIn: 50_000, ThreadFrom: NoThread}, // frontrun
		{Pool: pool, Direction: amm.QuoteToBase, AmountIn: 5_000, ThreadFrom: NoThread},  // victim, same nominal input as baseline
		{Pool: pool, Direction: amm.BaseToQuote, ThreadFrom: 0},                          // backrun: sell exactly what frontrun bought
	}, sandwiched)

	require.NoError(t, err)
	require.Len(t, results, 3)
	// the victim's output differs from the baseline purely because the
	// frontrun already moved reserves before the victim's step ran —
	// same nominal input, non-commutative result.
	require.NotEqual(t, baselineResults[0].Result.OutputAmount, results[1].Result.OutputAmount)
	require.Less(t, results[1].Result.OutputAmount, baselineResults[0].Result.OutputAmount)
}

func TestBackRunRoundTrip(t *testing.T) {
	pool := testKey(9)
	states := map[pubkey.Pubkey]*PoolState{pool: cpmmState(1_000_000, 1_000_000)}

	results, err := Run([]Step{
		{Pool: pool, Direction: amm.QuoteToBase, AmountIn: 10_000, ThreadFrom: NoThread}, // enter with quote
		{Pool: pool, Direction: amm.BaseToQuote, ThreadFrom: 0},                          // exit with base
	}, states)
	require.NoError(t, err)
	// round trip loses value to fees: exit quote < entry quote
	require.Less(t, results[1].Result.OutputAmount, uint64(10_000))
}

func TestDLMMBackRunRoundTripThreadsBinDepletion(t *testing.T) {
	pool := testKey(11)
	state := dlmmState(100_000, 100_000)
	states := map[pubkey.Pubkey]*PoolState{pool: state}

	results, err := Run([]Step{
		{Pool: pool, Direction: amm.QuoteToBase, AmountIn: 10_000, ThreadFrom: NoThread},
		{Pool: pool, Direction: amm.BaseToQuote, ThreadFrom: 0},
	}, states)
	require.NoError(t, err)
	require.True(t, results[0].Result.Success)
	require.True(t, results[1].Result.Success)
	// round trip loses value to fees
	require.Less(t, results[1].Result.OutputAmount, uint64(10_000))

	// the entry leg's consumption must be visible in BinArrays by the
	// time the exit leg runs against the same bin.
	bin, ok := state.BinArrays[0]
	require.True(t, ok)
	_, off := domain.BinArrayIndex(0)
	require.NotEqual(t, uint64(100_000), bin.Bins[off].AmountX.Big().Uint64())
	require.NotEqual(t, uint64(100_000), bin.Bins[off].AmountY.Big().Uint64())
}

func TestRunUnknownPool(t *testing.T) {
	_, err := Run([]Step{{Pool: testKey(99), AmountIn: 1, ThreadFrom: NoThread}}, map[pubkey.Pubkey]*PoolState{})
	require.ErrorIs(t, err, ErrUnknownPool)
}

func TestRunInvalidThreadFrom(t *testing.T) {
	pool := testKey(3)
	states := map[pubkey.Pubkey]*PoolState{pool: cpmmState(1_000_000, 1_000_000)}
	_, err := Run([]Step{{Pool: pool, AmountIn: 1, ThreadFrom: 5}}, states)
	require.Error(t, err)
}
