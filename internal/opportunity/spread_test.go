package opportunity

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func testKey(b byte) pubkey.Pubkey {
	var k pubkey.Pubkey
	k[0] = b
	return k
}

func TestScanEmitsOpportunityAboveThreshold(t *testing.T) {
	d := NewSpreadDetector(55, 3*time.Second)
	token := testKey(1)

	d.Observe(PricePoint{TokenMint: token, Pool: testKey(10), Num: math.NewInt(100), Denom: math.NewInt(1)})
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(11), Num: math.NewInt(101), Denom: math.NewInt(1)})

	opps := d.Scan(time.Now())
	require.Len(t, opps, 1)
	require.Equal(t, token, opps[0].TokenMint)
}

func TestScanSkipsBelowThreshold(t *testing.T) {
	d := NewSpreadDetector(1000, 3*time.Second)
	token := testKey(1)
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(10), Num: math.NewInt(100), Denom: math.NewInt(1)})
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(11), Num: math.NewInt(101), Denom: math.NewInt(1)})

	require.Empty(t, d.Scan(time.Now()))
}

func TestScanSkipsSingleVenue(t *testing.T) {
	d := NewSpreadDetector(1, time.Second)
	token := testKey(1)
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(10), Num: math.NewInt(100), Denom: math.NewInt(1)})
	require.Empty(t, d.Scan(time.Now()))
}

func TestScanRejectsDecoderBugSpread(t *testing.T) {
	d := NewSpreadDetector(1, time.Second)
	token := testKey(1)
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(10), Num: math.NewInt(1), Denom: math.NewInt(1)})
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(11), Num: math.NewInt(1_000_000), Denom: math.NewInt(1)})
	require.Empty(t, d.Scan(time.Now()))
}

func TestScanHonorsCooldown(t *testing.T) {
	d := NewSpreadDetector(1, 3*time.Second)
	token := testKey(1)
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(10), Num: math.NewInt(100), Denom: math.NewInt(1)})
	d.Observe(PricePoint{TokenMint: token, Pool: testKey(11), Num: math.NewInt(200), Denom: math.NewInt(1)})

	now := time.Now()
	require.Len(t, d.Scan(now), 1)
	require.Empty(t, d.Scan(now.Add(time.Second)))
	require.Len(t, d.Scan(now.Add(4*time.Second)), 1)
}
