package main

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/config"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/logging"
	"github.com/solana-zh/arb-engine/internal/opportunity"
	"github.com/solana-zh/arb-engine/internal/pending"
	"github.com/solana-zh/arb-engine/internal/pubkey"
	"github.com/solana-zh/arb-engine/internal/submit"
)

func testRunner(t *testing.T) *hotpathRunner {
	t.Helper()
	c := cache.New()
	pq := pending.New(pending.DefaultConfig())
	cfg := config.Default()
	submitter := submit.New(noopTransport{}, submit.DefaultConfig())
	return newHotpathRunner(c, pq, cfg, logging.Noop(), nil, submitter, solana.PublicKey{})
}

func TestPriceOfCPMMUsesVaultReserves(t *testing.T) {
	h := testRunner(t)
	baseVault := pubkey.Pubkey{0x01}
	quoteVault := pubkey.Pubkey{0x02}
	baseMint := pubkey.Pubkey{0x03}
	quoteMint := pubkey.Pubkey{0x04}
	h.cache.Vaults.Put(baseVault, domain.Vault{Amount: 1_000_000}, domain.Version{Slot: 1}, cache.SourceCanonical)
	h.cache.Vaults.Put(quoteVault, domain.Vault{Amount: 2_000_000}, domain.Version{Slot: 1}, cache.SourceCanonical)

	pool := domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		BaseVault: baseVault, QuoteVault: quoteVault, BaseMint: baseMint, QuoteMint: quoteMint,
	}}

	mint, num, denom, ok := h.priceOf(pubkey.Pubkey{0x09}, pool)
	require.True(t, ok)
	require.Equal(t, baseMint, mint)
	require.Equal(t, int64(2_000_000), num.Int64())
	require.Equal(t, int64(1_000_000), denom.Int64())
}

func TestPriceOfCPMMSkipsPumpAMMShapedPool(t *testing.T) {
	h := testRunner(t)
	pool := domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		BaseVault: pubkey.Pubkey{0x01}, QuoteVault: pubkey.Pubkey{0x02},
	}}
	_, _, _, ok := h.priceOf(pubkey.Pubkey{0x09}, pool)
	require.False(t, ok, "a CPMM pool with no decoded mints must not be priced")
}

func TestPriceOfCPMMSkipsMissingVaults(t *testing.T) {
	h := testRunner(t)
	pool := domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		BaseVault: pubkey.Pubkey{0x01}, QuoteVault: pubkey.Pubkey{0x02},
		BaseMint: pubkey.Pubkey{0x03}, QuoteMint: pubkey.Pubkey{0x04},
	}}
	_, _, _, ok := h.priceOf(pubkey.Pubkey{0x09}, pool)
	require.False(t, ok)
}

func TestPriceOfCLMMSquaresSqrtPrice(t *testing.T) {
	h := testRunner(t)
	mint0 := pubkey.Pubkey{0x05}
	pool := domain.Pool{Kind: domain.PoolKindCLMM, CLMM: &domain.CLMM{
		TokenMint0: mint0,
	}}
	mint, num, denom, ok := h.priceOf(pubkey.Pubkey{0x09}, pool)
	require.True(t, ok)
	require.Equal(t, mint0, mint)
	// price = 0^2 / 2^128 = 0 for the zero-value sqrt price; the ratio
	// machinery itself (not the exact value) is what's under test here.
	require.Equal(t, int64(0), num.Int64())
	require.True(t, denom.IsPositive())
}

func TestPriceOfDLMMUsesPriceQ64(t *testing.T) {
	h := testRunner(t)
	mintX := pubkey.Pubkey{0x06}
	pool := domain.Pool{Kind: domain.PoolKindDLMM, DLMM: &domain.DLMM{
		TokenXMint: mintX, ActiveID: 0, BinStep: 10,
	}}
	mint, num, denom, ok := h.priceOf(pubkey.Pubkey{0x09}, pool)
	require.True(t, ok)
	require.Equal(t, mintX, mint)
	// ActiveID=0 means price ratio 1:1, so num should equal denom exactly.
	require.True(t, num.Equal(denom))
}

func TestPriceOfUnknownKind(t *testing.T) {
	h := testRunner(t)
	_, _, _, ok := h.priceOf(pubkey.Pubkey{0x09}, domain.Pool{Kind: domain.PoolKindUnknown})
	require.False(t, ok)
}

func TestActedDedupSuppressesRepeatedAttempts(t *testing.T) {
	h := testRunner(t)
	sig := "deadbeef"
	require.False(t, h.alreadyActed(sig))
	h.markActed(sig)
	require.True(t, h.alreadyActed(sig))
}

func TestPruneActedDropsNoLongerLiveSignatures(t *testing.T) {
	h := testRunner(t)
	h.markActed("live")
	h.markActed("gone")
	h.pruneActed(map[string]bool{"live": true})
	require.True(t, h.alreadyActed("live"))
	require.False(t, h.alreadyActed("gone"))
}

func TestPruneActedDropsExpiredEntriesEvenIfStillLive(t *testing.T) {
	h := testRunner(t)
	h.actedMu.Lock()
	h.acted["stale"] = time.Now().Add(-3 * actedTTL)
	h.actedMu.Unlock()
	h.pruneActed(map[string]bool{"stale": true})
	require.False(t, h.alreadyActed("stale"))
}

func TestCandidateSizesLamportsConvertsSOLToLamports(t *testing.T) {
	out := candidateSizesLamports([]float64{0.01, 1.0})
	require.Equal(t, []uint64{10_000_000, 1_000_000_000}, out)
}

func TestBuildAndSubmitSkipsWithoutSigner(t *testing.T) {
	h := testRunner(t)
	cpmm := &domain.CPMM{BaseMint: pubkey.Pubkey{0x01}, QuoteMint: pubkey.Pubkey{0x02}}
	// Should return without panicking even with no signer/authority/blockhash
	// configured; the only observable effect is a debug log.
	h.buildAndSubmit(context.Background(), pubkey.Pubkey{0x09}, cpmm, opportunity.BackRunCandidate{}, nil)
}

func TestBuildAndSubmitSkipsPumpAMMShapedPool(t *testing.T) {
	h := testRunner(t)
	h.setRaydiumCPMM(solana.PublicKey{0x10}, solana.PublicKey{0x11})
	cpmm := &domain.CPMM{} // BaseMint zero: PumpAMM-shaped
	h.buildAndSubmit(context.Background(), pubkey.Pubkey{0x09}, cpmm, opportunity.BackRunCandidate{}, nil)
}
