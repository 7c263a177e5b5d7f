package main

import (
	"context"
	"math/big"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/arb-engine/internal/amm/dlmm"
	"github.com/solana-zh/arb-engine/internal/bundle"
	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/config"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/metrics"
	"github.com/solana-zh/arb-engine/internal/opportunity"
	"github.com/solana-zh/arb-engine/internal/pending"
	"github.com/solana-zh/arb-engine/internal/pubkey"
	"github.com/solana-zh/arb-engine/internal/submit"
)

// spreadScanInterval is independent of the per-token cooldown the
// detector itself applies — it just bounds how often prices are
// resampled off the cache.
const spreadScanInterval = 500 * time.Millisecond

const backrunScanInterval = 50 * time.Millisecond

// actedTTL bounds how long a pending-tx signature is remembered as
// "already acted on", so a signature that never confirms or expires
// from the pending queue (a dropped RPC notification, say) doesn't
// hold its dedup entry forever.
const actedTTL = 2 * time.Minute

// hotpathRunner owns both detector loops described in spec.md §4.5: a
// scheduled cross-venue spread scan (log-only, no bundle is grounded
// for cross-venue execution here) and a pending-tx driven back-run
// search that does build and submit a bundle.
type hotpathRunner struct {
	cache   *cache.Cache
	pending *pending.Queue
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Registry

	spread    *opportunity.SpreadDetector
	submitter *submit.Submitter

	signer    solana.PrivateKey
	hasSigner bool

	raydiumCPMMProgram      solana.PublicKey
	hasRaydiumCPMMProgram   bool
	raydiumCPMMAuthority    solana.PublicKey
	hasRaydiumCPMMAuthority bool

	tipAccount solana.PublicKey

	blockhashMu  sync.RWMutex
	blockhash    solana.Hash
	hasBlockhash bool

	actedMu sync.Mutex
	acted   map[string]time.Time
}

func newHotpathRunner(c *cache.Cache, pq *pending.Queue, cfg config.Config, log *zap.Logger, m *metrics.Registry, submitter *submit.Submitter, tipAccount solana.PublicKey) *hotpathRunner {
	return &hotpathRunner{
		cache:      c,
		pending:    pq,
		cfg:        cfg,
		log:        log,
		metrics:    m,
		spread:     opportunity.NewSpreadDetector(cfg.MinCandidateSpreadBps, cfg.PriceCheckCooldown),
		submitter:  submitter,
		tipAccount: tipAccount,
		acted:      make(map[string]time.Time),
	}
}

// setSigner installs the keypair legs are signed with. Left uncalled,
// the runner still scans and logs opportunities but never builds or
// submits a bundle (observe-only deployments, spec.md §6).
func (h *hotpathRunner) setSigner(key solana.PrivateKey) {
	h.signer = key
	h.hasSigner = true
}

// setRaydiumCPMM installs RaydiumCPMM's program id and its program-wide
// vault-authority PDA. Left uncalled, RaydiumCPMM back-run legs are
// skipped rather than built against a guessed authority.
func (h *hotpathRunner) setRaydiumCPMM(programID, authority solana.PublicKey) {
	h.raydiumCPMMProgram = programID
	h.hasRaydiumCPMMProgram = true
	h.raydiumCPMMAuthority = authority
	h.hasRaydiumCPMMAuthority = true
}

func (h *hotpathRunner) setBlockhash(hash solana.Hash) {
	h.blockhashMu.Lock()
	defer h.blockhashMu.Unlock()
	h.blockhash = hash
	h.hasBlockhash = true
}

func (h *hotpathRunner) currentBlockhash() (solana.Hash, bool) {
	h.blockhashMu.RLock()
	defer h.blockhashMu.RUnlock()
	return h.blockhash, h.hasBlockhash
}

// runSpreadScan drives the cross-venue scheduled detector forever
// (spec.md §4.5, §5: "Opportunity scanner: on a fixed interval").
func (h *hotpathRunner) runSpreadScan(ctx context.Context) {
	ticker := time.NewTicker(spreadScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.observePrices()
			for _, opp := range h.spread.Scan(time.Now()) {
				h.log.Info("cross-venue spread",
					zap.String("token_mint", opp.TokenMint.String()),
					zap.String("high_pool", opp.HighPool.Pool.String()),
					zap.String("low_pool", opp.LowPool.Pool.String()),
					zap.Int64("spread_bps", opp.SpreadBps))
			}
		}
	}
}

// observePrices resamples every resident pool's current price into the
// detector (spec.md §4.5 step 1: "On each scheduled tick, read every
// tracked pool's current reserves/sqrt_price/active_bin").
func (h *hotpathRunner) observePrices() {
	h.cache.Pools.Range(func(key pubkey.Pubkey, pool domain.Pool, version domain.Version) bool {
		tokenMint, num, denom, ok := h.priceOf(key, pool)
		if !ok {
			return true
		}
		h.spread.Observe(opportunity.PricePoint{
			TokenMint: tokenMint,
			Pool:      key,
			Num:       num,
			Denom:     denom,
			Slot:      version.Slot,
		})
		return true
	})
}

// priceOf computes a cross-pool-comparable (num, denom) price ratio
// for pool, keyed by the token mint the ratio prices (spec.md §4.5,
// §9: cross-multiplied integer ratios, never floating point). Returns
// ok=false for any pool this engine can't yet price: a PumpSwap
// post-graduation CPMM pool with no decoded mints, or a pool whose
// vault balances haven't arrived yet.
func (h *hotpathRunner) priceOf(poolKey pubkey.Pubkey, pool domain.Pool) (pubkey.Pubkey, math.Int, math.Int, bool) {
	switch pool.Kind {
	case domain.PoolKindCPMM:
		if pool.CPMM == nil || pool.CPMM.BaseMint.IsZero() || pool.CPMM.QuoteMint.IsZero() {
			return pubkey.Pubkey{}, math.Int{}, math.Int{}, false
		}
		baseVault, _, ok1 := h.cache.Vaults.Get(pool.CPMM.BaseVault)
		quoteVault, _, ok2 := h.cache.Vaults.Get(pool.CPMM.QuoteVault)
		if !ok1 || !ok2 || baseVault.Amount == 0 {
			return pubkey.Pubkey{}, math.Int{}, math.Int{}, false
		}
		return pool.CPMM.BaseMint,
			math.NewIntFromUint64(quoteVault.Amount),
			math.NewIntFromUint64(baseVault.Amount),
			true

	case domain.PoolKindCLMM:
		if pool.CLMM == nil {
			return pubkey.Pubkey{}, math.Int{}, math.Int{}, false
		}
		sqrtPrice := pool.CLMM.SqrtPriceX64.Big()
		num := new(big.Int).Mul(sqrtPrice, sqrtPrice) // price = sqrt_price_x64^2 / 2^128
		denom := new(big.Int).Lsh(big.NewInt(1), 128)
		return pool.CLMM.TokenMint0, math.NewIntFromBigInt(num), math.NewIntFromBigInt(denom), true

	case domain.PoolKindDLMM:
		if pool.DLMM == nil {
			return pubkey.Pubkey{}, math.Int{}, math.Int{}, false
		}
		priceQ64 := dlmm.PriceQ64(pool.DLMM.ActiveID, pool.DLMM.BinStep)
		denom := new(big.Int).Lsh(big.NewInt(1), 64)
		return pool.DLMM.TokenXMint, math.NewIntFromBigInt(priceQ64), math.NewIntFromBigInt(denom), true

	default:
		return pubkey.Pubkey{}, math.Int{}, math.Int{}, false
	}
}

// runBackrun drives the pending-tx driven back-run search forever
// (spec.md §4.5 step 2: "On each pending-tx event carrying a CPMM swap
// leg", generalized here to a fast poll of the queue rather than a
// second fan-out off the ingest channel, since the queue is already
// the single place every decoded leg lands).
func (h *hotpathRunner) runBackrun(ctx context.Context) {
	ticker := time.NewTicker(backrunScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.scanPending(ctx)
		}
	}
}

func (h *hotpathRunner) scanPending(ctx context.Context) {
	txs := h.pending.GetOrdered()
	live := make(map[string]bool, len(txs))

	for _, tx := range txs {
		sigHex := tx.SignatureHex()
		live[sigHex] = true
		if h.alreadyActed(sigHex) {
			continue
		}
		for _, leg := range tx.DecodedLegs {
			if leg.Kind != domain.PoolKindCPMM {
				continue // only CPMM swap legs are decoded off a pending tx today
			}
			if h.tryBackrun(ctx, tx, leg) {
				h.markActed(sigHex)
				break
			}
		}
	}
	h.pruneActed(live)
}

func (h *hotpathRunner) alreadyActed(sigHex string) bool {
	h.actedMu.Lock()
	defer h.actedMu.Unlock()
	_, ok := h.acted[sigHex]
	return ok
}

func (h *hotpathRunner) markActed(sigHex string) {
	h.actedMu.Lock()
	defer h.actedMu.Unlock()
	h.acted[sigHex] = time.Now()
}

// pruneActed drops dedup entries for signatures no longer live in the
// pending queue (confirmed or expired) or older than actedTTL.
func (h *hotpathRunner) pruneActed(live map[string]bool) {
	h.actedMu.Lock()
	defer h.actedMu.Unlock()
	now := time.Now()
	for sigHex, at := range h.acted {
		if !live[sigHex] || now.Sub(at) > actedTTL {
			delete(h.acted, sigHex)
		}
	}
}

// tryBackrun runs the candidate search against one decoded leg and, if
// a profitable round trip is found, builds and submits a bundle.
// Reports whether it acted (found a candidate, win or lose on build).
func (h *hotpathRunner) tryBackrun(ctx context.Context, tx domain.PendingTx, leg domain.SwapLeg) bool {
	pool, _, ok := h.cache.Pools.Get(leg.Pool)
	if !ok || pool.CPMM == nil {
		return false
	}
	baseVault, _, ok1 := h.cache.Vaults.Get(pool.CPMM.BaseVault)
	quoteVault, _, ok2 := h.cache.Vaults.Get(pool.CPMM.QuoteVault)
	if !ok1 || !ok2 {
		return false
	}

	candidateSizes := candidateSizesLamports(h.cfg.CandidateSizesSOL)
	victim := opportunity.VictimLeg{
		Pool:           pool.CPMM,
		BaseVault:      baseVault.Amount,
		QuoteVault:     quoteVault.Amount,
		ZeroForOne:     leg.ZeroForOne,
		DeclaredAmount: leg.AmountIn,
		MaxInput:       leg.AmountIn,
	}
	params := opportunity.Params{
		CandidateSizesLamports: candidateSizes,
		SlippageBps:            h.cfg.SlippageBps,
		GasCostLamports:        0,
		TipLamports:            int64(h.cfg.TipLamports),
		MinProfitLamports:      h.cfg.MinProfitLamports,
	}

	candidate, found := opportunity.Search(victim, params)
	if !found {
		return false
	}
	if h.metrics != nil {
		h.metrics.SimSuccess.Inc()
	}
	h.log.Info("back-run candidate found",
		zap.String("pool", leg.Pool.String()),
		zap.String("victim_signature", tx.SignatureHex()),
		zap.Uint64("input_lamports", candidate.InputLamports),
		zap.Int64("net_profit_lamports", candidate.NetProfit))

	h.buildAndSubmit(ctx, leg.Pool, pool.CPMM, candidate, tx.RawTransaction)
	return true
}

// buildAndSubmit assembles a frontrun/backrun leg pair against pool and
// hands the resulting bundle to the submitter. Only RaydiumCPMM pools
// are bundle-built: bundle.BuildCPMMLeg's 13-account ordering is
// grounded on Raydium's own BuildSwapInstructions, and this engine has
// no grounded account ordering for PumpSwap's post-graduation AMM pool
// swap instruction, so a PumpAMM-shaped CPMM opportunity (BaseMint
// zero) is logged above but never reaches this function's bundle path.
func (h *hotpathRunner) buildAndSubmit(ctx context.Context, poolKey pubkey.Pubkey, cpmm *domain.CPMM, candidate opportunity.BackRunCandidate, victimRaw []byte) {
	if cpmm.BaseMint.IsZero() {
		h.log.Debug("skipping bundle: pool is not identifiably RaydiumCPMM", zap.String("pool", poolKey.String()))
		return
	}
	if !h.hasSigner {
		h.log.Debug("skipping bundle: no signer configured", zap.String("pool", poolKey.String()))
		return
	}
	if !h.hasRaydiumCPMMAuthority {
		h.log.Debug("skipping bundle: raydium cpmm authority not configured", zap.String("pool", poolKey.String()))
		return
	}
	blockhash, ok := h.currentBlockhash()
	if !ok {
		h.log.Debug("skipping bundle: no recent blockhash yet")
		return
	}

	payer := h.signer.PublicKey()
	baseMint := cpmm.BaseMint.ToSolana()
	quoteMint := cpmm.QuoteMint.ToSolana()
	baseATA, _, err := solana.FindAssociatedTokenAddress(payer, baseMint)
	if err != nil {
		h.log.Warn("derive base ata", zap.Error(err))
		return
	}
	quoteATA, _, err := solana.FindAssociatedTokenAddress(payer, quoteMint)
	if err != nil {
		h.log.Warn("derive quote ata", zap.Error(err))
		return
	}
	ammConfig := cpmm.GlobalConfig.ToSolana()
	observation := cpmm.Observation.ToSolana()

	// Frontrun: quote in, base out (buy ahead of the victim).
	frontrun := bundle.BuildCPMMLeg(bundle.CPMMLegParams{
		Pool:               poolKey,
		ProgramID:          h.raydiumCPMMProgram,
		Authority:          h.raydiumCPMMAuthority,
		AmmConfig:          ammConfig,
		Observation:        observation,
		Payer:              payer,
		InputVault:         cpmm.QuoteVault,
		OutputVault:        cpmm.BaseVault,
		InputMint:          quoteMint,
		OutputMint:         baseMint,
		InputTokenAccount:  quoteATA,
		OutputTokenAccount: baseATA,
		AmountIn:           candidate.InputLamports,
		MinOutput:          candidate.MinQuoteOut,
	})

	// Backrun: base in, quote out (sell the intermediate position
	// after the victim lands).
	backrun := bundle.BuildCPMMLeg(bundle.CPMMLegParams{
		Pool:               poolKey,
		ProgramID:          h.raydiumCPMMProgram,
		Authority:          h.raydiumCPMMAuthority,
		AmmConfig:          ammConfig,
		Observation:        observation,
		Payer:              payer,
		InputVault:         cpmm.BaseVault,
		OutputVault:        cpmm.QuoteVault,
		InputMint:          baseMint,
		OutputMint:         quoteMint,
		InputTokenAccount:  baseATA,
		OutputTokenAccount: quoteATA,
		AmountIn:           candidate.IntermediateBase,
		MinOutput:          candidate.MinBaseOut,
	})

	bundleCfg := bundle.Config{
		ComputeUnitLimit: h.cfg.ComputeUnitLimit,
		ComputeUnitPrice: h.cfg.ComputeUnitPrice,
		TipLamports:      h.cfg.TipLamports,
	}
	result := bundle.Build(bundleCfg, frontrun, backrun, victimRaw, blockhash, h.signer, h.tipAccount, nil)
	if h.metrics != nil {
		h.metrics.ObserveLatency(metrics.StageBundle, float64(result.BuildLatencyUS)/1e6)
	}
	if !result.Success {
		h.log.Warn("bundle build failed", zap.String("pool", poolKey.String()), zap.String("reason", result.Reason))
		return
	}

	if _, err := h.submitter.Submit(ctx, result.Bundle.Transactions); err != nil {
		h.log.Warn("bundle submit failed", zap.String("pool", poolKey.String()), zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.BundlesSent.Inc()
	}
}

// candidateSizesLamports converts spec.md §6's SOL-denominated default
// sweep into lamports (1 SOL = 1e9 lamports).
func candidateSizesLamports(sol []float64) []uint64 {
	out := make([]uint64, 0, len(sol))
	for _, s := range sol {
		out = append(out, uint64(s*1e9))
	}
	return out
}
