// Package config loads the engine's configuration. It follows the
// teacher's no-framework style (main.go's package-level vars) generalized
// to a typed struct loaded from the environment, with defaults matching
// spec.md §6.
package config

import (
	"os"
	"strconv"
	"time"
)

// CandidateSizesSOL is the default back-run candidate sweep, expressed in
// SOL (spec.md §4.5); cmd/arbd converts it to lamports at a fixed
// 1e9 lamports per SOL.
var CandidateSizesSOL = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0}

// Config is the full set of tunables spec.md §6 enumerates.
type Config struct {
	MinCandidateSpreadBps int64
	MinProfitLamports     int64
	SlippageBps           int64

	TipLamports       uint64
	ComputeUnitLimit  uint32
	ComputeUnitPrice  uint64
	CandidateSizesSOL []float64

	PendingQueue PendingQueueConfig
	Submitter    SubmitterConfig

	PriceCheckCooldown time.Duration
	DryRun             bool

	RPCEndpoint  string
	WSEndpoint   string
	JitoEndpoint string
	MetricsAddr  string

	// SignerPrivateKey is the base58-encoded keypair this engine signs
	// its own frontrun/backrun legs with. Empty by default; without it
	// cmd/arbd's hot path skips building any bundle, but the
	// ingest/opportunity-scan side still runs (ARB_DRY_RUN-style
	// observe-only deployments don't need a funded signer at all).
	SignerPrivateKey string

	Programs ProgramIDs
}

// ProgramIDs are the base58 program addresses of the four tracked
// venues plus their tick/bin-array owners (spec.md §3's venue list).
// Left unset by default, the same convention Default already applies
// to RPCEndpoint/JitoEndpoint: these are deployment-specific (mainnet,
// devnet, or a fork) and this module has no grounded source for a
// single "correct" literal the way it does for, say, the SPL token
// account layout — cmd/arbd skips bootstrapping/subscribing a venue
// left empty rather than guessing.
type ProgramIDs struct {
	BondingCurve string // PumpSwap pre-graduation program
	PumpAMM      string // PumpSwap post-graduation CPMM-shaped program
	RaydiumCPMM  string
	RaydiumCLMM  string
	MeteoraDLMM  string

	// RaydiumCPMMAuthority is RaydiumCPMM's single program-wide vault
	// authority PDA. Like the program IDs above, it's a deployment
	// constant this module has no corpus-grounded literal for, so it's
	// operator-supplied rather than hardcoded; back-run legs against a
	// RaydiumCPMM pool are skipped (logged, not built) while it's unset.
	RaydiumCPMMAuthority string
}

// PendingQueueConfig mirrors spec.md §4.6's retention knobs.
type PendingQueueConfig struct {
	MaxSize         int
	ExpirationSlots uint64
	ExpirationMS    int64
}

// SubmitterConfig mirrors spec.md §4.8's retry knobs.
type SubmitterConfig struct {
	MaxRetries      int
	AttemptTimeout  time.Duration
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	ReconnectDelay  time.Duration
}

// Default returns the configuration spec.md §6 lists in parens.
func Default() Config {
	return Config{
		MinCandidateSpreadBps: 55,
		MinProfitLamports:     0,
		SlippageBps:           50,
		TipLamports:           0,
		ComputeUnitLimit:      200_000,
		ComputeUnitPrice:      0,
		CandidateSizesSOL:     append([]float64(nil), CandidateSizesSOL...),
		PendingQueue: PendingQueueConfig{
			MaxSize:         10_000,
			ExpirationSlots: 150,
			ExpirationMS:    60_000,
		},
		Submitter: SubmitterConfig{
			MaxRetries:     3,
			AttemptTimeout: 5 * time.Second,
			BackoffBase:    100 * time.Millisecond,
			BackoffCap:     1 * time.Second,
			ReconnectDelay: 1 * time.Second,
		},
		PriceCheckCooldown: 3 * time.Second,
		DryRun:             true,
	}
}

// FromEnv overlays environment variables onto the defaults. Unset variables
// leave the default untouched; malformed values are ignored, keeping the
// default rather than failing startup over an optional override.
func FromEnv() Config {
	c := Default()

	if v, ok := envInt64("ARB_MIN_SPREAD_BPS"); ok {
		c.MinCandidateSpreadBps = v
	}
	if v, ok := envInt64("ARB_MIN_PROFIT_LAMPORTS"); ok {
		c.MinProfitLamports = v
	}
	if v, ok := envInt64("ARB_SLIPPAGE_BPS"); ok {
		c.SlippageBps = v
	}
	if v, ok := envUint64("ARB_TIP_LAMPORTS"); ok {
		c.TipLamports = v
	}
	if v, ok := envUint64("ARB_COMPUTE_UNIT_PRICE"); ok {
		c.ComputeUnitPrice = v
	}
	if v, ok := envInt64("ARB_PENDING_MAX_SIZE"); ok {
		c.PendingQueue.MaxSize = int(v)
	}
	if v, ok := envInt64("ARB_PENDING_EXPIRATION_SLOTS"); ok {
		c.PendingQueue.ExpirationSlots = uint64(v)
	}
	if v, ok := envInt64("ARB_PENDING_EXPIRATION_MS"); ok {
		c.PendingQueue.ExpirationMS = v
	}
	if v, ok := envInt64("ARB_SUBMIT_MAX_RETRIES"); ok {
		c.Submitter.MaxRetries = int(v)
	}
	if v := os.Getenv("ARB_DRY_RUN"); v != "" {
		c.DryRun = v != "false" && v != "0"
	}
	if v := os.Getenv("ARB_RPC_ENDPOINT"); v != "" {
		c.RPCEndpoint = v
	}
	if v := os.Getenv("ARB_WS_ENDPOINT"); v != "" {
		c.WSEndpoint = v
	}
	if v := os.Getenv("ARB_JITO_ENDPOINT"); v != "" {
		c.JitoEndpoint = v
	}
	if v := os.Getenv("ARB_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("ARB_SIGNER_PRIVATE_KEY"); v != "" {
		c.SignerPrivateKey = v
	}
	if v := os.Getenv("ARB_PROGRAM_BONDING_CURVE"); v != "" {
		c.Programs.BondingCurve = v
	}
	if v := os.Getenv("ARB_PROGRAM_PUMP_AMM"); v != "" {
		c.Programs.PumpAMM = v
	}
	if v := os.Getenv("ARB_PROGRAM_RAYDIUM_CPMM"); v != "" {
		c.Programs.RaydiumCPMM = v
	}
	if v := os.Getenv("ARB_PROGRAM_RAYDIUM_CLMM"); v != "" {
		c.Programs.RaydiumCLMM = v
	}
	if v := os.Getenv("ARB_PROGRAM_METEORA_DLMM"); v != "" {
		c.Programs.MeteoraDLMM = v
	}
	if v := os.Getenv("ARB_RAYDIUM_CPMM_AUTHORITY"); v != "" {
		c.Programs.RaydiumCPMMAuthority = v
	}
	return c
}

func envInt64(name string) (int64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envUint64(name string) (uint64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
