// Package bundle assembles the three-transaction list spec.md §4.7
// describes: our frontrun, the victim's already-signed transaction
// verbatim, and our backrun. Assembly is synchronous and measures its
// own wall-clock cost so the caller can fold build_latency_us into the
// hot-path budget (spec.md §5).
package bundle

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// computeBudgetProgramID is Solana's built-in ComputeBudget111... program.
// Its instruction layout (discriminant byte + fixed-width argument) is a
// public, stable convention, so it is encoded directly rather than
// pulled in through a generated binding.
var computeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	computeBudgetSetUnitLimit = 2
	computeBudgetSetUnitPrice = 3
)

func setComputeUnitLimitInstruction(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

func setComputeUnitPriceInstruction(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// Leg is one of our two transactions' swap instruction, already encoded
// against a specific venue program (spec.md §4.7: "{ direction,
// input_amount, min_output, enriched_pool }").
type Leg struct {
	Pool        pubkey.Pubkey
	ProgramID   solana.PublicKey
	Accounts    solana.AccountMetaSlice
	Data        []byte
	InputAmount uint64
	MinOutput   uint64
}

func (l Leg) instruction() solana.Instruction {
	return solana.NewInstruction(l.ProgramID, l.Accounts, l.Data)
}

// Estimator computes a compute-unit limit for a transaction carrying
// legCount swap legs. The spec requires only that it be monotonic in
// legCount (spec.md §4.7); both of our transactions carry exactly one
// swap leg, so it is invoked with legCount=1 for each.
type Estimator func(legCount int) uint32

// DefaultEstimator scales linearly with leg count, seeded from the
// configured per-leg compute_unit_limit (spec.md §6).
func DefaultEstimator(perLegUnits uint32) Estimator {
	return func(legCount int) uint32 {
		if legCount < 1 {
			legCount = 1
		}
		return perLegUnits * uint32(legCount)
	}
}

// Config bundles spec.md §6's bundle-relevant configuration.
type Config struct {
	ComputeUnitLimit uint32 // per-leg baseline fed to DefaultEstimator
	ComputeUnitPrice uint64 // micro-lamports
	TipLamports      uint64
}

// Bundle is the assembled three-transaction list, ready to hand to a
// submitter (spec.md §4.7, §6's abstract submission interface).
type Bundle struct {
	Transactions [][]byte // [frontrun, victim_raw, backrun], each a serialized signed transaction
}

// Result is the bundle builder's outcome contract (spec.md §4.7:
// "Failure returns { success: false, reason }; success returns {
// bundle, build_latency_us }").
type Result struct {
	Success        bool
	Reason         string
	Bundle         Bundle
	BuildLatencyUS int64
}

// Build assembles [frontrun, victim_raw, backrun]. Our two transactions
// each carry a compute-unit limit and price instruction and our
// signature; only the frontrun carries the tip payment, since a single
// tip per bundle is what the block builder's fee market prices against
// (spec.md §4.7 does not distinguish, so this is a deliberate choice,
// not an omission — see DESIGN.md).
func Build(cfg Config, frontrun, backrun Leg, victimRaw []byte, recentBlockhash solana.Hash, signer solana.PrivateKey, tipAccount solana.PublicKey, estimate Estimator) Result {
	start := time.Now()

	if len(victimRaw) == 0 {
		return Result{Reason: "missing victim transaction"}
	}
	if estimate == nil {
		estimate = DefaultEstimator(cfg.ComputeUnitLimit)
	}

	frontrunBytes, err := assemble(frontrun, cfg, estimate, recentBlockhash, signer, &tipAccount)
	if err != nil {
		return Result{Reason: fmt.Sprintf("frontrun: %v", err)}
	}
	backrunBytes, err := assemble(backrun, cfg, estimate, recentBlockhash, signer, nil)
	if err != nil {
		return Result{Reason: fmt.Sprintf("backrun: %v", err)}
	}

	return Result{
		Success: true,
		Bundle: Bundle{
			Transactions: [][]byte{frontrunBytes, victimRaw, backrunBytes},
		},
		BuildLatencyUS: time.Since(start).Microseconds(),
	}
}

// assemble builds, signs, and serializes one of our two transactions:
// compute-unit limit, compute-unit price, an optional tip transfer, and
// finally the leg's own swap instruction.
func assemble(leg Leg, cfg Config, estimate Estimator, recentBlockhash solana.Hash, signer solana.PrivateKey, tipAccount *solana.PublicKey) ([]byte, error) {
	instrs := []solana.Instruction{
		setComputeUnitLimitInstruction(estimate(1)),
		setComputeUnitPriceInstruction(cfg.ComputeUnitPrice),
	}
	if tipAccount != nil && cfg.TipLamports > 0 {
		instrs = append(instrs, system.NewTransferInstruction(cfg.TipLamports, signer.PublicKey(), *tipAccount).Build())
	}
	instrs = append(instrs, leg.instruction())

	tx, err := solana.NewTransaction(instrs, recentBlockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if signer.PublicKey().Equals(key) {
			return &signer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx.MarshalBinary()
}
