// Package sequence replays an ordered list of swaps against a shared,
// mutable reserve map, threading each step's output into the next
// step's input (spec.md §4.4.4). It is the only amm subpackage that
// imports the other four: multi-hop routes, sandwich replay, and
// back-run round-trips all reduce to this one primitive.
package sequence

import (
	"errors"
	"fmt"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/amm/bonding"
	"github.com/solana-zh/arb-engine/internal/amm/clmm"
	"github.com/solana-zh/arb-engine/internal/amm/cpmm"
	"github.com/solana-zh/arb-engine/internal/amm/dlmm"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// ErrUnknownPool is returned when a step references a pool absent from
// the supplied reserve map.
var ErrUnknownPool = errors.New("sequence: pool not present in reserve map")

// PoolState is the mutable state one pool contributes to a sequence
// replay: its domain.Pool variant plus whatever vault/array context
// its venue kernel needs to run a swap in isolation from the cache.
type PoolState struct {
	Pool domain.Pool

	// CPMM
	BaseVault  uint64
	QuoteVault uint64

	// CLMM
	AmmConfig  *domain.AmmConfig
	TickArrays clmm.TickArrays

	// DLMM
	BinArrays dlmm.BinArrays
}

// NoThread marks a Step whose AmountIn is authoritative as supplied —
// the common case for a victim's own transaction, or a sandwich's
// independently-sized frontrun leg.
const NoThread = -1

// Step is one leg of a sequence: swap AmountIn of the input side of
// Pool in Direction. When ThreadFrom is not NoThread, Run overwrites
// AmountIn with the OutputAmount of steps[ThreadFrom] before applying
// the swap — this is how a multi-hop route (each leg threads from the
// one before it) and a back-run round trip (the exit leg threads from
// the entry leg) are expressed; a sandwich's victim and frontrun legs
// both use NoThread since their sizes come from distinct transactions
// (spec.md §4.4.4).
type Step struct {
	Pool       pubkey.Pubkey
	Direction  amm.Direction
	AmountIn   uint64
	ThreadFrom int
}

// StepResult pairs a Step (with its actual, possibly-threaded
// AmountIn) with the kernel Result it produced.
type StepResult struct {
	Step   Step
	Result amm.Result
}

// Run replays steps in order over states, mutating states in place so
// the caller can inspect final reserves after the sequence (spec.md
// §4.4.4: "reserves must be updated after each step before the next
// computes its output" — the defining non-commutativity invariant).
// Execution stops at the first failed step; StepResults up to and
// including the failure are returned alongside the error.
func Run(steps []Step, states map[pubkey.Pubkey]*PoolState) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))

	for i, step := range steps {
		if step.ThreadFrom != NoThread {
			if step.ThreadFrom < 0 || step.ThreadFrom >= i {
				return results, fmt.Errorf("sequence: step %d has invalid ThreadFrom %d", i, step.ThreadFrom)
			}
			step.AmountIn = results[step.ThreadFrom].Result.OutputAmount
		}

		state, ok := states[step.Pool]
		if !ok {
			return results, fmt.Errorf("%w: %s", ErrUnknownPool, step.Pool)
		}

		result, err := applyStep(state, step)
		results = append(results, StepResult{Step: step, Result: result})
		if err != nil {
			return results, err
		}
		if !result.Success {
			return results, result.Error
		}
	}

	return results, nil
}

func applyStep(state *PoolState, step Step) (amm.Result, error) {
	switch state.Pool.Kind {
	case domain.PoolKindCPMM:
		p := state.Pool.CPMM
		result, newBase, newQuote := cpmm.Swap(p, state.BaseVault, state.QuoteVault, step.Direction, step.AmountIn)
		if result.Success {
			state.BaseVault = newBase.Uint64()
			state.QuoteVault = newQuote.Uint64()
		}
		return result, nil

	case domain.PoolKindBondingCurve:
		p := state.Pool.BondingCurve
		result, next := bonding.Swap(p, step.Direction, step.AmountIn)
		if result.Success {
			*state.Pool.BondingCurve = next
		}
		return result, nil

	case domain.PoolKindCLMM:
		p := state.Pool.CLMM
		result, next := clmm.Swap(p, state.AmmConfig, state.TickArrays, step.Direction, step.AmountIn)
		if result.Success {
			*state.Pool.CLMM = next
		}
		return result, nil

	case domain.PoolKindDLMM:
		p := state.Pool.DLMM
		// dlmm.Swap writes each step's consumed bin back into
		// state.BinArrays directly (maps are reference types), so the
		// next step sees post-depletion reserves without any further
		// threading here.
		result, next := dlmm.Swap(p, state.BinArrays, step.Direction, step.AmountIn)
		if result.Success {
			*state.Pool.DLMM = next
		}
		return result, nil

	default:
		return amm.Result{Error: fmt.Errorf("sequence: unknown pool kind %v", state.Pool.Kind)}, nil
	}
}
