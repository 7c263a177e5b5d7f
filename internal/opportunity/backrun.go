package opportunity

import (
	"cosmossdk.io/math"

	"github.com/solana-zh/arb-engine/internal/amm"
	"github.com/solana-zh/arb-engine/internal/amm/cpmm"
	"github.com/solana-zh/arb-engine/internal/domain"
)

// BackRunCandidate is the best round-trip found for a victim leg.
type BackRunCandidate struct {
	InputLamports  uint64
	GrossProfit    int64
	NetProfit      int64
	MinQuoteOut    uint64 // slippage-adjusted floor for step 1 (quote_in -> base_out)
	MinBaseOut     uint64 // slippage-adjusted floor for step 2 (base_in -> quote_out)
	IntermediateBase uint64
}

// VictimLeg is the decoded CPMM swap the back-run search replays
// against (spec.md §4.5's "On each pending-tx event carrying a CPMM
// swap leg").
type VictimLeg struct {
	Pool           *domain.CPMM
	BaseVault      uint64
	QuoteVault     uint64
	ZeroForOne     bool // true: victim gives base, receives quote
	DeclaredAmount uint64
	ExactOutput    bool
	MaxInput       uint64 // clamp for reconstructed exact-output input
}

// Params bundles the tunables spec.md §4.5/§6 the search reads.
type Params struct {
	CandidateSizesLamports []uint64
	SlippageBps            int64
	GasCostLamports        int64
	TipLamports            int64
	MinProfitLamports      int64
}

// reconstructVictimInput recovers the victim's actual input amount. An
// exact-input leg already carries it; an exact-output leg is inverted
// via the reverse CPMM formula and clamped to its declared max input
// (spec.md §4.5 step 3).
func reconstructVictimInput(leg VictimLeg) uint64 {
	if !leg.ExactOutput {
		return leg.DeclaredAmount
	}

	var reserveIn, reserveOut math.Int
	if leg.ZeroForOne {
		reserveIn, reserveOut = math.NewIntFromUint64(leg.BaseVault), math.NewIntFromUint64(leg.QuoteVault)
	} else {
		reserveIn, reserveOut = math.NewIntFromUint64(leg.QuoteVault), math.NewIntFromUint64(leg.BaseVault)
	}
	fee := cpmm.EffectiveFeeBps(leg.Pool)
	in := cpmm.GetAmountIn(math.NewIntFromUint64(leg.DeclaredAmount), reserveIn, reserveOut, fee).Uint64()
	if leg.MaxInput > 0 && in > leg.MaxInput {
		in = leg.MaxInput
	}
	return in
}

// simulateVictim replays the victim leg, returning the post-victim
// vault balances (spec.md §4.5 step 4).
func simulateVictim(leg VictimLeg) (amm.Result, uint64, uint64) {
	dir := amm.QuoteToBase
	if leg.ZeroForOne {
		dir = amm.BaseToQuote
	}
	input := reconstructVictimInput(leg)
	result, newBase, newQuote := cpmm.Swap(leg.Pool, leg.BaseVault, leg.QuoteVault, dir, input)
	return result, newBase.Uint64(), newQuote.Uint64()
}

// Search runs the candidate sweep described in spec.md §4.5's
// back-run section and returns the best round trip, or ok=false if no
// candidate clears min_profit_lamports.
func Search(leg VictimLeg, params Params) (BackRunCandidate, bool) {
	victimResult, postBase, postQuote := simulateVictim(leg)
	if !victimResult.Success {
		return BackRunCandidate{}, false // victim simulation failed: abort the opportunity
	}

	var best BackRunCandidate
	found := false

	for _, input := range params.CandidateSizesLamports {
		if input == 0 || input >= postQuote {
			continue // candidate input ≥ post-victim quote reserve: skip
		}

		step1, newBase, newQuote := cpmm.Swap(leg.Pool, postBase, postQuote, amm.QuoteToBase, input)
		if !step1.Success || step1.OutputAmount == 0 {
			continue // intermediate step returns zero output: skip
		}

		step2, _, _ := cpmm.Swap(leg.Pool, newBase.Uint64(), newQuote.Uint64(), amm.BaseToQuote, step1.OutputAmount)
		if !step2.Success || step2.OutputAmount == 0 {
			continue
		}

		gross := int64(step2.OutputAmount) - int64(input)
		net := gross - params.GasCostLamports - params.TipLamports
		if net < params.MinProfitLamports {
			continue
		}

		better := !found ||
			gross > best.GrossProfit ||
			(gross == best.GrossProfit && input < best.InputLamports)
		if better {
			best = BackRunCandidate{
				InputLamports:    input,
				GrossProfit:      gross,
				NetProfit:        net,
				MinQuoteOut:      slippageFloor(step1.OutputAmount, params.SlippageBps),
				MinBaseOut:       slippageFloor(step2.OutputAmount, params.SlippageBps),
				IntermediateBase: step1.OutputAmount,
			}
			found = true
		}
	}

	return best, found
}

// slippageFloor applies spec.md §4.5 step 8's tolerance:
// min_out = best_out * (10_000 − slippage_bps) / 10_000.
func slippageFloor(amount uint64, slippageBps int64) uint64 {
	return math.NewIntFromUint64(amount).MulRaw(10_000 - slippageBps).QuoRaw(10_000).Uint64()
}
