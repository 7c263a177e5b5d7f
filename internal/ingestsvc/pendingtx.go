package ingestsvc

import (
	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/decode"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/wire"
)

// buildPendingTx parses raw.RawMessage and decodes every CPMM
// swap_base_input instruction it finds into a domain.SwapLeg, the way
// the back-run search (spec.md §4.5) expects to find them attached to
// a domain.PendingTx. Instructions this engine doesn't track (any
// other venue or program) are silently skipped rather than treated as
// an error — a pending tx routinely touches programs outside the four
// tracked venues.
func buildPendingTx(raw RawPendingTx, c *cache.Cache) domain.PendingTx {
	tx := domain.PendingTx{
		Signature:      raw.Signature,
		Slot:           raw.Slot,
		RawTransaction: raw.RawTransaction,
		RawMessage:     raw.RawMessage,
		ReceivedAt:     raw.ReceivedAt,
	}

	msg, err := wire.ParseMessage(raw.RawMessage)
	if err != nil {
		return tx
	}

	for _, instr := range msg.Instructions {
		swap, ok, err := decode.ParseCPMMSwap(instr, msg.AccountKeys)
		if err != nil || !ok {
			continue
		}
		leg, ok := resolveSwapLeg(c, swap)
		if !ok {
			continue
		}
		tx.DecodedLegs = append(tx.DecodedLegs, leg)
	}
	return tx
}

// resolveSwapLeg looks the swap's pool up in the cache to learn which
// vault is base vs. quote, the only piece of swap direction a bare
// instruction can't carry on its own.
func resolveSwapLeg(c *cache.Cache, swap decode.CPMMSwap) (domain.SwapLeg, bool) {
	pool, _, ok := c.Pools.Get(swap.Pool)
	if !ok || pool.CPMM == nil {
		return domain.SwapLeg{}, false
	}
	var zeroForOne bool
	switch swap.InputVault {
	case pool.CPMM.BaseVault:
		zeroForOne = true
	case pool.CPMM.QuoteVault:
		zeroForOne = false
	default:
		return domain.SwapLeg{}, false
	}
	return domain.SwapLeg{
		Pool:       swap.Pool,
		Kind:       domain.PoolKindCPMM,
		AmountIn:   swap.AmountIn,
		MinOut:     swap.MinimumAmountOut,
		ZeroForOne: zeroForOne,
	}, true
}
