package ingestsvc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/decode"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func appendCompactU16(buf []byte, n int) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			buf = append(buf, b|0x80)
			continue
		}
		return append(buf, b)
	}
}

func fixedKey(b byte) []byte {
	out := make([]byte, 32)
	out[0] = b
	return out
}

// buildCPMMSwapMessage assembles a minimal legacy message with a
// single swap_base_input instruction against account index 3 (pool),
// 6 (input vault), 7 (output vault) — the layout `ParseCPMMSwap`
// expects.
func buildCPMMSwapMessage(poolKey, inputVaultKey, outputVaultKey byte, amountIn, minOut uint64) []byte {
	var data []byte
	disc := decode.CPMMSwapDiscriminator
	data = append(data, disc[:]...)
	var amt [8]byte
	binary.LittleEndian.PutUint64(amt[:], amountIn)
	data = append(data, amt[:]...)
	binary.LittleEndian.PutUint64(amt[:], minOut)
	data = append(data, amt[:]...)

	const numKeys = 13
	var buf []byte
	buf = append(buf, 1, 0, 0)
	buf = appendCompactU16(buf, numKeys)
	keys := make([]byte, numKeys)
	for i := range keys {
		keys[i] = byte(i)
	}
	keys[3] = poolKey
	keys[6] = inputVaultKey
	keys[7] = outputVaultKey
	for _, k := range keys {
		buf = append(buf, fixedKey(k)...)
	}
	buf = append(buf, fixedKey(0xAA)...) // recent blockhash
	buf = appendCompactU16(buf, 1)
	buf = append(buf, 0) // program_id_index
	buf = appendCompactU16(buf, numKeys)
	for i := 0; i < numKeys; i++ {
		buf = append(buf, byte(i))
	}
	buf = appendCompactU16(buf, len(data))
	buf = append(buf, data...)
	return buf
}

func TestBuildPendingTxDecodesCPMMLeg(t *testing.T) {
	c := cache.New()
	pool := pubkey.Pubkey{0x10}
	baseVault := pubkey.Pubkey{0x20}
	quoteVault := pubkey.Pubkey{0x30}
	c.Commit(cache.Update{
		Kind:   cache.UpdatePool,
		Pubkey: pool,
		Slot:   1, WriteVersion: 1,
		Pool: domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{BaseVault: baseVault, QuoteVault: quoteVault}},
		Source: cache.SourceBootstrap,
	})

	msg := buildCPMMSwapMessage(0x10, 0x20, 0x30, 1_000_000, 990_000)
	tx := buildPendingTx(RawPendingTx{Slot: 5, RawMessage: msg}, c)

	require.Len(t, tx.DecodedLegs, 1)
	leg := tx.DecodedLegs[0]
	require.Equal(t, pool, leg.Pool)
	require.True(t, leg.ZeroForOne)
	require.Equal(t, uint64(1_000_000), leg.AmountIn)
	require.Equal(t, uint64(990_000), leg.MinOut)
}

func TestBuildPendingTxUnknownPoolIsSkipped(t *testing.T) {
	c := cache.New()
	msg := buildCPMMSwapMessage(0x10, 0x20, 0x30, 1, 1)
	tx := buildPendingTx(RawPendingTx{Slot: 1, RawMessage: msg}, c)
	require.Empty(t, tx.DecodedLegs)
}

func TestBuildPendingTxMalformedMessageReturnsBareTx(t *testing.T) {
	c := cache.New()
	tx := buildPendingTx(RawPendingTx{Slot: 1, RawMessage: []byte{0x01}}, c)
	require.Empty(t, tx.DecodedLegs)
}
