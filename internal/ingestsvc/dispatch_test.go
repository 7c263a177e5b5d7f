package ingestsvc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func vaultBytes(amount uint64) []byte {
	data := make([]byte, 165)
	binary.LittleEndian.PutUint64(data[64:], amount)
	return data
}

func TestBuildCacheUpdateVault(t *testing.T) {
	pk := pubkey.Pubkey{0x01}
	raw := RawUpdate{Kind: KindVault, Pubkey: pk, Slot: 10, WriteVersion: 1, Data: vaultBytes(555)}

	u, err := buildCacheUpdate(raw)
	require.NoError(t, err)
	require.Equal(t, cache.UpdateVault, u.Kind)
	require.Equal(t, uint64(555), u.Vault.Amount)
	require.Equal(t, pk, u.Pubkey)
}

func TestBuildCacheUpdateDecodeError(t *testing.T) {
	_, err := buildCacheUpdate(RawUpdate{Kind: KindVault, Data: []byte{1, 2, 3}})
	require.Error(t, err)
}

func TestBuildCacheUpdateUnknownKind(t *testing.T) {
	_, err := buildCacheUpdate(RawUpdate{Kind: Kind(999)})
	require.Error(t, err)
}

func TestBuildCacheUpdateBondingCurveWrapsDomainPool(t *testing.T) {
	data := make([]byte, 73)
	copy(data[0:8], []byte{0xf1, 0x9a, 0x6d, 0x04, 0x11, 0xb1, 0x6d, 0xbc})
	binary.LittleEndian.PutUint64(data[8:], 1_000)
	binary.LittleEndian.PutUint64(data[16:], 2_000)
	binary.LittleEndian.PutUint64(data[24:], 500)
	binary.LittleEndian.PutUint64(data[32:], 900)

	u, err := buildCacheUpdate(RawUpdate{Kind: KindBondingCurve, Data: data})
	require.NoError(t, err)
	require.Equal(t, cache.UpdatePool, u.Kind)
	require.NotNil(t, u.Pool.BondingCurve)
}
