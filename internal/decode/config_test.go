package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmmConfigDecode(t *testing.T) {
	data := make([]byte, ammConfigMinLen)
	binary.LittleEndian.PutUint32(data[ammConfigProtocolFeeOff:], 1_000)
	binary.LittleEndian.PutUint32(data[ammConfigTradeFeeOff:], 2_500)
	binary.LittleEndian.PutUint16(data[ammConfigTickSpacingOff:], 60)
	binary.LittleEndian.PutUint32(data[ammConfigFundFeeOff:], 400)

	cfg, err := AmmConfig(data)
	require.NoError(t, err)
	require.Equal(t, uint32(1_000), cfg.ProtocolFeeRate)
	require.Equal(t, uint32(2_500), cfg.TradeFeeRate)
	require.Equal(t, uint16(60), cfg.TickSpacing)
	require.Equal(t, uint32(400), cfg.FundFeeRate)
}

func TestAmmConfigDecodeTooShort(t *testing.T) {
	_, err := AmmConfig(make([]byte, 10))
	require.ErrorIs(t, err, ErrDecode)
}

func TestGlobalConfigDecode(t *testing.T) {
	cfg, err := GlobalConfig(make([]byte, globalConfigMinLen))
	require.NoError(t, err)
	require.Equal(t, int64(20), cfg.LPFeeBps)
	require.Equal(t, int64(5), cfg.ProtocolFeeBps)
}

func TestGlobalConfigDecodeTooShort(t *testing.T) {
	_, err := GlobalConfig(make([]byte, 2))
	require.ErrorIs(t, err, ErrDecode)
}
