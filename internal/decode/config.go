package decode

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/domain"
)

// ammConfigMinLen and the offsets below (post 8-byte discriminator)
// are ground-truthed against `pkg/protocol/raydium_clmm.go`'s manual
// `AmmConfig.Decode`: bump(1) index(2) owner(32) protocolFeeRate(4)
// tradeFeeRate(4) tickSpacing(2) fundFeeRate(4) ... — the only account
// format spec.md §6 doesn't enumerate but the teacher itself decodes.
const (
	ammConfigMinLen           = 8 + 85
	ammConfigProtocolFeeOff   = 8 + 35
	ammConfigTradeFeeOff      = 8 + 39
	ammConfigTickSpacingOff   = 8 + 43
	ammConfigFundFeeOff       = 8 + 45
)

// AmmConfig decodes a Raydium-CLMM-style AmmConfig fee/parameter
// account.
func AmmConfig(data []byte) (domain.AmmConfig, error) {
	if len(data) < ammConfigMinLen {
		return domain.AmmConfig{}, fmt.Errorf("%w: amm config too short: %d < %d", ErrDecode, len(data), ammConfigMinLen)
	}
	return domain.AmmConfig{
		ProtocolFeeRate: u32le(data[ammConfigProtocolFeeOff : ammConfigProtocolFeeOff+4]),
		TradeFeeRate:    u32le(data[ammConfigTradeFeeOff : ammConfigTradeFeeOff+4]),
		TickSpacing:     u16le(data[ammConfigTickSpacingOff : ammConfigTickSpacingOff+2]),
		FundFeeRate:     u32le(data[ammConfigFundFeeOff : ammConfigFundFeeOff+4]),
	}, nil
}

// globalConfigMinLen is a bare presence check: PumpSwap's GlobalConfig
// account is only ever referenced by the teacher as a fixed pubkey fed
// into instruction construction (`PumpGlobalConfig`); its field layout
// appears nowhere in the teacher or the rest of the corpus. Rather
// than invent offsets with no grounding, this decoder validates the
// account is present past its discriminator and returns the venue's
// documented default fee schedule — the same LPFeeBps=20/ProtocolFeeBps=5
// pair `PumpAMMPool` already assumes before any GlobalConfig update has
// been observed.
const globalConfigMinLen = 8

func GlobalConfig(data []byte) (domain.GlobalConfig, error) {
	if len(data) < globalConfigMinLen {
		return domain.GlobalConfig{}, fmt.Errorf("%w: global config too short: %d < %d", ErrDecode, len(data), globalConfigMinLen)
	}
	return domain.GlobalConfig{
		LPFeeBps:       20,
		ProtocolFeeBps: 5,
	}, nil
}
