package decode

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// clmmPoolMinLen and the offsets below are lifted byte-for-byte from
// the venue's on-chain layout (spec.md §6: "exact offsets must match
// the venue's on-chain layout and are contract"), post 8-byte
// discriminator: bump(1) ammConfig(32) owner(32) mint0(32) mint1(32)
// vault0(32) vault1(32) observationKey(32) decimals0(1) decimals1(1)
// tickSpacing(2) liquidity(16) sqrtPriceX64(16) tickCurrent(4) ...
const clmmPoolMinLen = 1544

const (
	clmmAmmConfigOffset    = 9
	clmmTokenMint0Offset   = 73
	clmmTokenMint1Offset   = 105
	clmmVault0Offset       = 137
	clmmVault1Offset       = 169
	clmmMintDecimals0Off   = 233
	clmmMintDecimals1Off   = 234
	clmmTickSpacingOffset  = 235
	clmmLiquidityOffset    = 237
	clmmSqrtPriceX64Offset = 253
	clmmTickCurrentOffset  = 269
	clmmStatusOffset       = 389
)

// CLMMPool decodes a Raydium-CLMM-style concentrated-liquidity pool
// account (spec.md §6).
func CLMMPool(data []byte) (domain.Pool, error) {
	if len(data) < clmmPoolMinLen {
		return domain.Pool{}, fmt.Errorf("%w: clmm pool too short: %d < %d", ErrDecode, len(data), clmmPoolMinLen)
	}
	disc, err := readDiscriminator(data)
	if err != nil {
		return domain.Pool{}, err
	}
	if disc != DiscriminatorRaydiumCLMMPool {
		return domain.Pool{}, fmt.Errorf("%w: clmm pool discriminator mismatch", ErrDecode)
	}

	ammConfig, err := pubkey.FromBytes(data[clmmAmmConfigOffset : clmmAmmConfigOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	mint0, err := pubkey.FromBytes(data[clmmTokenMint0Offset : clmmTokenMint0Offset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	mint1, err := pubkey.FromBytes(data[clmmTokenMint1Offset : clmmTokenMint1Offset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	vault0, err := pubkey.FromBytes(data[clmmVault0Offset : clmmVault0Offset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	vault1, err := pubkey.FromBytes(data[clmmVault1Offset : clmmVault1Offset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	tickCurrent := i32le(data[clmmTickCurrentOffset : clmmTickCurrentOffset+4])
	if tickCurrent < -443636 || tickCurrent > 443636 {
		return domain.Pool{}, fmt.Errorf("%w: tick_current out of range: %d", ErrDecode, tickCurrent)
	}

	return domain.Pool{
		Kind: domain.PoolKindCLMM,
		CLMM: &domain.CLMM{
			AmmConfig:     ammConfig,
			TokenMint0:    mint0,
			TokenMint1:    mint1,
			Vault0:        vault0,
			Vault1:        vault1,
			SqrtPriceX64:  u128le(data[clmmSqrtPriceX64Offset : clmmSqrtPriceX64Offset+16]),
			Liquidity:     u128le(data[clmmLiquidityOffset : clmmLiquidityOffset+16]),
			TickCurrent:   tickCurrent,
			TickSpacing:   u16le(data[clmmTickSpacingOffset : clmmTickSpacingOffset+2]),
			MintDecimals0: data[clmmMintDecimals0Off],
			MintDecimals1: data[clmmMintDecimals1Off],
			Status:        data[clmmStatusOffset],
		},
	}, nil
}
