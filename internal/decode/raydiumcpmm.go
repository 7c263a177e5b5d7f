package decode

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// raydiumCPMMPoolMinLen and the offsets below (post 8-byte discriminator)
// are ground-truthed against `raydium/cpmmPool.go`'s CPMMPool struct:
// AmmConfig, PoolCreator, Token0Vault, Token1Vault, LpMint, Token0Mint,
// Token1Mint, Token0Program, Token1Program, ObservationKey (ten
// pubkeys), then single-byte AuthBump/Status/decimals fields.
const (
	raydiumCPMMPoolMinLen        = 337
	raydiumCPMMAmmConfigOffset   = 8
	raydiumCPMMToken0VaultOffset = 8 + 32*2
	raydiumCPMMToken1VaultOffset = 8 + 32*3
	raydiumCPMMToken0MintOffset  = 8 + 32*5
	raydiumCPMMToken1MintOffset  = 8 + 32*6
	raydiumCPMMObservationOffset = 8 + 32*9
)

// raydiumCPMMDefaultLPFeeBps is RaydiumCPMM's documented standard swap
// fee tier (0.25%, almost entirely routed to LPs). The pool's own
// AmmConfig carries the authoritative rate, but — mirroring
// decode.GlobalConfig's own documented convention — this decoder fixes
// the fee at decode time rather than re-reading it once AmmConfig
// arrives, since nothing in this engine's CPMM kernel consults a
// config account for fees at simulate time.
const raydiumCPMMDefaultLPFeeBps = 25

// RaydiumCPMMPool decodes a RaydiumCPMM PoolState account (spec.md
// §4.4.1's constant-product shape, shared with PumpSwap's
// post-graduation AMM pool).
func RaydiumCPMMPool(data []byte) (domain.Pool, error) {
	if len(data) < raydiumCPMMPoolMinLen {
		return domain.Pool{}, fmt.Errorf("%w: raydium cpmm pool too short: %d < %d", ErrDecode, len(data), raydiumCPMMPoolMinLen)
	}
	disc, err := readDiscriminator(data)
	if err != nil {
		return domain.Pool{}, err
	}
	if disc != DiscriminatorRaydiumCPMMPool {
		return domain.Pool{}, fmt.Errorf("%w: raydium cpmm pool discriminator mismatch", ErrDecode)
	}

	ammConfig, err := pubkey.FromBytes(data[raydiumCPMMAmmConfigOffset : raydiumCPMMAmmConfigOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	baseVault, err := pubkey.FromBytes(data[raydiumCPMMToken0VaultOffset : raydiumCPMMToken0VaultOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	quoteVault, err := pubkey.FromBytes(data[raydiumCPMMToken1VaultOffset : raydiumCPMMToken1VaultOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	baseMint, err := pubkey.FromBytes(data[raydiumCPMMToken0MintOffset : raydiumCPMMToken0MintOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	quoteMint, err := pubkey.FromBytes(data[raydiumCPMMToken1MintOffset : raydiumCPMMToken1MintOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	observation, err := pubkey.FromBytes(data[raydiumCPMMObservationOffset : raydiumCPMMObservationOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return domain.Pool{
		Kind: domain.PoolKindCPMM,
		CPMM: &domain.CPMM{
			BaseVault:      baseVault,
			QuoteVault:     quoteVault,
			BaseMint:       baseMint,
			QuoteMint:      quoteMint,
			Observation:    observation,
			LPFeeBps:       raydiumCPMMDefaultLPFeeBps,
			ProtocolFeeBps: 0,
			PnLBase:        math.ZeroInt(),
			PnLQuote:       math.ZeroInt(),
			GlobalConfig:   ammConfig,
		},
	}, nil
}
