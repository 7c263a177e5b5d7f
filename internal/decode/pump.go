package decode

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

const bondingCurveMinLen = 73

// BondingCurve decodes a PumpSwap bonding-curve account (spec.md §6).
func BondingCurve(data []byte) (domain.BondingCurve, error) {
	if len(data) < bondingCurveMinLen {
		return domain.BondingCurve{}, fmt.Errorf("%w: bonding curve too short: %d < %d", ErrDecode, len(data), bondingCurveMinLen)
	}
	disc, err := readDiscriminator(data)
	if err != nil {
		return domain.BondingCurve{}, err
	}
	if disc != DiscriminatorPumpBondingCurve {
		return domain.BondingCurve{}, fmt.Errorf("%w: bonding curve discriminator mismatch", ErrDecode)
	}

	creator, err := pubkey.FromBytes(data[40:72])
	if err != nil {
		return domain.BondingCurve{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return domain.BondingCurve{
		VirtualTokenReserves: math.NewIntFromUint64(u64le(data[8:16])),
		VirtualSolReserves:   math.NewIntFromUint64(u64le(data[16:24])),
		RealTokenReserves:    math.NewIntFromUint64(u64le(data[24:32])),
		RealSolReserves:      math.NewIntFromUint64(u64le(data[32:40])),
		Creator:              creator,
		Complete:             data[72] != 0,
	}, nil
}

const pumpAMMPoolMinLen = 211

// PumpAMMPool decodes PumpSwap's post-graduation CPMM-shaped pool
// account (spec.md §6). Fee fields are not carried on-chain in this
// layout; callers attach the venue's GlobalConfig separately.
func PumpAMMPool(data []byte) (domain.Pool, error) {
	if len(data) < pumpAMMPoolMinLen {
		return domain.Pool{}, fmt.Errorf("%w: pump amm pool too short: %d < %d", ErrDecode, len(data), pumpAMMPoolMinLen)
	}
	disc, err := readDiscriminator(data)
	if err != nil {
		return domain.Pool{}, err
	}
	if disc != DiscriminatorPumpAMMPool {
		return domain.Pool{}, fmt.Errorf("%w: pump amm pool discriminator mismatch", ErrDecode)
	}

	baseVault, err := pubkey.FromBytes(data[139:171])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	quoteVault, err := pubkey.FromBytes(data[171:203])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return domain.Pool{
		Kind: domain.PoolKindCPMM,
		CPMM: &domain.CPMM{
			BaseVault:  baseVault,
			QuoteVault: quoteVault,
			// PumpSwap's documented default fee schedule (spec.md §4.4.1);
			// overridden by the pool's GlobalConfig once attached.
			LPFeeBps:       20,
			ProtocolFeeBps: 5,
			PnLBase:        math.ZeroInt(),
			PnLQuote:       math.ZeroInt(),
		},
	}, nil
}
