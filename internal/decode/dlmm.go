package decode

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// dlmmPoolMinLen and the offsets below match spec.md §6's Meteora DLMM
// LbPair layout, ground-truthed against the teacher's manual decoder.
const dlmmPoolMinLen = 904

const (
	dlmmBaseFactorOffset           = 8
	dlmmVariableFeeControlOffset   = 16
	dlmmMaxVolatilityAccumOffset   = 20
	dlmmVolatilityAccumOffset      = 72
	dlmmActiveIDOffset             = 76
	dlmmBinStepOffset               = 80
	dlmmStatusOffset                = 82
	dlmmTokenXMintOffset             = 88
	dlmmTokenYMintOffset             = 120
	dlmmReserveXOffset               = 152
	dlmmReserveYOffset               = 184
	// baseFeePowerFactor has no explicit offset in spec.md §6's DLMM
	// list; grounded instead on the teacher's own parameters struct
	// order (baseFactor, filterPeriod, decayPeriod, reductionFactor,
	// variableFeeControl, maxVolatilityAccumulator, minBinId, maxBinId,
	// protocolShare, baseFeePowerFactor), which places it at 34.
	dlmmBaseFeePowerFactorOffset     = 34
)

// DLMMPool decodes a Meteora-DLMM-style discrete-bin pool account,
// rejecting the sibling BinArray account type at this decoder
// boundary (spec.md §6).
func DLMMPool(data []byte) (domain.Pool, error) {
	if len(data) < dlmmPoolMinLen {
		return domain.Pool{}, fmt.Errorf("%w: dlmm pool too short: %d < %d", ErrDecode, len(data), dlmmPoolMinLen)
	}
	disc, err := readDiscriminator(data)
	if err != nil {
		return domain.Pool{}, err
	}
	if disc == DiscriminatorMeteoraBinArray {
		return domain.Pool{}, fmt.Errorf("%w: got BinArray discriminator at LbPair decoder", ErrDecode)
	}
	if disc != DiscriminatorMeteoraLbPair {
		return domain.Pool{}, fmt.Errorf("%w: dlmm pool discriminator mismatch", ErrDecode)
	}

	activeID := i32le(data[dlmmActiveIDOffset : dlmmActiveIDOffset+4])
	binStep := u16le(data[dlmmBinStepOffset : dlmmBinStepOffset+2])
	if binStep < 1 || binStep > 500 {
		return domain.Pool{}, fmt.Errorf("%w: bin_step out of range: %d", ErrDecode, binStep)
	}

	tokenX, err := pubkey.FromBytes(data[dlmmTokenXMintOffset : dlmmTokenXMintOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	tokenY, err := pubkey.FromBytes(data[dlmmTokenYMintOffset : dlmmTokenYMintOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	reserveX, err := pubkey.FromBytes(data[dlmmReserveXOffset : dlmmReserveXOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	reserveY, err := pubkey.FromBytes(data[dlmmReserveYOffset : dlmmReserveYOffset+32])
	if err != nil {
		return domain.Pool{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return domain.Pool{
		Kind: domain.PoolKindDLMM,
		DLMM: &domain.DLMM{
			BaseFactor:         u16le(data[dlmmBaseFactorOffset : dlmmBaseFactorOffset+2]),
			VariableFeeControl: u32le(data[dlmmVariableFeeControlOffset : dlmmVariableFeeControlOffset+4]),
			VolatilityAccum:    u32le(data[dlmmVolatilityAccumOffset : dlmmVolatilityAccumOffset+4]),
			MaxVolatilityAccum: u32le(data[dlmmMaxVolatilityAccumOffset : dlmmMaxVolatilityAccumOffset+4]),
			ActiveID:           activeID,
			BinStep:            binStep,
			BaseFeePowerFactor: data[dlmmBaseFeePowerFactorOffset],
			TokenXMint:         tokenX,
			TokenYMint:         tokenY,
			ReserveX:           reserveX,
			ReserveY:           reserveY,
			Status:             data[dlmmStatusOffset],
		},
	}, nil
}
