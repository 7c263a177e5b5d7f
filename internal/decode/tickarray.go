package decode

import (
	"fmt"

	"cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// tickArrayMinLen and the per-tick layout below are lifted from the
// venue's TickArray account, ground-truthed against the teacher's
// manual decoder rather than spec.md §6 (which lists only the four
// pool/vault/ALT formats as byte-exact contract). Layout, post an
// 8-byte leading discriminator the teacher itself treats as unchecked
// padding: PoolId(32) StartTickIndex(4) then 60 TickState entries of
// Tick(4) LiquidityNet(8) skip(8) LiquidityGross(16) FeeGrowthA(16)
// FeeGrowthB(16) RewardGrowths(3*16) skip(52), then
// InitializedTickCount(1) and trailing padding.
const (
	tickArrayHeaderLen  = 8 + 32 + 4
	tickStateLen        = 4 + 8 + 8 + 16 + 16 + 16 + 48 + 52
	tickArrayCount      = domain.TickArraySize
	tickArrayMinLen     = tickArrayHeaderLen + tickStateLen*tickArrayCount + 1

	tickArrayPoolIDOffset    = 8
	tickArrayStartTickOffset = 40
)

// TickArray decodes a Raydium-CLMM-style tick array account. A tick is
// considered initialized iff its LiquidityGross is nonzero, the same
// rule the teacher uses to find the first initialized tick in an array
// (LiquidityGross > 0) rather than any separate per-tick flag — the
// account carries none.
func TickArray(data []byte) (domain.TickArray, error) {
	if len(data) < tickArrayMinLen {
		return domain.TickArray{}, fmt.Errorf("%w: tick array too short: %d < %d", ErrDecode, len(data), tickArrayMinLen)
	}

	poolID, err := pubkey.FromBytes(data[tickArrayPoolIDOffset : tickArrayPoolIDOffset+32])
	if err != nil {
		return domain.TickArray{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	startTick := i32le(data[tickArrayStartTickOffset : tickArrayStartTickOffset+4])

	out := domain.TickArray{PoolID: poolID, StartTickIndex: startTick}

	pos := tickArrayHeaderLen
	for i := 0; i < tickArrayCount; i++ {
		tick := i32le(data[pos : pos+4])
		pos += 4

		liquidityNet := int64(u64le(data[pos : pos+8]))
		pos += 8 + 8 // LiquidityNet field is 8 bytes wide on chain; skip the trailing 8

		liquidityGross := u128le(data[pos : pos+16])
		pos += 16

		// fee-growth and reward-growth fields are carried on chain but
		// not part of the domain model's simulation inputs.
		pos += 16 + 16 + 48

		pos += 52 // per-tick padding

		out.Ticks[i] = domain.Tick{
			Index:          tick,
			LiquidityNet:   intPtr(math.NewInt(liquidityNet)),
			LiquidityGross: intPtr(math.NewIntFromBigInt(liquidityGross.Big())),
			Initialized:    !liquidityGross.IsZero(),
		}
	}

	return out, nil
}

func intPtr(v math.Int) *math.Int { return &v }

// binArrayMinLen and the per-bin layout below match the Meteora DLMM
// BinArray account, ground-truthed against the teacher's manual
// decoder: discriminator(8) index(8) version(1) padding(7) lbPair(32)
// then 70 bins of amountX(8) amountY(8) price(16) liquiditySupply(16)
// rewardPerTokenStored(2*16) feeAmountXPerTokenStored(16)
// feeAmountYPerTokenStored(16) -- only the two on-chain amounts feed
// the domain model's swap simulation.
const (
	binArrayHeaderLen  = 8 + 8 + 1 + 7 + 32
	binStateLen        = 8 + 8 + 16 + 16 + 32 + 16 + 16
	binArrayCount      = domain.BinArraySize
	binArrayMinLen     = binArrayHeaderLen + binStateLen*binArrayCount

	binArrayIndexOffset  = 8
	binArrayLBPairOffset = 8 + 8 + 1 + 7
)

// BinArray decodes a Meteora-DLMM-style bin array account.
func BinArray(data []byte) (domain.BinArray, error) {
	if len(data) < binArrayMinLen {
		return domain.BinArray{}, fmt.Errorf("%w: bin array too short: %d < %d", ErrDecode, len(data), binArrayMinLen)
	}
	disc, err := readDiscriminator(data)
	if err != nil {
		return domain.BinArray{}, err
	}
	if disc != DiscriminatorMeteoraBinArray {
		return domain.BinArray{}, fmt.Errorf("%w: bin array discriminator mismatch", ErrDecode)
	}

	index := int64(u64le(data[binArrayIndexOffset : binArrayIndexOffset+8]))
	lbPair, err := pubkey.FromBytes(data[binArrayLBPairOffset : binArrayLBPairOffset+32])
	if err != nil {
		return domain.BinArray{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	out := domain.BinArray{Index: index, LBPair: lbPair}

	pos := binArrayHeaderLen
	for i := 0; i < binArrayCount; i++ {
		amountX := u64le(data[pos : pos+8])
		pos += 8
		amountY := u64le(data[pos : pos+8])
		pos += 8

		// price, liquiditySupply, reward and fee accumulators are
		// carried on chain but not part of the domain model's swap
		// simulation inputs.
		pos += 16 + 16 + 32 + 16 + 16

		out.Bins[i] = domain.Bin{
			AmountX: uint128.From64(amountX),
			AmountY: uint128.From64(amountY),
		}
	}

	return out, nil
}
