package dlmm

import "math/big"

// FeePrecision and MaxFeeRate are the 1e9-precision fee schedule's
// fixed points (spec.md §9: "the 1e9 form is the canonical contract in
// this specification; the bps form is superseded" — resolving the two
// DLMM fee formulations open question).
const (
	FeePrecision = 1_000_000_000
	MaxFeeRate   = 100_000_000 // 10% cap
)

const variableFeeOffset = 99_999_999_999
const variableFeeDivisor = 100_000_000_000

// BaseFeeRate is base_factor * bin_step * 10 * 10^base_fee_power_factor,
// grounded on the teacher's GetBaseFee (price.go).
func BaseFeeRate(baseFactor uint16, binStep uint16, baseFeePowerFactor uint8) *big.Int {
	result := new(big.Int).SetUint64(uint64(baseFactor))
	result.Mul(result, big.NewInt(int64(binStep)))
	result.Mul(result, big.NewInt(10))
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(baseFeePowerFactor)), nil)
	return result.Mul(result, pow)
}

// VariableFeeRate is (variable_fee_control * (volatility*bin_step)^2 +
// OFFSET) / 1e11, grounded on the teacher's ComputeVariableFee.
func VariableFeeRate(variableFeeControl uint32, volatility uint32, binStep uint16) *big.Int {
	if variableFeeControl == 0 {
		return big.NewInt(0)
	}
	vb := new(big.Int).SetUint64(uint64(volatility))
	vb.Mul(vb, big.NewInt(int64(binStep)))
	vb.Mul(vb, vb) // (volatility*bin_step)^2

	vFee := new(big.Int).Mul(big.NewInt(int64(variableFeeControl)), vb)
	vFee.Add(vFee, big.NewInt(variableFeeOffset))
	return vFee.Quo(vFee, big.NewInt(variableFeeDivisor))
}

// TotalFeeRate combines base and (volatility-capped) variable fee,
// saturating at MaxFeeRate (spec.md §4.4.3).
func TotalFeeRate(p FeeParams) *big.Int {
	volatility := p.VolatilityAccum
	if volatility > p.MaxVolatilityAccum {
		volatility = p.MaxVolatilityAccum
	}
	total := new(big.Int).Add(
		BaseFeeRate(p.BaseFactor, p.BinStep, p.BaseFeePowerFactor),
		VariableFeeRate(p.VariableFeeControl, volatility, p.BinStep),
	)
	if total.Cmp(big.NewInt(MaxFeeRate)) > 0 {
		total.SetInt64(MaxFeeRate)
	}
	return total
}

// FeeParams is the subset of domain.DLMM the fee model reads.
type FeeParams struct {
	BaseFactor          uint16
	BaseFeePowerFactor  uint8
	BinStep             uint16
	VariableFeeControl  uint32
	VolatilityAccum     uint32
	MaxVolatilityAccum  uint32
}

// FeeFromAmount computes the ceil-rounded fee owed on an
// amount-including-fees input (spec.md §4.4.3: "fee is deducted from
// input before the bin walk"), grounded on ComputeFeeFromAmount.
func FeeFromAmount(amountWithFees uint64, totalFeeRate *big.Int) uint64 {
	amount := new(big.Int).SetUint64(amountWithFees)
	fee := new(big.Int).Mul(amount, totalFeeRate)
	fee.Add(fee, big.NewInt(FeePrecision-1))
	fee.Quo(fee, big.NewInt(FeePrecision))
	return fee.Uint64()
}
