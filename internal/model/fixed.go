package model

import sdkmath "cosmossdk.io/math"

// IndexDecimals is the fixed-point precision of vault and tier indices.
const IndexDecimals = 18

// BpsDenominator is the basis-point scale for fees and allocations.
const BpsDenominator = 10000

var (
	// IndexScale is 1.0 expressed as a fixed-point index.
	IndexScale = sdkmath.NewIntWithDecimal(1, IndexDecimals)

	bpsScale = sdkmath.NewInt(BpsDenominator)
)

// NewIndex returns num/den as a fixed-point index, truncated toward zero.
func NewIndex(num, den int64) sdkmath.Int {
	return IndexScale.MulRaw(num).QuoRaw(den)
}

// MulDiv computes a*b/c, multiplying before dividing and truncating toward zero.
func MulDiv(a, b, c sdkmath.Int) sdkmath.Int {
	return a.Mul(b).Quo(c)
}

// ApplyBps returns amount*bps/10000 truncated toward zero.
func ApplyBps(amount sdkmath.Int, bps uint32) sdkmath.Int {
	return amount.Mul(sdkmath.NewIntFromUint64(uint64(bps))).Quo(bpsScale)
}

// OrZero maps an unset Int to zero so decoded records never carry nil values.
func OrZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}
