package router

import (
	"fmt"
	"math/big"
)

// computeAmountOut prices an exact-input trade against constant-product
// reserves, applying the fee to the input side:
//
//	inAfterFee = amountIn * (1e6 - fee) / 1e6
//	amountOut  = inAfterFee * reserveOut / (reserveIn + inAfterFee)
func computeAmountOut(amountIn, reserveIn, reserveOut *big.Int, fee FeeTier) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amountIn must be > 0")
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	inAfterFee := new(big.Int).Mul(amountIn, big.NewInt(feeDenominator-int64(fee)))
	inAfterFee.Div(inAfterFee, big.NewInt(feeDenominator))

	numerator := new(big.Int).Mul(inAfterFee, reserveOut)
	denominator := new(big.Int).Add(reserveIn, inAfterFee)
	if denominator.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	return numerator.Div(numerator, denominator), nil
}

// computeAmountIn prices an exact-output trade, rounding the required input
// up so the pool never undercharges:
//
//	amountIn = reserveIn * amountOut * 1e6 / ((reserveOut - amountOut) * (1e6 - fee)) + 1
func computeAmountIn(amountOut, reserveIn, reserveOut *big.Int, fee FeeTier) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("amountOut must be > 0")
	}
	if reserveIn.Sign() <= 0 || reserveOut.Cmp(amountOut) <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, big.NewInt(feeDenominator))

	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, big.NewInt(feeDenominator-int64(fee)))
	if denominator.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	amountIn := numerator.Div(numerator, denominator)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}
