// Package binmath implements the fixed-point price and in-bin exchange
// primitives of a liquidity-book pool: bin-id to price conversion in Q128.128
// and the amounts swapped against one bin's reserves.
package binmath

import (
	"errors"
	"math/big"
)

const (
	// IDOffset is the bin id of price 1.0; on-chain ids are uint24 centered
	// on 2^23.
	IDOffset = int64(1) << 23
	// BasisPointMax is the bin-step denominator: a step of 1 is 0.01%.
	BasisPointMax = 10_000
)

var (
	// scaleOffset is the number of fractional bits of the Q128.128 format.
	scaleOffset = uint(128)
	scale       = new(big.Int).Lsh(big.NewInt(1), scaleOffset)
	scaleSq     = new(big.Int).Lsh(big.NewInt(1), 2*scaleOffset)

	feeDenominator = big.NewInt(1_000_000)
	one            = big.NewInt(1)

	ErrInvalidBinStep = errors.New("bin step out of range")
	ErrPriceUnderflow = errors.New("price underflow")
)

// PriceFromID returns the Q128.128 price of a bin: (1 + binStep/10000)^(id -
// 2^23). Price strictly increases with the id.
func PriceFromID(id int64, binStep uint16) (*big.Int, error) {
	if binStep == 0 || int(binStep) > BasisPointMax {
		return nil, ErrInvalidBinStep
	}

	// base = 1 + binStep/10000 in Q128.128
	base := new(big.Int).Div(
		new(big.Int).Lsh(big.NewInt(int64(binStep)), scaleOffset),
		big.NewInt(BasisPointMax),
	)
	base.Add(base, scale)

	exp := id - IDOffset
	neg := exp < 0
	if neg {
		exp = -exp
	}

	// Square-and-multiply in Q128.128.
	result := new(big.Int).Set(scale)
	sq := new(big.Int).Set(base)
	tmp := new(big.Int)
	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			tmp.Mul(result, sq)
			result.Rsh(tmp, scaleOffset)
		}
		tmp.Mul(sq, sq)
		sq.Rsh(tmp, scaleOffset)
	}

	if neg {
		if result.Sign() == 0 {
			return nil, ErrPriceUnderflow
		}
		result.Div(scaleSq, result)
	}
	if result.Sign() == 0 {
		return nil, ErrPriceUnderflow
	}
	return result, nil
}

// mulShiftRoundDown returns (x * priceX128) >> 128.
func mulShiftRoundDown(x, priceX128 *big.Int) *big.Int {
	out := new(big.Int).Mul(x, priceX128)
	return out.Rsh(out, scaleOffset)
}

// shiftDivRoundUp returns ceil((x << 128) / priceX128).
func shiftDivRoundUp(x, priceX128 *big.Int) *big.Int {
	num := new(big.Int).Lsh(x, scaleOffset)
	out, rem := new(big.Int).DivMod(num, priceX128, new(big.Int))
	if rem.Sign() > 0 {
		out.Add(out, one)
	}
	return out
}

// feeOnGross returns ceil(gross * feePpm / 1e6): the fee included in a gross
// input amount.
func feeOnGross(gross *big.Int, feePpm uint32) *big.Int {
	num := new(big.Int).Mul(gross, new(big.Int).SetUint64(uint64(feePpm)))
	out, rem := new(big.Int).DivMod(num, feeDenominator, new(big.Int))
	if rem.Sign() > 0 {
		out.Add(out, one)
	}
	return out
}

// feeToGrossUp returns ceil(net * feePpm / (1e6 - feePpm)): the fee to add on
// top of a net input amount.
func feeToGrossUp(net *big.Int, feePpm uint32) *big.Int {
	num := new(big.Int).Mul(net, new(big.Int).SetUint64(uint64(feePpm)))
	den := new(big.Int).Sub(feeDenominator, new(big.Int).SetUint64(uint64(feePpm)))
	out, rem := new(big.Int).DivMod(num, den, new(big.Int))
	if rem.Sign() > 0 {
		out.Add(out, one)
	}
	return out
}

// SwapAmounts is the outcome of swapping against a single bin.
type SwapAmounts struct {
	// AmountInWithFees is the gross input consumed by this bin, fee included.
	AmountInWithFees *big.Int
	// AmountOut is the output produced by this bin.
	AmountOut *big.Int
	// Fee is the portion of AmountInWithFees charged as fee.
	Fee *big.Int
}

// GetSwapAmountsIn computes how much of amountInLeft one bin absorbs in an
// exact-input swap. swapForY sells X for the bin's Y reserves at the bin
// price; the bin never pays out more than it holds.
func GetSwapAmountsIn(reserveX, reserveY, amountInLeft, priceX128 *big.Int, feePpm uint32, swapForY bool) SwapAmounts {
	binReserveOut := reserveY
	if !swapForY {
		binReserveOut = reserveX
	}

	var maxAmountIn *big.Int
	if swapForY {
		maxAmountIn = shiftDivRoundUp(binReserveOut, priceX128)
	} else {
		maxAmountIn = mulShiftRoundUp(binReserveOut, priceX128)
	}
	maxFee := feeToGrossUp(maxAmountIn, feePpm)
	maxAmountInWithFees := new(big.Int).Add(maxAmountIn, maxFee)

	if amountInLeft.Cmp(maxAmountInWithFees) >= 0 {
		// Bin drained whole.
		return SwapAmounts{
			AmountInWithFees: maxAmountInWithFees,
			AmountOut:        new(big.Int).Set(binReserveOut),
			Fee:              maxFee,
		}
	}

	fee := feeOnGross(amountInLeft, feePpm)
	net := new(big.Int).Sub(amountInLeft, fee)
	var out *big.Int
	if swapForY {
		out = mulShiftRoundDown(net, priceX128)
	} else {
		out = shiftDivRoundDown(net, priceX128)
	}
	if out.Cmp(binReserveOut) > 0 {
		out.Set(binReserveOut)
	}
	return SwapAmounts{
		AmountInWithFees: new(big.Int).Set(amountInLeft),
		AmountOut:        out,
		Fee:              fee,
	}
}

// GetSwapAmountsOut computes the gross input one bin requires to produce up
// to amountOutLeft in an exact-output swap.
func GetSwapAmountsOut(reserveX, reserveY, amountOutLeft, priceX128 *big.Int, feePpm uint32, swapForY bool) SwapAmounts {
	binReserveOut := reserveY
	if !swapForY {
		binReserveOut = reserveX
	}

	out := new(big.Int).Set(amountOutLeft)
	if out.Cmp(binReserveOut) > 0 {
		out.Set(binReserveOut)
	}

	var amountIn *big.Int
	if swapForY {
		amountIn = shiftDivRoundUp(out, priceX128)
	} else {
		amountIn = mulShiftRoundUp(out, priceX128)
	}
	fee := feeToGrossUp(amountIn, feePpm)
	return SwapAmounts{
		AmountInWithFees: new(big.Int).Add(amountIn, fee),
		AmountOut:        out,
		Fee:              fee,
	}
}

// mulShiftRoundUp returns ceil((x * priceX128) >> 128).
func mulShiftRoundUp(x, priceX128 *big.Int) *big.Int {
	prod := new(big.Int).Mul(x, priceX128)
	out := new(big.Int).Rsh(prod, scaleOffset)
	rem := new(big.Int).And(prod, new(big.Int).Sub(scale, one))
	if rem.Sign() > 0 {
		out.Add(out, one)
	}
	return out
}

// shiftDivRoundDown returns (x << 128) / priceX128.
func shiftDivRoundDown(x, priceX128 *big.Int) *big.Int {
	num := new(big.Int).Lsh(x, scaleOffset)
	return num.Div(num, priceX128)
}
