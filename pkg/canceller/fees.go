package canceller

import (
	"math/big"

	"github.com/pkg/errors"
)

var ErrInvalidFeeArgs = errors.New("canceller: invalid fee args")

// Fees are the EIP-1559 caps of a cancellation, in wei.
type Fees struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// CalcCancellationFees derives fee caps from the node's legacy gas price.
//
// Policy:
// - tipCap = max(suggestedTipCap, minTipCap)
// - feeCap = max(gasPrice * (100 + bumpPercent) / 100, tipCap)
func CalcCancellationFees(gasPrice, suggestedTipCap, minTipCap *big.Int, bumpPercent int) (*Fees, error) {
	if gasPrice == nil || suggestedTipCap == nil || minTipCap == nil {
		return nil, ErrInvalidFeeArgs
	}
	if gasPrice.Sign() < 0 || suggestedTipCap.Sign() < 0 || minTipCap.Sign() < 0 || bumpPercent < 0 {
		return nil, ErrInvalidFeeArgs
	}

	tip := new(big.Int).Set(suggestedTipCap)
	if tip.Cmp(minTipCap) < 0 {
		tip.Set(minTipCap)
	}

	fee := new(big.Int).Mul(gasPrice, big.NewInt(int64(100+bumpPercent)))
	fee.Div(fee, big.NewInt(100))
	if fee.Cmp(tip) < 0 {
		fee.Set(tip)
	}

	return &Fees{MaxFeePerGas: fee, MaxPriorityFeePerGas: tip}, nil
}

func (f *Fees) validate() error {
	if f == nil || f.MaxFeePerGas == nil || f.MaxPriorityFeePerGas == nil {
		return ErrInvalidFeeArgs
	}
	if f.MaxFeePerGas.Sign() < 0 || f.MaxPriorityFeePerGas.Sign() < 0 {
		return ErrInvalidFeeArgs
	}
	if f.MaxFeePerGas.Cmp(f.MaxPriorityFeePerGas) < 0 {
		return ErrInvalidFeeArgs
	}
	return nil
}
