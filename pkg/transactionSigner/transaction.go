package transactionSigner

import (
	"math/big"

	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// UnsignedTransaction holds the fields of an EIP-1559 (type 2) transaction.
type UnsignedTransaction struct {
	Nonce                uint64
	To                   common.Address
	Value                *big.Int // nil means zero
	Data                 []byte
	GasLimit             uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ChainID              uint64
}

// NewCancellationTransaction builds a zero value self-transfer used to replace whatever is
// pending at nonce.
func NewCancellationTransaction(nonce uint64, self Address, chainID uint64, maxFeePerGas, maxPriorityFeePerGas *big.Int) *UnsignedTransaction {
	return &UnsignedTransaction{
		Nonce:                nonce,
		To:                   self.Bytes,
		Value:                big.NewInt(0),
		GasLimit:             config.DefaultGasLimit,
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: maxPriorityFeePerGas,
		ChainID:              chainID,
	}
}

// Validate checks every field fits the type 2 wire format.
func (tx *UnsignedTransaction) Validate() error {
	if tx == nil {
		return errors.Wrap(ErrEncoding, "transaction is nil")
	}
	if tx.ChainID == 0 {
		return errors.Wrap(ErrEncoding, "chain id must be positive")
	}
	if tx.GasLimit == 0 {
		return errors.Wrap(ErrEncoding, "gas limit must be positive")
	}
	if tx.Value != nil {
		if err := checkUint256("value", tx.Value); err != nil {
			return err
		}
	}
	if tx.MaxFeePerGas == nil {
		return errors.Wrap(ErrEncoding, "maxFeePerGas is required")
	}
	if tx.MaxPriorityFeePerGas == nil {
		return errors.Wrap(ErrEncoding, "maxPriorityFeePerGas is required")
	}
	if err := checkUint256("maxFeePerGas", tx.MaxFeePerGas); err != nil {
		return err
	}
	if err := checkUint256("maxPriorityFeePerGas", tx.MaxPriorityFeePerGas); err != nil {
		return err
	}
	if tx.MaxFeePerGas.Cmp(tx.MaxPriorityFeePerGas) < 0 {
		return errors.Wrapf(ErrEncoding, "maxFeePerGas %s is below maxPriorityFeePerGas %s", tx.MaxFeePerGas, tx.MaxPriorityFeePerGas)
	}
	return nil
}

// SigningHash returns keccak256(0x02 || rlp([chainId, nonce, maxPriorityFeePerGas,
// maxFeePerGas, gasLimit, to, value, data, accessList])).
func (tx *UnsignedTransaction) SigningHash() (common.Hash, error) {
	if err := tx.Validate(); err != nil {
		return common.Hash{}, err
	}
	return tx.signer().Hash(types.NewTx(tx.dynamicFeeTx())), nil
}

func (tx *UnsignedTransaction) signer() types.Signer {
	return types.NewLondonSigner(new(big.Int).SetUint64(tx.ChainID))
}

func (tx *UnsignedTransaction) dynamicFeeTx() *types.DynamicFeeTx {
	value := new(big.Int)
	if tx.Value != nil {
		value.Set(tx.Value)
	}
	to := tx.To

	return &types.DynamicFeeTx{
		ChainID:    new(big.Int).SetUint64(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  new(big.Int).Set(tx.MaxPriorityFeePerGas),
		GasFeeCap:  new(big.Int).Set(tx.MaxFeePerGas),
		Gas:        tx.GasLimit,
		To:         &to,
		Value:      value,
		Data:       common.CopyBytes(tx.Data),
		AccessList: types.AccessList{},
	}
}

func (tx *UnsignedTransaction) copy() *UnsignedTransaction {
	cpy := *tx
	cpy.Data = common.CopyBytes(tx.Data)
	return &cpy
}

func checkUint256(name string, v *big.Int) error {
	if v.Sign() < 0 {
		return errors.Wrapf(ErrEncoding, "%s must not be negative, got %s", name, v)
	}
	if v.BitLen() > 256 {
		return errors.Wrapf(ErrEncoding, "%s does not fit in 256 bits", name)
	}
	return nil
}
