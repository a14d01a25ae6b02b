package transactionSigner

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignedTransaction is a type 2 transaction in wire format.
type SignedTransaction struct {
	Transaction *types.Transaction
	Raw         []byte
	Hash        common.Hash
}

func (s *SignedTransaction) HashHex() string {
	return s.Hash.Hex()
}

func (s *SignedTransaction) PayloadHex() string {
	return hexutil.Encode(s.Raw)
}

// EncodeSignedTransaction produces 0x02 || rlp([chainId, nonce, maxPriorityFeePerGas,
// maxFeePerGas, gasLimit, to, value, data, accessList, yParity, r, s]) and its keccak256 hash.
func EncodeSignedTransaction(tx *UnsignedTransaction, sig *RecoveredSignature) (*SignedTransaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if sig == nil || sig.R == nil || sig.S == nil {
		return nil, errors.Wrap(ErrEncoding, "signature is incomplete")
	}
	if sig.YParity > 1 {
		return nil, errors.Wrapf(ErrEncoding, "y-parity must be 0 or 1, got %d", sig.YParity)
	}
	if sig.R.BitLen() > 256 || sig.S.BitLen() > 256 {
		return nil, errors.Wrap(ErrEncoding, "signature values do not fit in 256 bits")
	}

	signed, err := types.NewTx(tx.dynamicFeeTx()).WithSignature(tx.signer(), sig.Bytes())
	if err != nil {
		return nil, errors.Wrapf(ErrEncoding, "failed to attach signature: %v", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(ErrEncoding, "failed to marshal transaction: %v", err)
	}

	return &SignedTransaction{
		Transaction: signed,
		Raw:         raw,
		Hash:        crypto.Keccak256Hash(raw),
	}, nil
}
