package transactionSigner

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// RecoveredSignature is a low-S signature plus the y-parity the remote signer does not return.
type RecoveredSignature struct {
	RawSignature
	YParity uint8
}

// Bytes returns the 65 byte [R || S || yParity] form.
func (s *RecoveredSignature) Bytes() []byte {
	sig := make([]byte, crypto.SignatureLength)
	s.R.FillBytes(sig[0:32])
	s.S.FillBytes(sig[32:64])
	sig[crypto.RecoveryIDOffset] = s.YParity
	return sig
}

// EIP155V returns the legacy recovery indicator chainId*2 + 35 + yParity. Type 2
// transactions carry yParity itself; this form is only used for reporting.
func EIP155V(chainID uint64, yParity uint8) *big.Int {
	v := new(big.Int).SetUint64(chainID)
	v.Mul(v, big.NewInt(2))
	return v.Add(v, big.NewInt(35+int64(yParity)))
}

// ResolveYParity tries y-parity 0 then 1 and returns the first whose recovered public key
// hashes to expected.
func ResolveYParity(hash common.Hash, sig *RawSignature, expected Address) (*RecoveredSignature, error) {
	if sig == nil || sig.R == nil || sig.S == nil {
		return nil, errors.Wrap(ErrRecoveryFailed, "signature is incomplete")
	}
	if !inScalarRange(sig.R) || !inScalarRange(sig.S) {
		return nil, errors.Wrap(ErrRecoveryFailed, "signature values out of range")
	}

	for yParity := uint8(0); yParity <= 1; yParity++ {
		candidate := &RecoveredSignature{RawSignature: *sig, YParity: yParity}

		publicKey, err := crypto.Ecrecover(hash.Bytes(), candidate.Bytes())
		if err != nil {
			continue
		}
		recovered, err := DeriveAddress(publicKey)
		if err != nil {
			continue
		}
		if recovered.Bytes == expected.Bytes {
			return candidate, nil
		}
	}

	return nil, errors.Wrapf(ErrRecoveryFailed, "no y-parity recovers %s", expected)
}
