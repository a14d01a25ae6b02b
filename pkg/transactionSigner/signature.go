package transactionSigner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	cryptobyteAsn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	secp256k1N     = new(big.Int).Set(crypto.S256().Params().N)
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// RawSignature is an ECDSA (r, s) pair as returned by the remote signer.
type RawSignature struct {
	R *big.Int
	S *big.Int
}

// RequestSignature asks the remote signer for exactly one signature over hash and returns it
// decoded and in low-S form. The call is bounded by timeout when it is positive.
func RequestSignature(ctx context.Context, signer remoteSigner.IRemoteSigner, keyId string, hash common.Hash, timeout time.Duration) (*RawSignature, error) {
	signCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		signCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	der, err := signer.Sign(signCtx, keyId, hash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignerUnavailable, err)
	}
	// A response that arrives after the deadline belongs to an abandoned attempt.
	if err := signCtx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignerUnavailable, err)
	}

	sig, err := DecodeSignatureDER(der)
	if err != nil {
		return nil, err
	}
	sig.S = NormalizeS(sig.S)
	return sig, nil
}

// DecodeSignatureDER parses a DER Ecdsa-Sig-Value SEQUENCE { r INTEGER, s INTEGER }.
// Both values must lie in [1, N-1].
func DecodeSignatureDER(der []byte) (*RawSignature, error) {
	input := cryptobyte.String(der)

	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyteAsn1.SEQUENCE) || !input.Empty() {
		return nil, errors.Wrap(ErrMalformedSignature, "not a single DER sequence")
	}

	r, s := new(big.Int), new(big.Int)
	if !seq.ReadASN1Integer(r) {
		return nil, errors.Wrap(ErrMalformedSignature, "missing r")
	}
	if !seq.ReadASN1Integer(s) {
		return nil, errors.Wrap(ErrMalformedSignature, "missing s")
	}
	if !seq.Empty() {
		return nil, errors.Wrap(ErrMalformedSignature, "trailing data after s")
	}
	if !inScalarRange(r) {
		return nil, errors.Wrap(ErrMalformedSignature, "r out of range")
	}
	if !inScalarRange(s) {
		return nil, errors.Wrap(ErrMalformedSignature, "s out of range")
	}
	return &RawSignature{R: r, S: s}, nil
}

// NormalizeS maps s into the lower half of the curve order. N - s is the other valid s for
// the same (hash, r), so no re-signing is needed.
func NormalizeS(s *big.Int) *big.Int {
	if s.Cmp(secp256k1HalfN) > 0 {
		return new(big.Int).Sub(secp256k1N, s)
	}
	return new(big.Int).Set(s)
}

// IsLowS reports whether s <= N/2.
func IsLowS(s *big.Int) bool {
	return s.Cmp(secp256k1HalfN) <= 0
}

func inScalarRange(v *big.Int) bool {
	return v.Sign() > 0 && v.Cmp(secp256k1N) < 0
}
