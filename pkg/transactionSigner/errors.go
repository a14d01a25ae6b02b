package transactionSigner

import "github.com/pkg/errors"

var (
	// ErrMalformedKey is returned when the DER SubjectPublicKeyInfo cannot be decoded.
	ErrMalformedKey = errors.New("malformed public key")

	// ErrInvalidPublicKey is returned when a raw point is not a 65 byte uncompressed point.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrSignerUnavailable is returned when the remote signer errors, times out or is cancelled.
	ErrSignerUnavailable = errors.New("remote signer unavailable")

	// ErrMalformedSignature is returned when the DER signature cannot be decoded or is out of range.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrRecoveryFailed is returned when neither y-parity recovers the expected address.
	ErrRecoveryFailed = errors.New("signature recovery failed")

	// ErrEncoding is returned when a transaction field is out of range for the wire format.
	ErrEncoding = errors.New("transaction encoding failed")
)
