package remoteSigner

import "context"

// IRemoteSigner is a key custody service that never releases private key material.
// Both operations return DER: GetPublicKey a SubjectPublicKeyInfo, Sign an Ecdsa-Sig-Value.
type IRemoteSigner interface {
	// GetPublicKey returns the DER-encoded SubjectPublicKeyInfo for keyId.
	GetPublicKey(ctx context.Context, keyId string) ([]byte, error)

	// Sign signs a 32 byte digest as-is. Implementations must not hash the digest again.
	Sign(ctx context.Context, keyId string, digest []byte) ([]byte, error)
}
