package transactionSigner

import (
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"sync"
	"testing"

	"github.com/Layr-Labs/kms-tx-signer/pkg/logger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/cryptobyte"
	cryptobyteAsn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const (
	// Private key 0x...01; its public key is the secp256k1 generator point.
	generatorPrivateKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"
	generatorAddress       = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	generatorSPKIHex       = "3056301006072a8648ce3d020106052b8104000a034200" +
		"0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798" +
		"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

	testPrivateKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: true})
	require.NoError(t, err)
	return l
}

func mustKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	return key
}

func buildSPKI(t *testing.T, algorithm, curve asn1.ObjectIdentifier, payload []byte) []byte {
	t.Helper()
	var b cryptobyte.Builder
	b.AddASN1(cryptobyteAsn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyteAsn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(algorithm)
			b.AddASN1ObjectIdentifier(curve)
		})
		b.AddASN1BitString(payload)
	})
	der, err := b.Bytes()
	require.NoError(t, err)
	return der
}

// fakeRemoteSigner returns a fixed public key and delegates Sign to signFn.
type fakeRemoteSigner struct {
	publicKey    []byte
	publicKeyErr error
	signFn       func(ctx context.Context, digest []byte) ([]byte, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeRemoteSigner) GetPublicKey(ctx context.Context, keyId string) ([]byte, error) {
	return f.publicKey, f.publicKeyErr
}

func (f *fakeRemoteSigner) Sign(ctx context.Context, keyId string, digest []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.signFn(ctx, digest)
}

func (f *fakeRemoteSigner) signCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
