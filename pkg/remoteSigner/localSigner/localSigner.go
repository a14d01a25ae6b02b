package localSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/cryptobyte"
	cryptobyteAsn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidPublicKeyECDSA      = []int{1, 2, 840, 10045, 2, 1}
	oidNamedCurveSecp256k1 = []int{1, 3, 132, 0, 10}
)

// LocalSigner holds secp256k1 keys in memory and answers with the same DER encodings a
// cloud KMS returns. Signatures are deterministic (RFC 6979).
type LocalSigner struct {
	logger *zap.Logger

	mu        sync.RWMutex
	keyStore  map[string]*ecdsa.PrivateKey // keyId -> private key
	highS     bool
	signCount int
}

var _ remoteSigner.IRemoteSigner = (*LocalSigner)(nil)

func NewLocalSigner(logger *zap.Logger) *LocalSigner {
	return &LocalSigner{
		logger:   logger,
		keyStore: make(map[string]*ecdsa.PrivateKey),
	}
}

// SetHighS makes Sign return the upper-half s value, as KMS services are free to do.
func (l *LocalSigner) SetHighS(highS bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.highS = highS
}

// GenerateKey creates a new key and returns its id.
func (l *LocalSigner) GenerateKey() (string, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	keyId := fmt.Sprintf("local-key-%s", uuid.New().String())
	if err := l.LoadPrivateKey(keyId, privateKey); err != nil {
		return "", err
	}
	return keyId, nil
}

// LoadPrivateKey loads a pre-existing private key into the key store.
func (l *LocalSigner) LoadPrivateKey(keyId string, privateKey *ecdsa.PrivateKey) error {
	if privateKey == nil {
		return fmt.Errorf("private key cannot be nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.keyStore[keyId]; exists {
		return fmt.Errorf("key with ID %s already exists", keyId)
	}
	l.keyStore[keyId] = privateKey

	l.logger.Info("Loaded private key into store",
		zap.String("keyId", keyId),
		zap.String("address", crypto.PubkeyToAddress(privateKey.PublicKey).Hex()),
	)
	return nil
}

// LoadPrivateKeyFromHex loads a hex private key, with or without a 0x prefix.
func (l *LocalSigner) LoadPrivateKeyFromHex(keyId string, privateKeyHex string) error {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return fmt.Errorf("failed to parse private key from hex: %w", err)
	}
	return l.LoadPrivateKey(keyId, privateKey)
}

func (l *LocalSigner) GetPublicKey(ctx context.Context, keyId string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	privateKey, err := l.getKey(keyId)
	if err != nil {
		return nil, err
	}
	return MarshalSubjectPublicKeyInfo(crypto.FromECDSAPub(&privateKey.PublicKey))
}

func (l *LocalSigner) Sign(ctx context.Context, keyId string, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be exactly 32 bytes, got %d", len(digest))
	}
	privateKey, err := l.getKey(keyId)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest with key %s: %w", keyId, err)
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])

	l.mu.Lock()
	l.signCount++
	highS := l.highS
	l.mu.Unlock()

	if highS {
		s.Sub(crypto.S256().Params().N, s)
	}

	l.logger.Debug("Signed digest with local key",
		zap.String("keyId", keyId),
		zap.Bool("highS", highS),
	)
	return MarshalECDSASignature(r, s)
}

// GetSignCount returns how many digests have been signed.
func (l *LocalSigner) GetSignCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.signCount
}

func (l *LocalSigner) getKey(keyId string) (*ecdsa.PrivateKey, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	privateKey, exists := l.keyStore[keyId]
	if !exists {
		return nil, fmt.Errorf("key with ID %s not found", keyId)
	}
	return privateKey, nil
}

// MarshalSubjectPublicKeyInfo wraps a 65 byte uncompressed secp256k1 point in a DER
// SubjectPublicKeyInfo.
func MarshalSubjectPublicKeyInfo(point []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyteAsn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyteAsn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidPublicKeyECDSA)
			b.AddASN1ObjectIdentifier(oidNamedCurveSecp256k1)
		})
		b.AddASN1BitString(point)
	})
	return b.Bytes()
}

// MarshalECDSASignature encodes (r, s) as a DER Ecdsa-Sig-Value.
func MarshalECDSASignature(r, s *big.Int) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyteAsn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}
