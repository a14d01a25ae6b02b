package transactionSigner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ITransactionSigner provides methods for signing Ethereum transactions
type ITransactionSigner interface {
	// GetFromAddress returns the address that will be used for signing
	GetFromAddress() common.Address

	// ChainID returns the chain the signer produces transactions for
	ChainID() uint64

	// SignTransaction signs a type 2 transaction and returns its wire encoding
	SignTransaction(ctx context.Context, tx *UnsignedTransaction) (*SignedTransaction, error)

	// SignCancellation signs a zero value self-transfer at nonce
	SignCancellation(ctx context.Context, nonce uint64, maxFeePerGas, maxPriorityFeePerGas *big.Int) (*SignedTransaction, error)
}

// KMSTransactionSigner signs transactions with a key held by a remote signer. The public
// key and address are resolved once at construction; everything else is per call.
type KMSTransactionSigner struct {
	logger      *zap.Logger
	remote      remoteSigner.IRemoteSigner
	keyId       string
	chainId     uint64
	signTimeout time.Duration
	gasLimit    uint64

	publicKey []byte
	address   Address
}

var _ ITransactionSigner = (*KMSTransactionSigner)(nil)

func NewKMSTransactionSigner(ctx context.Context, cfg *config.KMSSignerConfig, remote remoteSigner.IRemoteSigner, logger *zap.Logger) (*KMSTransactionSigner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote signer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	signerCfg := *cfg
	signerCfg.SetDefaults()
	if err := signerCfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid signer configuration")
	}

	der, err := remote.GetPublicKey(ctx, signerCfg.KeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignerUnavailable, err)
	}
	publicKey, err := DecodePublicKeyDER(der)
	if err != nil {
		return nil, err
	}
	address, err := DeriveAddress(publicKey)
	if err != nil {
		return nil, err
	}

	logger.Sugar().Infow("Initialized KMS transaction signer",
		"keyId", signerCfg.KeyID,
		"address", address.Checksum,
		"chainId", signerCfg.ChainID,
	)

	return &KMSTransactionSigner{
		logger:      logger,
		remote:      remote,
		keyId:       signerCfg.KeyID,
		chainId:     uint64(signerCfg.ChainID),
		signTimeout: signerCfg.SignTimeout,
		gasLimit:    signerCfg.GasLimit,
		publicKey:   publicKey,
		address:     address,
	}, nil
}

func (k *KMSTransactionSigner) GetFromAddress() common.Address {
	return k.address.Bytes
}

func (k *KMSTransactionSigner) Address() Address {
	return k.address
}

func (k *KMSTransactionSigner) ChainID() uint64 {
	return k.chainId
}

func (k *KMSTransactionSigner) KeyID() string {
	return k.keyId
}

// PublicKey returns a copy of the 65 byte uncompressed public key.
func (k *KMSTransactionSigner) PublicKey() []byte {
	return common.CopyBytes(k.publicKey)
}

// SignTransaction runs one signing attempt: signing hash, a single remote signature, low-S
// normalisation, y-parity recovery against the signer address, and encoding. Any failure
// aborts the attempt without output.
func (k *KMSTransactionSigner) SignTransaction(ctx context.Context, tx *UnsignedTransaction) (*SignedTransaction, error) {
	if tx == nil {
		return nil, errors.Wrap(ErrEncoding, "transaction is nil")
	}

	unsigned := tx.copy()
	if unsigned.ChainID == 0 {
		unsigned.ChainID = k.chainId
	}
	if unsigned.ChainID != k.chainId {
		return nil, errors.Wrapf(ErrEncoding, "transaction chain id %d does not match signer chain id %d", unsigned.ChainID, k.chainId)
	}
	if unsigned.GasLimit == 0 {
		unsigned.GasLimit = k.gasLimit
	}

	l := k.logger.With(
		zap.String("attemptId", uuid.New().String()),
		zap.String("keyId", k.keyId),
		zap.Uint64("nonce", unsigned.Nonce),
	)

	hash, err := unsigned.SigningHash()
	if err != nil {
		return nil, err
	}
	l.Debug("Computed signing hash", zap.String("signingHash", hash.Hex()))

	raw, err := RequestSignature(ctx, k.remote, k.keyId, hash, k.signTimeout)
	if err != nil {
		return nil, err
	}

	recovered, err := ResolveYParity(hash, raw, k.address)
	if err != nil {
		return nil, err
	}
	l.Debug("Resolved recovery id",
		zap.Uint8("yParity", recovered.YParity),
		zap.String("eip155V", EIP155V(unsigned.ChainID, recovered.YParity).String()),
	)

	signed, err := EncodeSignedTransaction(unsigned, recovered)
	if err != nil {
		return nil, err
	}

	l.Info("Signed transaction",
		zap.String("from", k.address.Checksum),
		zap.String("to", unsigned.To.Hex()),
		zap.String("txHash", signed.HashHex()),
	)
	return signed, nil
}

func (k *KMSTransactionSigner) SignCancellation(ctx context.Context, nonce uint64, maxFeePerGas, maxPriorityFeePerGas *big.Int) (*SignedTransaction, error) {
	tx := NewCancellationTransaction(nonce, k.address, k.chainId, maxFeePerGas, maxPriorityFeePerGas)
	tx.GasLimit = k.gasLimit
	return k.SignTransaction(ctx, tx)
}
