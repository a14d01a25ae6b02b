package transactionSigner

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner/localSigner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const testKeyId = "alias/test-tx-signer"

func newLocalTransactionSigner(t *testing.T, chainId config.ChainId, highS bool) (*KMSTransactionSigner, *localSigner.LocalSigner) {
	t.Helper()
	l := testLogger(t)

	remote := localSigner.NewLocalSigner(l)
	require.NoError(t, remote.LoadPrivateKeyFromHex(testKeyId, "0x"+testPrivateKeyHex))
	remote.SetHighS(highS)

	signer, err := NewKMSTransactionSigner(context.Background(), &config.KMSSignerConfig{
		KeyID:   testKeyId,
		ChainID: chainId,
	}, remote, l)
	require.NoError(t, err)
	return signer, remote
}

func Test_KMSTransactionSigner_EndToEndCancellation(t *testing.T) {
	key := mustKey(t, testPrivateKeyHex)
	expectedFrom := crypto.PubkeyToAddress(key.PublicKey)

	signer, remote := newLocalTransactionSigner(t, config.ChainId_EthereumMainnet, false)
	require.Equal(t, expectedFrom, signer.GetFromAddress())
	require.Equal(t, expectedFrom.Hex(), signer.Address().Checksum)
	require.Equal(t, crypto.FromECDSAPub(&key.PublicKey), signer.PublicKey())

	signed, err := signer.SignCancellation(context.Background(), 5, gwei(30), gwei(2))
	require.NoError(t, err)
	require.Equal(t, 1, remote.GetSignCount())

	decoded := new(types.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(signed.Raw))
	require.Equal(t, uint64(5), decoded.Nonce())
	require.Equal(t, expectedFrom, *decoded.To())
	require.Equal(t, 0, decoded.Value().Sign())
	require.Equal(t, uint64(21000), decoded.Gas())
	require.Equal(t, uint64(1), decoded.ChainId().Uint64())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), decoded)
	require.NoError(t, err)
	require.Equal(t, expectedFrom, sender)

	// Deterministic signer: identical inputs give an identical transaction hash.
	again, err := signer.SignCancellation(context.Background(), 5, gwei(30), gwei(2))
	require.NoError(t, err)
	require.Equal(t, signed.Hash, again.Hash)
	require.Equal(t, signed.Raw, again.Raw)
	require.Equal(t, 2, remote.GetSignCount())

	// A signer that answers with high-S values yields the same canonical transaction.
	highSigner, _ := newLocalTransactionSigner(t, config.ChainId_EthereumMainnet, true)
	fromHigh, err := highSigner.SignCancellation(context.Background(), 5, gwei(30), gwei(2))
	require.NoError(t, err)
	require.Equal(t, signed.Hash, fromHigh.Hash)
}

func Test_KMSTransactionSigner_SignTransaction(t *testing.T) {
	signer, _ := newLocalTransactionSigner(t, 8453, false)

	tx := testTransaction()
	tx.GasLimit = 0
	tx.ChainID = 0

	signed, err := signer.SignTransaction(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, config.DefaultGasLimit, signed.Transaction.Gas())
	require.Equal(t, uint64(8453), signed.Transaction.ChainId().Uint64())

	// The caller's transaction is left untouched.
	require.Equal(t, uint64(0), tx.GasLimit)
	require.Equal(t, uint64(0), tx.ChainID)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), signed.Transaction)
	require.NoError(t, err)
	require.Equal(t, signer.GetFromAddress(), sender)
}

func Test_KMSTransactionSigner_ChainMismatch(t *testing.T) {
	signer, remote := newLocalTransactionSigner(t, config.ChainId_EthereumSepolia, false)

	tx := testTransaction()
	_, err := signer.SignTransaction(context.Background(), tx)
	require.ErrorIs(t, err, ErrEncoding)
	require.Equal(t, 0, remote.GetSignCount())

	_, err = signer.SignTransaction(context.Background(), nil)
	require.ErrorIs(t, err, ErrEncoding)
}

func Test_KMSTransactionSigner_FailuresAbortWithoutOutput(t *testing.T) {
	l := testLogger(t)
	key := mustKey(t, testPrivateKeyHex)
	der, err := localSigner.MarshalSubjectPublicKeyInfo(crypto.FromECDSAPub(&key.PublicKey))
	require.NoError(t, err)

	newSigner := func(t *testing.T, fake *fakeRemoteSigner) *KMSTransactionSigner {
		fake.publicKey = der
		signer, err := NewKMSTransactionSigner(context.Background(), &config.KMSSignerConfig{
			KeyID:       testKeyId,
			ChainID:     config.ChainId_EthereumMainnet,
			SignTimeout: 50 * time.Millisecond,
		}, fake, l)
		require.NoError(t, err)
		return signer
	}

	t.Run("signer unavailable", func(t *testing.T) {
		fake := &fakeRemoteSigner{signFn: func(ctx context.Context, digest []byte) ([]byte, error) {
			return nil, errors.New("connection reset")
		}}
		signed, err := newSigner(t, fake).SignCancellation(context.Background(), 1, gwei(30), gwei(2))
		require.ErrorIs(t, err, ErrSignerUnavailable)
		require.Nil(t, signed)
		require.Equal(t, 1, fake.signCalls())
	})

	t.Run("signer timeout", func(t *testing.T) {
		fake := &fakeRemoteSigner{signFn: func(ctx context.Context, digest []byte) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		signed, err := newSigner(t, fake).SignCancellation(context.Background(), 1, gwei(30), gwei(2))
		require.ErrorIs(t, err, ErrSignerUnavailable)
		require.Nil(t, signed)
		require.Equal(t, 1, fake.signCalls())
	})

	t.Run("malformed signature", func(t *testing.T) {
		fake := &fakeRemoteSigner{signFn: func(ctx context.Context, digest []byte) ([]byte, error) {
			return localSigner.MarshalECDSASignature(big.NewInt(1), secp256k1N)
		}}
		signed, err := newSigner(t, fake).SignCancellation(context.Background(), 1, gwei(30), gwei(2))
		require.ErrorIs(t, err, ErrMalformedSignature)
		require.Nil(t, signed)
	})

	t.Run("signature from another key", func(t *testing.T) {
		other := mustKey(t, generatorPrivateKeyHex)
		fake := &fakeRemoteSigner{signFn: func(ctx context.Context, digest []byte) ([]byte, error) {
			r, s, _ := signHash(t, other, common.BytesToHash(digest))
			return localSigner.MarshalECDSASignature(r, s)
		}}
		signed, err := newSigner(t, fake).SignCancellation(context.Background(), 1, gwei(30), gwei(2))
		require.ErrorIs(t, err, ErrRecoveryFailed)
		require.Nil(t, signed)
		require.Equal(t, 1, fake.signCalls())
	})

	t.Run("invalid fees never reach the signer", func(t *testing.T) {
		fake := &fakeRemoteSigner{signFn: func(ctx context.Context, digest []byte) ([]byte, error) {
			t.Fatal("signer must not be called")
			return nil, nil
		}}
		_, err := newSigner(t, fake).SignCancellation(context.Background(), 1, gwei(1), gwei(2))
		require.ErrorIs(t, err, ErrEncoding)
		require.Equal(t, 0, fake.signCalls())
	})
}

func TestNewKMSTransactionSigner_Errors(t *testing.T) {
	l := testLogger(t)
	cfg := &config.KMSSignerConfig{KeyID: testKeyId, ChainID: config.ChainId_EthereumMainnet}

	t.Run("public key fetch fails", func(t *testing.T) {
		fake := &fakeRemoteSigner{publicKeyErr: errors.New("access denied")}
		_, err := NewKMSTransactionSigner(context.Background(), cfg, fake, l)
		require.ErrorIs(t, err, ErrSignerUnavailable)
	})

	t.Run("malformed public key", func(t *testing.T) {
		fake := &fakeRemoteSigner{publicKey: []byte{0x30, 0x00}}
		_, err := NewKMSTransactionSigner(context.Background(), cfg, fake, l)
		require.ErrorIs(t, err, ErrMalformedKey)
	})

	t.Run("invalid config", func(t *testing.T) {
		fake := &fakeRemoteSigner{}
		_, err := NewKMSTransactionSigner(context.Background(), &config.KMSSignerConfig{}, fake, l)
		require.Error(t, err)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewKMSTransactionSigner(context.Background(), nil, &fakeRemoteSigner{}, l)
		require.Error(t, err)
		_, err = NewKMSTransactionSigner(context.Background(), cfg, nil, l)
		require.Error(t, err)
	})
}
