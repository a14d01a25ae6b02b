package awsKms

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// kmsAPI is the subset of the KMS client used by the signer.
type kmsAPI interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
}

type AWSKMSSigner struct {
	logger    *zap.Logger
	kmsClient kmsAPI
	awsRegion string
	chainName config.ChainName
	limiter   *rate.Limiter
}

var _ remoteSigner.IRemoteSigner = (*AWSKMSSigner)(nil)

func NewAWSKMSSigner(awsCfg aws.Config, awsRegion string, cfg *config.KMSSignerConfig, logger *zap.Logger) *AWSKMSSigner {
	kmsClient := kms.NewFromConfig(awsCfg, func(o *kms.Options) {
		if awsRegion != "" {
			o.Region = awsRegion
		}
	})
	return newAWSKMSSigner(kmsClient, awsRegion, cfg, logger)
}

func newAWSKMSSigner(client kmsAPI, awsRegion string, cfg *config.KMSSignerConfig, logger *zap.Logger) *AWSKMSSigner {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = config.DefaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &AWSKMSSigner{
		logger:    logger,
		kmsClient: client,
		awsRegion: awsRegion,
		chainName: config.GetChainName(cfg.ChainID),
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GetPublicKey returns the DER SubjectPublicKeyInfo of a secp256k1 signing key.
func (a *AWSKMSSigner) GetPublicKey(ctx context.Context, keyId string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := a.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(keyId),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for key %s in region %s", keyId, a.awsRegion)
	}
	if result.KeySpec != types.KeySpecEccSecgP256k1 {
		return nil, fmt.Errorf("key %s has spec %s, expected %s", keyId, result.KeySpec, types.KeySpecEccSecgP256k1)
	}
	if result.KeyUsage != types.KeyUsageTypeSignVerify {
		return nil, fmt.Errorf("key %s has usage %s, expected %s", keyId, result.KeyUsage, types.KeyUsageTypeSignVerify)
	}

	a.logger.Debug("Fetched public key from KMS",
		zap.String("keyId", keyId),
		zap.String("region", a.awsRegion),
		zap.Int("derLen", len(result.PublicKey)),
	)
	return result.PublicKey, nil
}

// Sign asks KMS for an ECDSA signature over a precomputed digest. The response is DER.
func (a *AWSKMSSigner) Sign(ctx context.Context, keyId string, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be exactly 32 bytes, got %d", len(digest))
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	signOutput, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(keyId),
		Message:          digest,
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      types.MessageTypeDigest,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign digest with key %s in region %s", keyId, a.awsRegion)
	}

	a.logger.Debug("Signed digest with KMS",
		zap.String("keyId", keyId),
		zap.Int("signatureLen", len(signOutput.Signature)),
	)
	return signOutput.Signature, nil
}

// CreateSigningKey creates a secp256k1 SIGN_VERIFY key with an alias and returns its key id.
func (a *AWSKMSSigner) CreateSigningKey(ctx context.Context, keyName string, aliasName string) (string, error) {
	keyRes, err := a.createEthereumSigningKey(ctx, keyName)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create ECDSA key %s in region %s", keyName, a.awsRegion)
	}
	if keyRes.KeyMetadata == nil || keyRes.KeyMetadata.KeyId == nil {
		return "", fmt.Errorf("KMS returned no key id for key %s", keyName)
	}
	keyId := *keyRes.KeyMetadata.KeyId

	if aliasName != "" {
		if err := a.createKeyAlias(ctx, keyId, aliasName); err != nil {
			return "", errors.Wrapf(err, "failed to create alias %s for key %s in region %s", aliasName, keyId, a.awsRegion)
		}
	}
	return keyId, nil
}

func (a *AWSKMSSigner) createEthereumSigningKey(ctx context.Context, keyName string) (*kms.CreateKeyOutput, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	input := &kms.CreateKeyInput{
		KeyUsage:    types.KeyUsageTypeSignVerify,
		KeySpec:     types.KeySpecEccSecgP256k1,
		Description: aws.String(fmt.Sprintf("ECDSA key for Ethereum transaction signing - %s", keyName)),
		Tags: []types.Tag{
			{
				TagKey:   aws.String("Name"),
				TagValue: aws.String(keyName),
			},
			{
				TagKey:   aws.String("Environment"),
				TagValue: aws.String(string(a.chainName)),
			},
			{
				TagKey:   aws.String("Purpose"),
				TagValue: aws.String("transaction-signing"),
			},
			{
				TagKey:   aws.String("Curve"),
				TagValue: aws.String("secp256k1"),
			},
		},
	}

	result, err := a.kmsClient.CreateKey(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS key: %w", err)
	}
	return result, nil
}

func (a *AWSKMSSigner) createKeyAlias(ctx context.Context, keyId, aliasName string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := a.kmsClient.CreateAlias(ctx, &kms.CreateAliasInput{
		AliasName:   aws.String(fmt.Sprintf("alias/%s", aliasName)),
		TargetKeyId: aws.String(keyId),
	})
	if err != nil {
		return fmt.Errorf("failed to create key alias: %w", err)
	}

	a.logger.Sugar().Infow("Created KMS key alias", "alias", fmt.Sprintf("alias/%s", aliasName), "keyId", keyId)
	return nil
}
