package main

import (
	"context"
	"encoding/hex"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/kms-tx-signer/internal/aws"
	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/Layr-Labs/kms-tx-signer/pkg/logger"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner/awsKms"
	"github.com/Layr-Labs/kms-tx-signer/pkg/transactionSigner"
)

func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	ctx := context.Background()

	keyId := os.Getenv(config.EnvKeyID)
	if keyId == "" {
		l.Sugar().Fatalf("%s environment variable is not set", config.EnvKeyID)
	}
	region := os.Getenv(config.EnvAWSRegion)

	awsCfg, err := aws.LoadAWSConfig(ctx, region)
	if err != nil {
		l.Sugar().Fatalw("failed to load AWS config", "error", err)
	}

	signer := awsKms.NewAWSKMSSigner(awsCfg, region, &config.KMSSignerConfig{
		KeyID:   keyId,
		ChainID: config.ChainId_EthereumSepolia,
	}, l)

	der, err := signer.GetPublicKey(ctx, keyId)
	if err != nil {
		l.Sugar().Fatalw("failed to get public key", "error", err)
	}

	publicKey, err := transactionSigner.DecodePublicKeyDER(der)
	if err != nil {
		l.Sugar().Fatalw("failed to decode public key", "error", err)
	}

	address, err := transactionSigner.DeriveAddress(publicKey)
	if err != nil {
		l.Sugar().Fatalw("failed to derive address", "error", err)
	}

	l.Sugar().Infow("KMS key info",
		"keyId", keyId,
		"publicKeyDer", hex.EncodeToString(der),
		"publicKeyHex", hexutil.Encode(publicKey),
		"publicKeyHexUnprefixed", hex.EncodeToString(publicKey[1:]),
		"address", address.Checksum,
	)
}
