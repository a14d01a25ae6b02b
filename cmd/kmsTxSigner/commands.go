package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/kms-tx-signer/internal/aws"
	"github.com/Layr-Labs/kms-tx-signer/pkg/canceller"
	"github.com/Layr-Labs/kms-tx-signer/pkg/clients/ethereum"
	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/Layr-Labs/kms-tx-signer/pkg/logger"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner/awsKms"
	"github.com/Layr-Labs/kms-tx-signer/pkg/remoteSigner/localSigner"
	"github.com/Layr-Labs/kms-tx-signer/pkg/transactionSigner"
)

const localKeyId = "cli-local-key"

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func signerConfigFromFlags(c *cli.Context) *config.KMSSignerConfig {
	return &config.KMSSignerConfig{
		KeyID:             c.String("key-id"),
		Region:            c.String("aws-region"),
		ChainID:           config.ChainId(c.Uint64("chain-id")),
		SignTimeout:       c.Duration("sign-timeout"),
		GasLimit:          c.Uint64("default-gas-limit"),
		RequestsPerSecond: c.Float64("kms-rps"),
	}
}

func newKMSSigner(ctx context.Context, cfg *config.KMSSignerConfig, l *zap.Logger) (*awsKms.AWSKMSSigner, error) {
	awsCfg, err := aws.LoadAWSConfig(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	identity, err := aws.GetCallerIdentity(ctx, awsCfg)
	if err != nil {
		l.Sugar().Warnw("Could not resolve AWS caller identity", "error", err)
	} else {
		l.Sugar().Debugw("Using AWS identity", "account", identity.Account, "arn", identity.Arn)
	}

	return awsKms.NewAWSKMSSigner(awsCfg, cfg.Region, cfg, l), nil
}

// newTransactionSigner builds the signing pipeline over KMS, or over an in-memory key when
// --private-key is set. Every remote call made while building it is bound to ctx.
func newTransactionSigner(ctx context.Context, c *cli.Context, l *zap.Logger) (*transactionSigner.KMSTransactionSigner, error) {
	cfg := signerConfigFromFlags(c)

	var remote remoteSigner.IRemoteSigner
	if pk := c.String("private-key"); pk != "" {
		local := localSigner.NewLocalSigner(l)
		if err := local.LoadPrivateKeyFromHex(localKeyId, pk); err != nil {
			return nil, err
		}
		cfg.KeyID = localKeyId
		remote = local
	} else {
		kmsSigner, err := newKMSSigner(ctx, cfg, l)
		if err != nil {
			return nil, err
		}
		remote = kmsSigner
	}

	return transactionSigner.NewKMSTransactionSigner(ctx, cfg, remote, l)
}

func addressCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	signer, err := newTransactionSigner(c.Context, c, l)
	if err != nil {
		return err
	}

	fmt.Printf("Address:    %s\n", signer.Address().Checksum)
	fmt.Printf("Public key: %s\n", hexutil.Encode(signer.PublicKey()))
	return nil
}

func signCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}

	if !common.IsHexAddress(c.String("to")) {
		return fmt.Errorf("invalid recipient address %q", c.String("to"))
	}
	value, err := parseWei("value", c.String("value"))
	if err != nil {
		return err
	}
	maxFee, err := parseWei("max-fee", c.String("max-fee"))
	if err != nil {
		return err
	}
	maxTip, err := parseWei("max-tip", c.String("max-tip"))
	if err != nil {
		return err
	}
	var data []byte
	if d := c.String("data"); d != "" {
		data, err = hexutil.Decode(d)
		if err != nil {
			return fmt.Errorf("invalid calldata: %w", err)
		}
	}

	signer, err := newTransactionSigner(c.Context, c, l)
	if err != nil {
		return err
	}

	signed, err := signer.SignTransaction(c.Context, &transactionSigner.UnsignedTransaction{
		Nonce:                c.Uint64("nonce"),
		To:                   common.HexToAddress(c.String("to")),
		Value:                value,
		Data:                 data,
		GasLimit:             c.Uint64("gas-limit"),
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: maxTip,
		ChainID:              signer.ChainID(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Transaction hash: %s\n", signed.HashHex())
	fmt.Printf("Signed payload:   %s\n", signed.PayloadHex())
	return nil
}

func cancelCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}

	all := c.Bool("all")
	if all == c.IsSet("nonce") {
		return fmt.Errorf("exactly one of --nonce or --all is required")
	}
	override, err := feeOverride(c)
	if err != nil {
		return err
	}

	minTip, err := parseWei("min-tip-wei", c.String("min-tip-wei"))
	if err != nil {
		return err
	}
	cancellerCfg := &config.CancellerConfig{
		RpcUrl:         c.String("rpc-url"),
		RpcTimeout:     c.Duration("rpc-timeout"),
		FeeBumpPercent: c.Int("fee-bump-percent"),
		MinTipCapWei:   minTip,
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	signer, err := newTransactionSigner(ctx, c, l)
	if err != nil {
		return err
	}

	client, err := ethereum.NewEthereumClient(&ethereum.EthereumClientConfig{
		BaseUrl: cancellerCfg.RpcUrl,
		Timeout: cancellerCfg.RpcTimeout,
	}, l)
	if err != nil {
		return err
	}
	defer client.Close()

	nodeChainId, err := client.ChainID(ctx)
	if err != nil {
		return err
	}
	if !nodeChainId.IsUint64() || nodeChainId.Uint64() != signer.ChainID() {
		return fmt.Errorf("node is on chain %s but signer is configured for chain %d", nodeChainId, signer.ChainID())
	}

	cc, err := canceller.NewCanceller(signer, client, cancellerCfg, l)
	if err != nil {
		return err
	}

	var results []*canceller.Result
	if all {
		results, err = cc.CancelPending(ctx, override)
	} else {
		var res *canceller.Result
		res, err = cc.CancelNonce(ctx, c.Uint64("nonce"), override)
		if res != nil {
			results = append(results, res)
		}
	}

	for _, res := range results {
		fmt.Printf("nonce=%d tx=%s maxFee=%s maxTip=%s\n",
			res.Nonce, res.TxHash.Hex(), res.Fees.MaxFeePerGas, res.Fees.MaxPriorityFeePerGas)
	}
	return err
}

func createKeyCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}

	cfg := signerConfigFromFlags(c)
	kmsSigner, err := newKMSSigner(c.Context, cfg, l)
	if err != nil {
		return err
	}

	keyId, err := kmsSigner.CreateSigningKey(c.Context, c.String("name"), c.String("alias"))
	if err != nil {
		return err
	}

	cfg.KeyID = keyId
	signer, err := transactionSigner.NewKMSTransactionSigner(c.Context, cfg, kmsSigner, l)
	if err != nil {
		return err
	}

	fmt.Printf("Key id:  %s\n", keyId)
	fmt.Printf("Address: %s\n", signer.Address().Checksum)
	return nil
}

func feeOverride(c *cli.Context) (*canceller.Fees, error) {
	if !c.IsSet("max-fee") && !c.IsSet("max-tip") {
		return nil, nil
	}
	if !c.IsSet("max-fee") || !c.IsSet("max-tip") {
		return nil, fmt.Errorf("--max-fee and --max-tip must be set together")
	}
	maxFee, err := parseWei("max-fee", c.String("max-fee"))
	if err != nil {
		return nil, err
	}
	maxTip, err := parseWei("max-tip", c.String("max-tip"))
	if err != nil {
		return nil, err
	}
	return &canceller.Fees{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxTip}, nil
}

func parseWei(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("--%s must be a non-negative decimal integer, got %q", name, s)
	}
	return v, nil
}
