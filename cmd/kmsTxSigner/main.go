package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "kms-tx-signer",
		Usage: "Sign and cancel EIP-1559 transactions with a key held in AWS KMS",
		Description: `Signs type 2 Ethereum transactions with a secp256k1 key that never leaves AWS KMS.

The signer can:
- Print the address controlled by a KMS key
- Sign a transaction offline and print its hash and raw payload
- Replace stuck pending transactions with zero value self-transfers
- Create new KMS signing keys`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "key-id",
				Usage:   "KMS key id, ARN or alias",
				EnvVars: []string{config.EnvKeyID},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region of the KMS key",
				EnvVars: []string{config.EnvAWSRegion},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Usage:   "Chain id: " + config.GetSupportedChainIDsString(),
				Value:   uint64(config.ChainId_EthereumMainnet),
				EnvVars: []string{config.EnvChainID},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Ethereum RPC URL",
				Value:   "http://localhost:8545",
				EnvVars: []string{config.EnvRPCURL},
			},
			&cli.DurationFlag{
				Name:    "sign-timeout",
				Usage:   "Upper bound on a single KMS sign call",
				Value:   config.DefaultSignTimeout,
				EnvVars: []string{config.EnvSignTimeout},
			},
			&cli.DurationFlag{
				Name:    "rpc-timeout",
				Usage:   "Upper bound on a single RPC call",
				Value:   config.DefaultRPCTimeout,
				EnvVars: []string{config.EnvRPCTimeout},
			},
			&cli.Uint64Flag{
				Name:    "default-gas-limit",
				Usage:   "Gas limit used when a transaction does not set one",
				Value:   config.DefaultGasLimit,
				EnvVars: []string{config.EnvGasLimit},
			},
			&cli.IntFlag{
				Name:    "fee-bump-percent",
				Usage:   "Percentage added to eth_gasPrice for cancellation fee caps",
				Value:   config.DefaultFeeBumpPercent,
				EnvVars: []string{config.EnvFeeBumpPercent},
			},
			&cli.StringFlag{
				Name:    "min-tip-wei",
				Usage:   "Floor for the cancellation priority fee, in wei",
				Value:   "0",
				EnvVars: []string{config.EnvMinTipCapWei},
			},
			&cli.Float64Flag{
				Name:    "kms-rps",
				Usage:   "Maximum KMS requests per second",
				Value:   config.DefaultRequestsPerSecond,
				EnvVars: []string{config.EnvRequestsPerSecond},
			},
			&cli.StringFlag{
				Name:  "private-key",
				Usage: "Sign with an in-memory hex key instead of KMS (local development only)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "address",
				Usage:  "Print the address and public key of the signing key",
				Action: addressCommand,
			},
			{
				Name:  "sign",
				Usage: "Sign a transaction and print its hash and payload without broadcasting",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "nonce",
						Usage:    "Transaction nonce",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Recipient address",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "value",
						Usage: "Value in wei",
						Value: "0",
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "Calldata as 0x-prefixed hex",
					},
					&cli.StringFlag{
						Name:     "max-fee",
						Usage:    "maxFeePerGas in wei",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "max-tip",
						Usage:    "maxPriorityFeePerGas in wei",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:  "gas-limit",
						Usage: "Gas limit (defaults to --default-gas-limit)",
					},
				},
				Action: signCommand,
			},
			{
				Name:  "cancel",
				Usage: "Replace pending transactions with zero value self-transfers",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:  "nonce",
						Usage: "Single nonce to cancel",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Cancel every nonce between the latest mined and the pending nonce",
					},
					&cli.StringFlag{
						Name:  "max-fee",
						Usage: "maxFeePerGas in wei (derived from the node when unset)",
					},
					&cli.StringFlag{
						Name:  "max-tip",
						Usage: "maxPriorityFeePerGas in wei (derived from the node when unset)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Overall deadline for the cancellation run",
						Value: 2 * time.Minute,
					},
				},
				Action: cancelCommand,
			},
			{
				Name:  "create-key",
				Usage: "Create a secp256k1 signing key in KMS",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Name tag for the key",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "alias",
						Usage: "Alias to attach (without the alias/ prefix)",
					},
				},
				Action: createKeyCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
