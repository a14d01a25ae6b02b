package canceller

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/kms-tx-signer/pkg/clients/ethereum"
	"github.com/Layr-Labs/kms-tx-signer/pkg/config"
	"github.com/Layr-Labs/kms-tx-signer/pkg/transactionSigner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrNothingToCancel = errors.New("canceller: no pending transactions to cancel")
	ErrHashMismatch    = errors.New("canceller: node reported a different transaction hash")
)

// Canceller replaces pending transactions of the signer's account with zero value
// self-transfers at the same nonce.
type Canceller struct {
	signer transactionSigner.ITransactionSigner
	client ethereum.IEthereumClient
	cfg    config.CancellerConfig
	logger *zap.Logger
}

// Result describes one broadcast cancellation.
type Result struct {
	Nonce   uint64
	TxHash  common.Hash
	Payload string
	Fees    *Fees
}

func NewCanceller(signer transactionSigner.ITransactionSigner, client ethereum.IEthereumClient, cfg *config.CancellerConfig, logger *zap.Logger) (*Canceller, error) {
	if signer == nil || client == nil || cfg == nil || logger == nil {
		return nil, fmt.Errorf("canceller: signer, client, config and logger are required")
	}
	c := *cfg
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("canceller: invalid config: %w", err)
	}

	return &Canceller{
		signer: signer,
		client: client,
		cfg:    c,
		logger: logger,
	}, nil
}

// SelectFees returns override when set, otherwise fees derived from the node.
func (c *Canceller) SelectFees(ctx context.Context, override *Fees) (*Fees, error) {
	if override != nil {
		if err := override.validate(); err != nil {
			return nil, err
		}
		return override, nil
	}

	gasPrice, err := c.client.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	tip, err := c.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, err
	}
	return CalcCancellationFees(gasPrice, tip, c.cfg.MinTipCapWei, c.cfg.FeeBumpPercent)
}

// CancelNonce signs and broadcasts a single cancellation for nonce.
func (c *Canceller) CancelNonce(ctx context.Context, nonce uint64, override *Fees) (*Result, error) {
	fees, err := c.SelectFees(ctx, override)
	if err != nil {
		return nil, err
	}
	return c.cancel(ctx, nonce, fees)
}

// CancelPending cancels every nonce between the latest mined nonce and the pending nonce.
// It stops at the first failure and returns what was broadcast so far.
func (c *Canceller) CancelPending(ctx context.Context, override *Fees) ([]*Result, error) {
	from := c.signer.GetFromAddress()

	latest, err := c.client.LatestNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	pending, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	if pending <= latest {
		return nil, ErrNothingToCancel
	}

	fees, err := c.SelectFees(ctx, override)
	if err != nil {
		return nil, err
	}

	c.logger.Sugar().Infow("Cancelling pending transactions",
		"from", from.Hex(),
		"firstNonce", latest,
		"lastNonce", pending-1,
	)

	results := make([]*Result, 0, pending-latest)
	for nonce := latest; nonce < pending; nonce++ {
		res, err := c.cancel(ctx, nonce, fees)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *Canceller) cancel(ctx context.Context, nonce uint64, fees *Fees) (*Result, error) {
	signed, err := c.signer.SignCancellation(ctx, nonce, fees.MaxFeePerGas, fees.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}

	nodeHash, err := c.client.SendRawTransaction(ctx, signed.Raw)
	if err != nil {
		c.logger.Sugar().Errorw("Failed to broadcast cancellation",
			"nonce", nonce,
			"txHash", signed.HashHex(),
			"error", err,
		)
		return nil, err
	}
	if nodeHash != signed.Hash {
		return nil, fmt.Errorf("%w: local %s, node %s", ErrHashMismatch, signed.HashHex(), nodeHash.Hex())
	}

	c.logger.Sugar().Infow("Broadcast cancellation",
		"nonce", nonce,
		"txHash", signed.HashHex(),
		"maxFeePerGas", fees.MaxFeePerGas.String(),
		"maxPriorityFeePerGas", fees.MaxPriorityFeePerGas.String(),
	)

	return &Result{
		Nonce:   nonce,
		TxHash:  signed.Hash,
		Payload: signed.PayloadHex(),
		Fees:    fees,
	}, nil
}
