package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	chainEthereum "github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IEthereumClient is the node surface needed to price, sequence and broadcast transactions.
type IEthereumClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	// GasPrice calls eth_gasPrice.
	GasPrice(ctx context.Context) (*big.Int, error)
	// SuggestGasTipCap calls eth_maxPriorityFeePerGas.
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	// PendingNonceAt returns the next nonce including transactions in the pool.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	// LatestNonceAt returns the next nonce according to the latest mined block.
	LatestNonceAt(ctx context.Context, account common.Address) (uint64, error)
	// SendRawTransaction calls eth_sendRawTransaction and returns the hash reported by the node.
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	Close()
}

type EthereumClientConfig struct {
	BaseUrl string
	Timeout time.Duration
}

// Client layers per-call timeouts and error context over the chain-indexer client's
// contract caller.
type Client struct {
	indexer   *chainEthereum.EthereumClient
	ethClient *ethclient.Client
	timeout   time.Duration
	logger    *zap.Logger
}

var _ IEthereumClient = (*Client)(nil)

func NewEthereumClient(cfg *EthereumClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.BaseUrl == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	indexer := chainEthereum.NewEthereumClient(&chainEthereum.EthereumClientConfig{
		BaseUrl:   cfg.BaseUrl,
		BlockType: chainEthereum.BlockType_Latest,
	}, logger)

	ethClient, err := indexer.GetEthereumContractCaller()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", cfg.BaseUrl)
	}

	return &Client{
		indexer:   indexer,
		ethClient: ethClient,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	chainId, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "eth_chainId")
	}
	return chainId, nil
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "eth_gasPrice")
	}
	return gasPrice, nil
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tip, err := c.ethClient.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "eth_maxPriorityFeePerGas")
	}
	return tip, nil
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	nonce, err := c.ethClient.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, errors.Wrapf(err, "eth_getTransactionCount(%s, pending)", account.Hex())
	}
	return nonce, nil
}

func (c *Client) LatestNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	nonce, err := c.ethClient.NonceAt(ctx, account, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "eth_getTransactionCount(%s, latest)", account.Hex())
	}
	return nonce, nil
}

func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var txHash common.Hash
	if err := c.ethClient.Client().CallContext(ctx, &txHash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, errors.Wrap(err, "eth_sendRawTransaction")
	}

	c.logger.Sugar().Debugw("Broadcast raw transaction", "txHash", txHash.Hex(), "size", len(raw))
	return txHash, nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	blockNumber, err := c.indexer.GetBlockNumberUint64(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "eth_blockNumber")
	}
	return blockNumber, nil
}

func (c *Client) Close() {
	c.ethClient.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
