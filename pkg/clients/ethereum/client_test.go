package ethereum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Layr-Labs/kms-tx-signer/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// newTestNode serves the handful of JSON-RPC methods the client uses.
func newTestNode(t *testing.T, rejectSend bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "eth_chainId":
			resp.Result = "0xaa36a7"
		case "eth_blockNumber":
			resp.Result = "0x10"
		case "eth_gasPrice":
			resp.Result = "0x3b9aca00"
		case "eth_maxPriorityFeePerGas":
			resp.Result = "0x77359400"
		case "eth_getTransactionCount":
			var block string
			require.NoError(t, json.Unmarshal(req.Params[1], &block))
			if block == "pending" {
				resp.Result = "0x7"
			} else {
				resp.Result = "0x5"
			}
		case "eth_sendRawTransaction":
			if rejectSend {
				resp.Error = &rpcError{Code: -32000, Message: "nonce too low"}
				break
			}
			var rawHex string
			require.NoError(t, json.Unmarshal(req.Params[0], &rawHex))
			raw, err := hexutil.Decode(rawHex)
			require.NoError(t, err)
			resp.Result = crypto.Keccak256Hash(raw).Hex()
		default:
			resp.Error = &rpcError{Code: -32601, Message: "method not found"}
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: true})
	require.NoError(t, err)

	c, err := NewEthereumClient(&EthereumClientConfig{BaseUrl: url, Timeout: 5 * time.Second}, l)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestClient_Queries(t *testing.T) {
	node := newTestNode(t, false)
	defer node.Close()
	c := newTestClient(t, node.URL)
	ctx := context.Background()
	account := common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")

	chainId, err := c.ChainID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(11155111), chainId.Uint64())

	gasPrice, err := c.GasPrice(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), gasPrice.Uint64())

	tip, err := c.SuggestGasTipCap(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000_000), tip.Uint64())

	pending, err := c.PendingNonceAt(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint64(7), pending)

	latest, err := c.LatestNonceAt(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint64(5), latest)

	blockNumber, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(16), blockNumber)
}

func TestClient_SendRawTransaction(t *testing.T) {
	raw := []byte{0x02, 0xf8, 0x01, 0x02}

	t.Run("accepted", func(t *testing.T) {
		node := newTestNode(t, false)
		defer node.Close()

		hash, err := newTestClient(t, node.URL).SendRawTransaction(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, crypto.Keccak256Hash(raw), hash)
	})

	t.Run("rejected", func(t *testing.T) {
		node := newTestNode(t, true)
		defer node.Close()

		_, err := newTestClient(t, node.URL).SendRawTransaction(context.Background(), raw)
		require.ErrorContains(t, err, "nonce too low")
		require.ErrorContains(t, err, "eth_sendRawTransaction")
	})
}

func TestNewEthereumClient_RequiresUrl(t *testing.T) {
	_, err := NewEthereumClient(&EthereumClientConfig{}, nil)
	require.ErrorContains(t, err, "rpc url is required")
}
