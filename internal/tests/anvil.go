package tests

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
)

// Well known anvil dev account 0.
const (
	AnvilAccount0PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	AnvilAccount0Address    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	AnvilChainId            = 31337
)

type AnvilConfig struct {
	PortNumber string
	ChainId    string
	// NoMining keeps submitted transactions in the pool until evm_mine is called.
	NoMining bool
}

func (c *AnvilConfig) RpcUrl() string {
	return fmt.Sprintf("http://127.0.0.1:%s", c.PortNumber)
}

// StartAnvil launches a local anvil node. Callers must stop it with KillAnvil.
func StartAnvil(ctx context.Context, cfg *AnvilConfig) (*exec.Cmd, error) {
	args := []string{
		"--chain-id", cfg.ChainId,
		"--port", cfg.PortNumber,
	}
	if cfg.NoMining {
		args = append(args, "--no-mining")
	}

	fmt.Printf("Starting anvil with args: %v\n", args)
	cmd := exec.CommandContext(ctx, "anvil", args...)
	cmd.Stderr = os.Stderr
	if os.Getenv("JOIN_ANVIL_OUTPUT") == "true" {
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start anvil: %w", err)
	}
	return cmd, nil
}

// WaitForAnvil polls the block number until the node answers or ctx expires.
func WaitForAnvil(ctx context.Context, t *testing.T, client *ethereum.EthereumClient) error {
	for i := 1; ; i++ {
		block, err := client.GetBlockNumberUint64(ctx)
		if err == nil {
			t.Logf("Anvil is up and running, latest block: %d", block)
			return nil
		}
		t.Logf("Anvil not ready yet, retrying... %d", i)

		select {
		case <-ctx.Done():
			return fmt.Errorf("anvil did not become ready: %w", ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// MineBlock asks a node started with NoMining to seal the pending pool.
func MineBlock(ctx context.Context, client *ethereum.EthereumClient) error {
	_, err := client.Call(ctx, &ethereum.RPCRequest{
		JSONRPC: "2.0",
		Method:  "evm_mine",
		ID:      1,
	})
	return err
}

func KillAnvil(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("anvil command is not running")
	}
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill anvil process: %w", err)
	}
	_ = cmd.Wait()
	return nil
}
