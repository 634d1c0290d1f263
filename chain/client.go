// Package chain implements penmarket.ChainClient over the JSON-RPC endpoint
// of a local Ethereum node with unlocked, node-managed accounts (the
// reference deployment runs Ganache on 127.0.0.1:7545).
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	penmarket "github.com/penmarket/penmarket-go"
)

// DefaultRPCURL is the local node endpoint used when none is configured.
const DefaultRPCURL = "http://127.0.0.1:7545"

// Client talks to the Ethereum node. Wallet addresses cross this boundary as
// strings; hex validity is enforced here, not by callers.
type Client struct {
	rpc    *rpc.Client
	logger *slog.Logger
}

var _ penmarket.ChainClient = (*Client)(nil)

// Dial connects to the node's JSON-RPC endpoint. An empty url selects
// DefaultRPCURL.
func Dial(ctx context.Context, url string) (*Client, error) {
	if url == "" {
		url = DefaultRPCURL
	}
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc %s: %w", url, err)
	}
	return &Client{
		rpc:    c,
		logger: slog.Default().With("component", "chain_client"),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// Accounts returns the node-managed accounts via eth_accounts.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts: %w", err)
	}
	out := make([]string, len(accounts))
	for i, account := range accounts {
		out[i] = account.Hex()
	}
	return out, nil
}

// BalanceAt returns the wallet's latest balance in wei via eth_getBalance.
func (c *Client) BalanceAt(ctx context.Context, wallet string) (*big.Int, error) {
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address %q", wallet)
	}
	var balance hexutil.Big
	if err := c.rpc.CallContext(ctx, &balance, "eth_getBalance", common.HexToAddress(wallet), "latest"); err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return (*big.Int)(&balance), nil
}

// SendTransaction submits a value transfer via eth_sendTransaction. The node
// signs with its unlocked account; the returned transaction hash is the
// receipt handle.
func (c *Client) SendTransaction(ctx context.Context, req penmarket.TransferRequest) (string, error) {
	if !common.IsHexAddress(req.From) {
		return "", fmt.Errorf("invalid sender address %q", req.From)
	}
	if !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("invalid recipient address %q", req.To)
	}

	args := map[string]interface{}{
		"from":  common.HexToAddress(req.From),
		"to":    common.HexToAddress(req.To),
		"value": (*hexutil.Big)(req.Value),
		"gas":   hexutil.Uint64(req.Gas),
	}

	var txHash common.Hash
	if err := c.rpc.CallContext(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return "", fmt.Errorf("eth_sendTransaction: %w", err)
	}

	c.logger.Info("transaction submitted",
		"tx_hash", txHash.Hex(),
		"from", req.From,
		"to", req.To,
	)
	return txHash.Hex(), nil
}
