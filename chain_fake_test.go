package penmarket

import (
	"context"
	"math/big"
	"sync"
)

// fakeChain is a deterministic ChainClient substitute. SendTransaction
// optionally blocks on sendGate so tests can hold a submission in flight.
type fakeChain struct {
	mu           sync.Mutex
	accounts     []string
	balances     map[string]*big.Int
	receipt      string
	sendCalls    int
	balanceCalls int
	lastReq      TransferRequest

	accountsErr error
	balanceErr  error
	sendErr     error
	sendGate    chan struct{}
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts: []string{"0xSellerAccount"},
		balances: map[string]*big.Int{},
		receipt:  "0xreceipt",
	}
}

func (c *fakeChain) setBalance(wallet, wei string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		panic("fakeChain: bad wei amount " + wei)
	}
	c.balances[wallet] = amount
}

func (c *fakeChain) submissions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCalls
}

func (c *fakeChain) lastRequest() TransferRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReq
}

func (c *fakeChain) Accounts(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountsErr != nil {
		return nil, c.accountsErr
	}
	return c.accounts, nil
}

func (c *fakeChain) balanceQueries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceCalls
}

func (c *fakeChain) BalanceAt(ctx context.Context, wallet string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balanceCalls++
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}
	if balance, ok := c.balances[wallet]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) SendTransaction(ctx context.Context, req TransferRequest) (string, error) {
	c.mu.Lock()
	c.sendCalls++
	c.lastReq = req
	gate := c.sendGate
	sendErr := c.sendErr
	receipt := c.receipt
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if sendErr != nil {
		return "", sendErr
	}
	return receipt, nil
}
