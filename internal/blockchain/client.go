package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	maxRetries           = 3
)

// Options tunes how the client talks to the RPC endpoints.
type Options struct {
	// Timeout bounds a single contract call, retries included.
	Timeout time.Duration
	// RateLimit caps calls per second across all endpoints. 0 disables it.
	RateLimit float64
	// RetryInterval is the first backoff delay; it doubles on each retry.
	RetryInterval time.Duration
}

// Client issues read-only contract calls with failover across endpoints.
type Client struct {
	failoverClient *FailoverClient
	erc20ABI       abi.ABI
	ammABI         abi.ABI
	limiter        *rate.Limiter
	timeout        time.Duration
	retryInterval  time.Duration
}

// NewClient connects to rpcURLs; at least one must answer.
func NewClient(rpcURLs []string, opts Options) (*Client, error) {
	failoverClient, err := NewFailoverClient(rpcURLs)
	if err != nil {
		return nil, err
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		failoverClient.Close()
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}
	amm, err := abi.JSON(strings.NewReader(ammABI))
	if err != nil {
		failoverClient.Close()
		return nil, fmt.Errorf("failed to parse AMM ABI: %w", err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	return &Client{
		failoverClient: failoverClient,
		erc20ABI:       erc20,
		ammABI:         amm,
		limiter:        limiter,
		timeout:        opts.Timeout,
		retryInterval:  opts.RetryInterval,
	}, nil
}

// Close closes all RPC client connections
func (c *Client) Close() {
	c.failoverClient.Close()
}

// GetHealthyEndpoint returns a connected client and its URL.
func (c *Client) GetHealthyEndpoint() (*ethclient.Client, string, error) {
	return c.failoverClient.GetClient()
}

// GetEndpointsHealth reports the health flag of every endpoint by URL.
func (c *Client) GetEndpointsHealth() map[string]bool {
	return c.failoverClient.Health()
}

// Probe checks that the current endpoint answers eth_chainId and returns
// its URL.
func (c *Client) Probe(ctx context.Context) (string, error) {
	ethClient, url, err := c.failoverClient.GetClient()
	if err != nil {
		return "", err
	}
	if _, err := ethClient.ChainID(ctx); err != nil {
		return url, fmt.Errorf("endpoint not responding: %w", err)
	}
	return url, nil
}

// call invokes a view method on contract and returns its outputs.
func (c *Client) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []any
	err := c.retryWithBackoff(rpcCtx, func(ethClient *ethclient.Client) error {
		if err := c.limiter.Wait(rpcCtx); err != nil {
			return err
		}
		bound := bind.NewBoundContract(contract, parsed, ethClient, ethClient, ethClient)
		out = nil
		return bound.Call(&bind.CallOpts{Context: rpcCtx}, &out, method, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// callBigInt invokes a method returning a single uint256.
func (c *Client) callBigInt(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...any) (*big.Int, error) {
	out, err := c.call(ctx, contract, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

// retryWithBackoff runs fn against the current endpoint, failing over to
// another endpoint and backing off exponentially between attempts.
func (c *Client) retryWithBackoff(ctx context.Context, fn func(*ethclient.Client) error) error {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := c.retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			}
		}

		ethClient, url, err := c.failoverClient.GetClient()
		if err != nil {
			lastErr = fmt.Errorf("no RPC endpoint available: %w", err)
			continue
		}

		if err := fn(ethClient); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return err
			}
			c.failoverClient.MarkUnhealthy(url, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func parseAddress(kind, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", kind, s)
	}
	return common.HexToAddress(s), nil
}
