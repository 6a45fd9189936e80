package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	unhealthyDuration = 5 * time.Minute // cooldown before an endpoint is probed again
	probeTimeout      = 5 * time.Second
)

// ErrNoHealthyEndpoint is returned when every endpoint is down or cooling off.
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoints available")

type endpoint struct {
	mu        sync.RWMutex
	url       string
	client    *ethclient.Client
	healthy   bool
	lastError error
	failedAt  time.Time
}

// FailoverClient rotates between RPC endpoints, parking failed ones for a
// cooldown before probing them again.
type FailoverClient struct {
	mu        sync.Mutex
	endpoints []*endpoint
	current   int
}

// NewFailoverClient probes every url and fails if none answers.
func NewFailoverClient(urls []string) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	fc := &FailoverClient{endpoints: make([]*endpoint, 0, len(urls))}
	healthy := 0
	for _, url := range urls {
		ep := &endpoint{url: url}
		client, err := probe(url)
		if err != nil {
			ep.lastError = err
			ep.failedAt = time.Now()
			slog.Warn("RPC endpoint unreachable, will retry later", "url", url, "error", err)
		} else {
			ep.client = client
			ep.healthy = true
			healthy++
			slog.Info("Connected to RPC endpoint", "url", url)
		}
		fc.endpoints = append(fc.endpoints, ep)
	}

	if healthy == 0 {
		return nil, ErrNoHealthyEndpoint
	}
	return fc, nil
}

// probe dials url and checks it answers eth_chainId.
func probe(url string) (*ethclient.Client, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return client, nil
}

// GetClient returns the first usable endpoint in round-robin order starting
// at the last one that worked. Parked endpoints past their cooldown are
// probed on the way.
func (fc *FailoverClient) GetClient() (*ethclient.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for i := range fc.endpoints {
		idx := (fc.current + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		client, healthy := ep.client, ep.healthy
		cooled := time.Since(ep.failedAt) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.current = idx
			return client, ep.url, nil
		}
		if healthy || !cooled {
			continue
		}

		client, err := probe(ep.url)
		ep.mu.Lock()
		if err != nil {
			ep.lastError = err
			ep.failedAt = time.Now()
			ep.mu.Unlock()
			continue
		}
		ep.client = client
		ep.healthy = true
		ep.lastError = nil
		ep.mu.Unlock()

		fc.current = idx
		slog.Info("Reconnected to RPC endpoint", "url", ep.url)
		return client, ep.url, nil
	}

	return nil, "", ErrNoHealthyEndpoint
}

// MarkUnhealthy parks the endpoint at url and drops its connection.
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		if ep.url != url {
			continue
		}
		ep.mu.Lock()
		ep.healthy = false
		ep.lastError = err
		ep.failedAt = time.Now()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()

		slog.Warn("Marked RPC endpoint as unhealthy",
			"url", url,
			"error", err,
			"retry_after", unhealthyDuration)
		return
	}
}

// Health maps every endpoint URL to its current health flag.
func (fc *FailoverClient) Health() map[string]bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	out := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		out[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return out
}

// Close closes all endpoint connections.
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}
