package blockchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matrixise/amm-tracker/internal/aggregator"
	"github.com/matrixise/amm-tracker/internal/config"
)

// ResolveTokens binds each configured token. A token without a symbol gets
// its on-chain ticker, or its address when the lookup fails.
func (c *Client) ResolveTokens(ctx context.Context, configured []config.TokenConfig) ([]aggregator.Token, error) {
	tokens := make([]aggregator.Token, 0, len(configured))
	for i, tc := range configured {
		token, err := c.Token(tc.Address)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}

		symbol := tc.Symbol
		if symbol == "" {
			symbol, err = token.Symbol(ctx)
			if err != nil || symbol == "" {
				slog.Warn("Could not read token symbol, using address", "address", token.Address(), "error", err)
				symbol = token.Address()
			}
		}

		tokens = append(tokens, aggregator.Token{
			Symbol:  symbol,
			Address: token.Address(),
			Query:   token,
		})
	}
	return tokens, nil
}

// ResolvePool binds the configured pool. A nil config means no pool. Without a
// configured share precision the contract's PRECISION() is used.
func (c *Client) ResolvePool(ctx context.Context, pc *config.PoolConfig) (*aggregator.Pool, error) {
	if pc == nil || pc.Address == "" {
		return nil, nil
	}

	pool, err := c.Pool(pc.Address)
	if err != nil {
		return nil, err
	}

	precision := pc.Precision()
	if precision == nil {
		precision, err = pool.Precision(ctx)
		if err != nil {
			return nil, fmt.Errorf("read pool share precision: %w", err)
		}
		if precision.Sign() <= 0 {
			return nil, fmt.Errorf("pool %s reports non-positive share precision %s", pool.Address(), precision)
		}
		slog.Info("Pool share precision read on chain", "pool", pool.Address(), "precision", precision)
	}

	return &aggregator.Pool{
		Address:        pool.Address(),
		Query:          pool,
		SharePrecision: precision,
	}, nil
}
