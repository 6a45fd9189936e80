package aggregator

import (
	"context"
	"log/slog"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/matrixise/amm-tracker/internal/format"
)

// PoolAggregator fetches share and reserve figures of an AMM pool.
type PoolAggregator struct {
	baseDecimals uint8
	limit        int
}

// NewPoolAggregator creates a pool aggregator. baseDecimals scales reserve
// amounts; shares are scaled by each pool's own precision.
func NewPoolAggregator(baseDecimals uint8, limit int) *PoolAggregator {
	return &PoolAggregator{baseDecimals: baseDecimals, limit: limit}
}

// FetchShare queries the owner's share and the pool's total share together.
// With no pool or no owner prev is returned untouched. The result replaces
// prev only when both queries succeed; on failure prev is returned with the
// error so a fresh value is never paired with a stale one.
func (a *PoolAggregator) FetchShare(ctx context.Context, pool *Pool, owner string, prev *ShareResult) (*ShareResult, error) {
	if pool == nil || owner == "" {
		return prev, nil
	}

	var user, total *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := pool.Query.Share(gctx, owner)
		if err != nil {
			return &FetchError{Op: "share", Target: owner, Err: err}
		}
		user = v
		return nil
	})
	g.Go(func() error {
		v, err := pool.Query.TotalShare(gctx)
		if err != nil {
			return &FetchError{Op: "totalShare", Err: err}
		}
		total = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return prev, err
	}

	userStr, err := format.ToDecimalByDivisor(user, pool.SharePrecision)
	if err != nil {
		return prev, &FetchError{Op: "share", Target: owner, Err: err}
	}
	totalStr, err := format.ToDecimalByDivisor(total, pool.SharePrecision)
	if err != nil {
		return prev, &FetchError{Op: "totalShare", Err: err}
	}

	slog.Debug("Share retrieved", "owner", owner, "pool", pool.Address, "share", userStr, "total_share", totalStr)
	return &ShareResult{User: userStr, Total: totalStr}, nil
}

// FetchReserves returns the pool's total amount of each token, index-aligned
// with tokens. With no pool the result is empty and nothing is queried.
func (a *PoolAggregator) FetchReserves(ctx context.Context, pool *Pool, tokens []Token) ([]string, error) {
	if pool == nil {
		return []string{}, nil
	}

	return collect(ctx, a.limit, len(tokens), func(ctx context.Context, i int) (string, error) {
		tok := tokens[i]

		raw, err := pool.Query.TotalAmount(ctx, tok.Address)
		if err != nil {
			return "", &FetchError{Op: "totalAmount", Target: tok.Symbol, Err: err}
		}

		amount, err := format.ToDecimal(raw, a.baseDecimals)
		if err != nil {
			return "", &FetchError{Op: "totalAmount", Target: tok.Symbol, Err: err}
		}
		return amount, nil
	})
}
