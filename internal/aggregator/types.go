package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// DefaultBaseDecimals is the ledger's native base-unit scale (wei).
const DefaultBaseDecimals = 18

// BalanceQuery fetches the raw balance held by owner.
type BalanceQuery interface {
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
}

// PoolQuery fetches share and reserve figures from an AMM pool.
type PoolQuery interface {
	Share(ctx context.Context, owner string) (*big.Int, error)
	TotalShare(ctx context.Context) (*big.Int, error)
	TotalAmount(ctx context.Context, token string) (*big.Int, error)
}

// Token describes one tracked token. Its identity is Query, not Symbol.
type Token struct {
	Symbol  string
	Address string
	Query   BalanceQuery
}

// Pool describes the AMM pool the owner holds shares in.
type Pool struct {
	Address        string
	Query          PoolQuery
	SharePrecision *big.Int
}

// ShareResult is the owner's share and the pool's total share, both as
// decimal strings scaled by the pool's share precision.
type ShareResult struct {
	User  string
	Total string
}

// ErrFetch is matched by every FetchError.
var ErrFetch = errors.New("ledger query failed")

// FetchError reports a failed or unformattable ledger query.
type FetchError struct {
	Op     string
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}
