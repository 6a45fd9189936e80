package aggregator

import (
	"context"
	"log/slog"

	"github.com/matrixise/amm-tracker/internal/format"
)

// BalanceAggregator fetches an owner's balance of each tracked token.
type BalanceAggregator struct {
	baseDecimals uint8
	limit        int
}

// NewBalanceAggregator creates an aggregator formatting amounts with
// baseDecimals and running at most limit queries at once (0 = no limit).
func NewBalanceAggregator(baseDecimals uint8, limit int) *BalanceAggregator {
	return &BalanceAggregator{baseDecimals: baseDecimals, limit: limit}
}

// FetchBalances returns the owner's balance of each token as a decimal
// string, index-aligned with tokens. An empty owner yields an empty result
// without querying anything. If any query fails the whole batch fails.
func (a *BalanceAggregator) FetchBalances(ctx context.Context, owner string, tokens []Token) ([]string, error) {
	if owner == "" {
		return []string{}, nil
	}

	return collect(ctx, a.limit, len(tokens), func(ctx context.Context, i int) (string, error) {
		tok := tokens[i]

		raw, err := tok.Query.BalanceOf(ctx, owner)
		if err != nil {
			return "", &FetchError{Op: "balanceOf", Target: tok.Symbol, Err: err}
		}

		balance, err := format.ToDecimal(raw, a.baseDecimals)
		if err != nil {
			return "", &FetchError{Op: "balanceOf", Target: tok.Symbol, Err: err}
		}

		slog.Debug("Balance retrieved", "owner", owner, "symbol", tok.Symbol, "balance", balance)
		return balance, nil
	})
}
