package aggregator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// collect runs fetch for every index in [0, n) and returns the results in
// index order. All fetches run to completion; if any of them failed the
// joined errors are returned and no partial result is.
func collect(ctx context.Context, limit, n int, fetch func(ctx context.Context, i int) (string, error)) ([]string, error) {
	results := make([]string, n)
	errs := make([]error, n)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range n {
		g.Go(func() error {
			results[i], errs[i] = fetch(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
