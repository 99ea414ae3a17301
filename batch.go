package groundeval

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// GroundAll grounds independent roots concurrently, at most limit at a time
// (limit <= 0 means no limit). Results are positional; a root with no ground
// value is reported as a *CannotGroundError. The first error cancels the
// roots that have not started yet.
//
// g must be safe for concurrent use. Recursive() and *ModelEvaluator are.
func GroundAll(ctx context.Context, g Grounder, exprs []Expr, limit int) ([]Value, error) {
	res := make([]Value, len(exprs))
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}

	for i, e := range exprs {
		i, e := i, e
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := groundRoot(g, e)
			if err != nil {
				return err
			}
			res[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
