package reqcache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Warm handles requests concurrently and waits for all of them.
//
// First failure is returned, remaining upstream calls still settle and populate cache.
func (c *Coalescer) Warm(ctx context.Context, reqs ...*Request) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, req := range reqs {
		req := req

		g.Go(func() error {
			_, err := c.Do(ctx, req)

			return err
		})
	}

	return g.Wait()
}
