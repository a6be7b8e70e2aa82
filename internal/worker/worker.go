package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a long-running loop that returns when its context is cancelled.
type Task func(ctx context.Context) error

// Run starts every task and waits for all of them. The first task to fail
// cancels the rest and its error is returned.
func Run(ctx context.Context, tasks ...Task) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(ctx) })
	}
	return g.Wait()
}
