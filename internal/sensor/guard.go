package sensor

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn and gives up after d. It is for capability calls that
// take no context, such as GPU driver queries. On timeout fn keeps running
// in the background and its result is discarded.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func() (T, error)) (T, error) {
	if d <= 0 {
		return fn()
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("sensor call abandoned after %s: %w", d, ctx.Err())
	}
}
