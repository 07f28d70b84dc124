// Package tracker polls a bridge for the status of a submitted swap.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/types"
)

// DefaultInterval is the polling interval when none is set
const DefaultInterval = 5 * time.Second

// ErrTimeout is returned when the status is still not terminal at the deadline
var ErrTimeout = errors.New("status not terminal before timeout")

// Options configures Watch
type Options struct {
	Interval time.Duration
	// Timeout bounds the whole watch. Zero waits until ctx is done.
	Timeout time.Duration
	// MaxErrors is the number of consecutive fetch errors tolerated
	MaxErrors int
}

// Watch fetches the status of requestID immediately and then on every
// interval until it is terminal. onUpdate, if set, sees every update. The
// last update is returned even when the watch ends with an error.
func Watch(ctx context.Context, fetcher bridge.StatusFetcher, requestID string, opts Options, onUpdate func(*types.StatusUpdate)) (*types.StatusUpdate, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var (
		last     *types.StatusUpdate
		failures int
	)
	for {
		update, err := fetcher.GetStatus(ctx, requestID)
		switch {
		case err != nil && ctx.Err() != nil:
			return last, done(ctx)
		case err != nil:
			failures++
			if failures > opts.MaxErrors {
				return last, fmt.Errorf("failed to fetch status: %w", err)
			}
		default:
			failures = 0
			last = update
			if onUpdate != nil {
				onUpdate(update)
			}
			if update.Terminal {
				return update, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, done(ctx)
		case <-ticker.C:
		}
	}
}

func done(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
