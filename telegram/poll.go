package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	conflictBaseDelay = 5 * time.Second
	conflictMaxDelay  = 60 * time.Second
	transientDelay    = time.Second
)

// UpdateHandler processes one inbound update. It must not panic; the bot
// layer recovers inside its own dispatch.
type UpdateHandler func(ctx context.Context, up Update)

type PollerOptions struct {
	Timeout time.Duration
	Limit   int
	// RetryMax caps consecutive 409 Conflict retries. A conflict means a
	// second instance is polling the same token; after RetryMax attempts
	// the poller gives up so the process can clean up and exit.
	RetryMax int
	Logger   *slog.Logger
}

type Poller struct {
	api      *Client
	handler  UpdateHandler
	timeout  time.Duration
	limit    int
	retryMax int
	logger   *slog.Logger
}

func NewPoller(api *Client, handler UpdateHandler, opts PollerOptions) *Poller {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		api:      api,
		handler:  handler,
		timeout:  opts.Timeout,
		limit:    opts.Limit,
		retryMax: opts.RetryMax,
		logger:   opts.Logger,
	}
}

// Run polls until ctx is cancelled. Updates are handled one at a time, in
// order; the next getUpdates call only happens after the batch is done, so
// no two updates are ever processed concurrently.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	conflicts := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, next, err := p.api.GetUpdates(ctx, offset, p.timeout, p.limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if IsConflict(err) {
				conflicts++
				if conflicts >= p.retryMax {
					return fmt.Errorf("telegram poll: giving up after %d conflicts: %w", conflicts, err)
				}
				delay := conflictBackoff(conflicts)
				p.logger.Warn("telegram_poll_conflict",
					"attempt", conflicts,
					"max_attempts", p.retryMax,
					"delay", delay.String(),
				)
				if !sleepCtx(ctx, delay) {
					return ctx.Err()
				}
				continue
			}
			p.logger.Warn("telegram_poll_error", "error", err.Error())
			if !sleepCtx(ctx, transientDelay) {
				return ctx.Err()
			}
			continue
		}

		if conflicts > 0 {
			p.logger.Info("telegram_poll_recovered", "attempts", conflicts)
			conflicts = 0
		}
		offset = next

		for _, up := range updates {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.handler(ctx, up)
		}
	}
}

func conflictBackoff(attempt int) time.Duration {
	delay := conflictBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= conflictMaxDelay {
			return conflictMaxDelay
		}
	}
	if delay > conflictMaxDelay {
		return conflictMaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
