// Package agent is the remote trading agent: it verifies its bot id against
// the registry, then runs a trade loop until stopped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotAuthorized is returned when the registry explicitly denies the bot.
var ErrNotAuthorized = errors.New("bot not authorized by registry")

const (
	DefaultTradeInterval = 5 * time.Second
	DefaultErrorDelay    = 10 * time.Second
	DefaultVerifyRetry   = 10 * time.Second
)

// Verifier answers whether a bot may operate.
type Verifier interface {
	Verify(ctx context.Context, botID string) (bool, error)
}

// Trader performs one trading step. n counts steps from 1.
type Trader interface {
	Trade(ctx context.Context, n int) error
}

// TraderFunc adapts a function to Trader.
type TraderFunc func(ctx context.Context, n int) error

func (f TraderFunc) Trade(ctx context.Context, n int) error { return f(ctx, n) }

// Runner drives one agent.
type Runner struct {
	verifier      Verifier
	trader        Trader
	botID         string
	tradeInterval time.Duration
	errorDelay    time.Duration
	verifyRetry   time.Duration
	logger        *slog.Logger
}

type Option func(*Runner)

func WithTrader(t Trader) Option {
	return func(r *Runner) {
		if t != nil {
			r.trader = t
		}
	}
}

func WithTradeInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tradeInterval = d
		}
	}
}

// WithErrorDelay sets the pause after a failed trade.
func WithErrorDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.errorDelay = d
		}
	}
}

// WithVerifyRetry sets the fixed delay between verification attempts that
// could not reach the registry.
func WithVerifyRetry(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.verifyRetry = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(verifier Verifier, botID string, opts ...Option) (*Runner, error) {
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if botID == "" {
		return nil, errors.New("bot id is required")
	}
	r := &Runner{
		verifier:      verifier,
		botID:         botID,
		tradeInterval: DefaultTradeInterval,
		errorDelay:    DefaultErrorDelay,
		verifyRetry:   DefaultVerifyRetry,
		logger:        slog.New(slog.DiscardHandler),
	}
	r.trader = TraderFunc(r.logTrade)
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Run verifies the bot and then trades until ctx is cancelled, returning nil
// on cancellation. It returns ErrNotAuthorized if the registry denies the bot.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "agent starting", "bot_id", r.botID)

	if err := r.awaitAuthorization(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	r.logger.InfoContext(ctx, "bot authorized, starting trading", "bot_id", r.botID)

	for n := 1; ; n++ {
		delay := r.tradeInterval
		if err := r.trader.Trade(ctx, n); err != nil {
			r.logger.WarnContext(ctx, "trading error", "bot_id", r.botID, "trade", n, "error", err)
			delay = r.errorDelay
		}
		if !sleep(ctx, delay) {
			r.logger.InfoContext(ctx, "trading stopped", "bot_id", r.botID, "trades", n)
			return nil
		}
	}
}

// awaitAuthorization retries unreachable-registry failures at a fixed delay
// forever; only an explicit denial or cancellation ends it.
func (r *Runner) awaitAuthorization(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(r.verifyRetry), ctx)
	op := func() error {
		authorized, err := r.verifier.Verify(ctx, r.botID)
		if err != nil {
			return err
		}
		if !authorized {
			return backoff.Permanent(fmt.Errorf("%s: %w", r.botID, ErrNotAuthorized))
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		r.logger.WarnContext(ctx, "verification failed, retrying",
			"bot_id", r.botID,
			"retry_in", next,
			"error", err,
		)
	}
	return backoff.RetryNotify(op, b, notify)
}

func (r *Runner) logTrade(ctx context.Context, n int) error {
	r.logger.InfoContext(ctx, "trade", "trade", n, "bot_id", r.botID)
	return nil
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
