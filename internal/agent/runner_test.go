package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answer struct {
	authorized bool
	err        error
}

// scriptedVerifier replays answers in order and repeats the last one.
type scriptedVerifier struct {
	mu      sync.Mutex
	answers []answer
	calls   int
}

func (v *scriptedVerifier) Verify(context.Context, string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a := v.answers[min(v.calls, len(v.answers)-1)]
	v.calls++
	return a.authorized, a.err
}

func (v *scriptedVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithTradeInterval(time.Millisecond),
		WithErrorDelay(time.Millisecond),
		WithVerifyRetry(time.Millisecond),
	}, extra...)
}

func TestNewRunner(t *testing.T) {
	_, err := NewRunner(nil, "BA0001")
	require.Error(t, err)

	_, err = NewRunner(&scriptedVerifier{answers: []answer{{authorized: true}}}, "")
	require.Error(t, err)
}

func TestRunner_Run(t *testing.T) {
	t.Run("denied bot stops without trading", func(t *testing.T) {
		v := &scriptedVerifier{answers: []answer{{authorized: false}}}
		traded := false
		r, err := NewRunner(v, "BA0001", fastOptions(WithTrader(TraderFunc(func(context.Context, int) error {
			traded = true
			return nil
		})))...)
		require.NoError(t, err)

		err = r.Run(context.Background())
		require.ErrorIs(t, err, ErrNotAuthorized)
		assert.False(t, traded)
		assert.Equal(t, 1, v.Calls())
	})

	t.Run("unreachable registry is retried until authorized", func(t *testing.T) {
		down := errors.New("connection refused")
		v := &scriptedVerifier{answers: []answer{{err: down}, {err: down}, {authorized: true}}}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var trades []int
		r, err := NewRunner(v, "BA0001", fastOptions(WithTrader(TraderFunc(func(_ context.Context, n int) error {
			trades = append(trades, n)
			if n == 3 {
				cancel()
			}
			return nil
		})))...)
		require.NoError(t, err)

		require.NoError(t, r.Run(ctx))
		assert.Equal(t, 3, v.Calls())
		assert.Equal(t, []int{1, 2, 3}, trades)
	})

	t.Run("trade errors do not stop the loop", func(t *testing.T) {
		v := &scriptedVerifier{answers: []answer{{authorized: true}}}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		count := 0
		r, err := NewRunner(v, "BA0001", fastOptions(WithTrader(TraderFunc(func(_ context.Context, n int) error {
			count = n
			if n == 2 {
				cancel()
			}
			return errors.New("exchange down")
		})))...)
		require.NoError(t, err)

		require.NoError(t, r.Run(ctx))
		assert.Equal(t, 2, count)
	})

	t.Run("cancellation while waiting for registry returns nil", func(t *testing.T) {
		v := &scriptedVerifier{answers: []answer{{err: errors.New("timeout")}}}
		r, err := NewRunner(v, "BA0001", WithVerifyRetry(time.Hour))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.NoError(t, r.Run(ctx))
		assert.Equal(t, 1, v.Calls())
	})
}
