package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiter_Wait(t *testing.T) {
	t.Run("first call does not wait", func(t *testing.T) {
		r := NewSimpleRateLimiter(time.Hour, time.Hour)

		start := time.Now()
		require.NoError(t, r.Wait(context.Background()))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		r := NewSimpleRateLimiter(time.Hour, time.Hour)
		require.NoError(t, r.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := r.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("delay bounds are respected", func(t *testing.T) {
		r := NewSimpleRateLimiter(10*time.Millisecond, 30*time.Millisecond)

		for i := 0; i < 20; i++ {
			d := r.calculateDelay()
			assert.GreaterOrEqual(t, d, 10*time.Millisecond)
			assert.Less(t, d, 30*time.Millisecond)
		}
	})
}

func TestAdaptiveRateLimiter(t *testing.T) {
	t.Run("repeated errors back off the delay window", func(t *testing.T) {
		a := NewAdaptiveRateLimiter(4*time.Second, 10*time.Second)

		for i := 0; i < 3; i++ {
			a.RecordError()
		}

		assert.Equal(t, 6*time.Second, a.minDelay)
		assert.Equal(t, 15*time.Second, a.maxDelay)
	})

	t.Run("sustained success speeds back up", func(t *testing.T) {
		a := NewAdaptiveRateLimiter(10*time.Second, 20*time.Second)

		for i := 0; i < 6; i++ {
			a.RecordSuccess()
		}

		assert.Equal(t, 9*time.Second, a.minDelay)
	})

	t.Run("a success resets the error streak", func(t *testing.T) {
		a := NewAdaptiveRateLimiter(4*time.Second, 10*time.Second)

		a.RecordError()
		a.RecordError()
		a.RecordSuccess()
		a.RecordError()

		assert.Equal(t, 4*time.Second, a.minDelay)
	})
}
