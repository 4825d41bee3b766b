package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Throttle(t *testing.T) {
	l := NewPerSecond(10)
	ctx := context.Background()
	start := time.Now()

	// First instant, then ~100ms each.
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.False(t, l.Unlimited())
}

func TestLimiter_Unlimited(t *testing.T) {
	for _, l := range []*Limiter{nil, NewPerSecond(0), NewPerSecond(-1)} {
		assert.True(t, l.Unlimited())
		start := time.Now()
		for i := 0; i < 50; i++ {
			require.NoError(t, l.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	}
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := NewPerSecond(0.5)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx))
	assert.Error(t, l.Wait(ctx))
}

func TestPacer_Pause(t *testing.T) {
	p := NewPacer(30 * time.Millisecond)
	start := time.Now()
	require.NoError(t, p.Pause(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, p.Delay())
}

func TestPacer_Cancelled(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
}

func TestPacer_Zero(t *testing.T) {
	var p *Pacer
	assert.NoError(t, p.Pause(context.Background()))
	assert.NoError(t, NewPacer(0).Pause(context.Background()))
}
