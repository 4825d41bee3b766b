// Package ratelimit paces outbound requests. Limiter caps a request rate
// for API calls; Pacer inserts the fixed politeness delays between scan
// steps.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps requests per second. A nil Limiter, or one built with a
// non-positive rate, never blocks.
type Limiter struct {
	rl *rate.Limiter
}

// NewPerSecond returns a limiter allowing rps requests per second with a
// burst of one.
func NewPerSecond(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.rl == nil {
		return ctx.Err()
	}
	return l.rl.Wait(ctx)
}

// Unlimited reports whether Wait never blocks.
func (l *Limiter) Unlimited() bool {
	return l == nil || l.rl == nil
}

// Pacer sleeps a fixed delay between steps.
type Pacer struct {
	delay time.Duration
}

// NewPacer returns a Pacer for delay. A zero delay makes Pause a
// cancellation check only.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Delay returns the configured pause.
func (p *Pacer) Delay() time.Duration {
	if p == nil {
		return 0
	}
	return p.delay
}

// Pause waits for the delay. It returns ctx.Err() if ctx ends first.
func (p *Pacer) Pause(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
