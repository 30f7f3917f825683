package ai

import (
	"context"
	"sync"
	"time"
)

// RateLimited wraps a Completer with a token bucket allowing at most rpm
// requests per minute. Callers block until a token is free or ctx ends.
type RateLimited struct {
	next     Completer
	rpm      int
	mu       sync.Mutex
	tokens   int
	lastFill time.Time
}

func NewRateLimited(next Completer, rpm int) Completer {
	if rpm <= 0 {
		return next
	}
	return &RateLimited{next: next, rpm: rpm, tokens: rpm, lastFill: time.Now()}
}

func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, prompt)
}

func (r *RateLimited) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		refill := int(now.Sub(r.lastFill).Seconds() * float64(r.rpm) / 60.0)
		if refill > 0 {
			r.tokens = min(r.tokens+refill, r.rpm)
			r.lastFill = now
		}
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
