package ai

import (
	"context"
	"fmt"
	"time"
)

// Completer sends a single prompt to a language-model service and returns
// the raw text of its answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}
