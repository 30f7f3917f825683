package ai

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/cache"
	"github.com/aethersegment/backend/internal/utils"
)

// Cached memoizes completions by prompt hash. Cache failures are logged and
// fall through to the wrapped Completer.
type Cached struct {
	next   Completer
	store  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCached(next Completer, store cache.Cache, ttl time.Duration, logger zerolog.Logger) Completer {
	if store == nil || ttl <= 0 {
		return next
	}
	return &Cached{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *Cached) Complete(ctx context.Context, prompt string) (string, error) {
	key := "completion:" + strconv.FormatUint(utils.HashStringToUint64(prompt), 16)
	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Msg("completion cache read failed")
	} else if ok {
		return string(raw), nil
	}

	answer, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, key, []byte(answer), c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("completion cache write failed")
	}
	return answer, nil
}
