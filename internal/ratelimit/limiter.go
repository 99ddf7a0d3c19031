package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/patwikx/twc-platform/pkg/logger"
)

// Decision reports the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
}

// Limiter enforces a sliding-window limit over keys of the form
// "<prefix>:<identifier>". Limiters sharing a store but using distinct
// prefixes count independently.
type Limiter struct {
	store  Store
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func New(store Store, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *Limiter) key(identifier string) string {
	return l.prefix + ":" + identifier
}

// Allow records an attempt and decides it. Store failures fail open:
// turning guests away because the limiter's backend hiccuped is worse
// than letting a burst through.
func (l *Limiter) Allow(ctx context.Context, identifier string) Decision {
	now := l.now()
	count, oldest, err := l.store.Check(ctx, l.key(identifier), l.window, now)
	if err != nil {
		logger.WarnContext(ctx, "Rate limit store check failed, allowing request",
			"prefix", l.prefix, "error", err)
		return Decision{Allowed: true, Remaining: l.limit, Limit: l.limit}
	}

	if count <= l.limit {
		return Decision{Allowed: true, Remaining: l.limit - count, Limit: l.limit}
	}

	retry := retryAfter(oldest, l.window, now)
	return Decision{Allowed: false, Remaining: 0, Limit: l.limit, RetryAfter: retry}
}

// Reset clears the window for one identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	return l.store.Reset(ctx, l.key(identifier))
}

// Count reports the identifier's current window usage without
// consuming an attempt.
func (l *Limiter) Count(ctx context.Context, identifier string) (int, error) {
	return l.store.Count(ctx, l.key(identifier), l.window, l.now())
}

// retryAfter is when the oldest surviving attempt ages out, rounded up
// to whole seconds and never less than one.
func retryAfter(oldest time.Time, window time.Duration, now time.Time) time.Duration {
	d := oldest.Add(window).Sub(now)
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
