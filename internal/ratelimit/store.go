package ratelimit

import (
	"context"
	"time"
)

// Store keeps per-key attempt timestamps for sliding-window limiting.
// Implementations prune entries at or past window age on every call so
// a key's state never grows beyond one window of traffic.
type Store interface {
	// Check records an attempt at now, then reports how many attempts
	// survive inside (now-window, now] and the oldest surviving
	// timestamp. Attempts are recorded even when the caller will deny
	// the request, which pushes the retry horizon out for hot keys.
	Check(ctx context.Context, key string, window time.Duration, now time.Time) (count int, oldest time.Time, err error)

	// Reset forgets all attempts for a key.
	Reset(ctx context.Context, key string) error

	// Count reports surviving attempts without recording one.
	Count(ctx context.Context, key string, window time.Duration, now time.Time) (int, error)
}
