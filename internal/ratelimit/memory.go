package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-replica default. Each key holds its
// attempt timestamps ordered oldest first; pruning happens inline on
// every call and abandoned keys are reclaimed by Sweep, which the
// process wiring runs on a ticker.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

func (s *MemoryStore) Check(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := prune(s.attempts[key], now.Add(-window))
	kept = append(kept, now)
	s.attempts[key] = kept
	return len(kept), kept[0], nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, key)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, key string, window time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := prune(s.attempts[key], now.Add(-window))
	if len(kept) == 0 {
		delete(s.attempts, key)
	} else {
		s.attempts[key] = kept
	}
	return len(kept), nil
}

// Sweep drops every key whose attempts have all aged past the window
// and returns how many keys were removed.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	removed := 0
	for key, stamps := range s.attempts {
		kept := prune(stamps, cutoff)
		if len(kept) == 0 {
			delete(s.attempts, key)
			removed++
			continue
		}
		s.attempts[key] = kept
	}
	return removed
}

// Keys reports how many identifiers currently hold state.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// prune drops timestamps at or before the cutoff. Slices stay ordered,
// so the first surviving index is found by scanning from the front.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
