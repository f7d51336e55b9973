// Package limiter implements a per-client sliding-window log rate limiter.
package limiter

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow admits at most max requests per client within any window.
// All state lives behind a single mutex.
type SlidingWindow struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	max     int
	window  time.Duration
	now     func() time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now, used by Allow and the janitor.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) { s.now = now }
}

// New creates a limiter admitting max requests per client per window.
func New(max int, window time.Duration, opts ...Option) *SlidingWindow {
	s := &SlidingWindow{
		entries: make(map[string][]time.Time),
		max:     max,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Max returns the per-window request limit.
func (s *SlidingWindow) Max() int { return s.max }

// Window returns the window length.
func (s *SlidingWindow) Window() time.Duration { return s.window }

// Allow is Admit at the limiter's clock.
func (s *SlidingWindow) Allow(id string) bool {
	return s.Admit(id, s.now())
}

// Admit records a request from id at now and reports whether it is within
// the limit. Expired timestamps are dropped on every call, including
// rejected ones, so a throttled client ages out on its own. A rejected
// request is not recorded.
func (s *SlidingWindow) Admit(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.filter(s.entries[id], now)
	if len(recent) >= s.max {
		s.entries[id] = recent
		return false
	}
	s.entries[id] = append(recent, now)
	return true
}

// filter keeps the timestamps newer than now-window. It reuses ts's
// backing array. The caller must hold s.mu.
func (s *SlidingWindow) filter(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-s.window)
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Prune drops clients whose windows are empty at now and returns how many
// were removed. Admission results are unaffected: a pruned client had no
// timestamps left to count.
func (s *SlidingWindow) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, ts := range s.entries {
		recent := s.filter(ts, now)
		if len(recent) == 0 {
			delete(s.entries, id)
			removed++
			continue
		}
		s.entries[id] = recent
	}
	return removed
}

// Len returns the number of tracked clients.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor prunes idle clients every interval until ctx is cancelled.
// A non-positive interval disables it.
func (s *SlidingWindow) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Prune(s.now())
			}
		}
	}()
}
