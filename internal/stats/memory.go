package stats

import (
	"context"
	"sync"
)

// Memory keeps counters in process memory. Counts reset on restart.
type Memory struct {
	mu     sync.Mutex
	counts map[Outcome]int64
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{counts: make(map[Outcome]int64)}
}

// Record increments the counter for ev.Outcome.
func (m *Memory) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[ev.Outcome]++
	return nil
}

// Count returns the number of events recorded for o.
func (m *Memory) Count(o Outcome) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[o]
}

// Snapshot returns a copy of all counters.
func (m *Memory) Snapshot() map[Outcome]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Outcome]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}
