// Package stats counts request outcomes. Recording is best-effort: callers
// log a failed Record and carry on.
package stats

import (
	"context"
	"time"
)

// Outcome names one way a contact request can end.
type Outcome string

const (
	RateLimited      Outcome = "rate_limited"
	TooLarge         Outcome = "too_large"
	InvalidJSON      Outcome = "invalid_json"
	Honeypot         Outcome = "honeypot"
	Invalid          Outcome = "invalid"
	Delivered        Outcome = "delivered"
	AuthFailure      Outcome = "auth_failure"
	TransportFailure Outcome = "transport_failure"
	UnknownFailure   Outcome = "unknown_failure"
)

// Event is one recorded outcome.
type Event struct {
	Outcome Outcome
	At      time.Time
}

// Recorder stores events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
