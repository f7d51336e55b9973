// Package mailer turns a validated submission into an email and hands it to
// a delivery provider, reporting the result as a classified Outcome.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/contact-api/internal/email"
	"github.com/shineum/contact-api/internal/provider"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 15 * time.Second

// Kind classifies a delivery attempt.
type Kind int

const (
	Success Kind = iota
	AuthFailure
	TransportFailure
	UnknownFailure
)

// String returns the log name of k.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case AuthFailure:
		return "auth_failure"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown_failure"
	}
}

// Outcome is the result of Send. Err is nil on Success.
type Outcome struct {
	Kind Kind
	Err  error
}

// OK reports whether the message was handed off successfully.
func (o Outcome) OK() bool { return o.Kind == Success }

// Config controls message composition and delivery.
type Config struct {
	Template email.Template
	// Timeout bounds the provider call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Dispatcher composes contact messages and delivers them through a Provider.
// It is safe for concurrent use if the Provider is.
type Dispatcher struct {
	template email.Template
	timeout  time.Duration
	provider provider.Provider
	logger   *slog.Logger
}

// New creates a Dispatcher. A nil logger falls back to slog.Default().
func New(cfg Config, p provider.Provider, logger *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		template: cfg.Template,
		timeout:  cfg.Timeout,
		provider: p,
		logger:   logger,
	}
}

// Send composes and delivers one message. Cancellation of ctx is ignored
// once Send starts; only the configured timeout stops a delivery, so a
// client hanging up does not abort a half-sent message. Every failure
// produces exactly one Error record carrying an "outcome" attribute.
func (d *Dispatcher) Send(ctx context.Context, name, addr, phone, message string) Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	msg := d.template.Compose(name, addr, phone, message)

	d.logger.InfoContext(ctx, "sending message",
		"provider", d.provider.Name(),
		"recipient", msg.To,
	)

	start := time.Now()
	err := d.deliver(ctx, msg)
	out := classify(err)

	if out.OK() {
		d.logger.InfoContext(ctx, "message delivered",
			"provider", d.provider.Name(),
			"message_id", msg.MessageID,
			"duration", time.Since(start),
		)
		return out
	}

	d.logger.ErrorContext(ctx, "message delivery failed",
		"outcome", out.Kind.String(),
		"provider", d.provider.Name(),
		"duration", time.Since(start),
		"error", out.Err,
	)
	return out
}

// deliver calls the provider and converts a panic into an error.
func (d *Dispatcher) deliver(ctx context.Context, msg *email.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return d.provider.Send(ctx, msg)
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: Success}
	case errors.Is(err, provider.ErrAuthentication):
		return Outcome{Kind: AuthFailure, Err: err}
	case errors.Is(err, provider.ErrTransport):
		return Outcome{Kind: TransportFailure, Err: err}
	default:
		return Outcome{Kind: UnknownFailure, Err: err}
	}
}
