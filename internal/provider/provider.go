// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"errors"

	"github.com/shineum/contact-api/internal/email"
)

// Failure classes a Provider wraps its errors with so callers can tell
// credential problems apart from delivery problems.
var (
	// ErrAuthentication means the backend rejected the configured credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrTransport means the backend could not be reached or refused the
	// message at the protocol level.
	ErrTransport = errors.New("transport failure")
)

// Provider is the interface that email delivery backends must implement.
// Each provider hands a composed message to the target service
// (SMTP relay, AWS SES, Microsoft Graph, stdout).
type Provider interface {
	// Send delivers an email message through this provider.
	// Errors wrap ErrAuthentication or ErrTransport where the provider can
	// tell; anything else is treated as unexpected.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}

// classified pairs a failure class with the underlying cause.
type classified struct {
	class error
	cause error
}

func (e *classified) Error() string { return e.class.Error() + ": " + e.cause.Error() }

func (e *classified) Unwrap() []error { return []error{e.class, e.cause} }

// AuthError wraps err so that errors.Is(err, ErrAuthentication) holds while
// the underlying cause stays reachable through errors.As.
func AuthError(err error) error {
	return &classified{class: ErrAuthentication, cause: err}
}

// TransportError wraps err so that errors.Is(err, ErrTransport) holds while
// the underlying cause stays reachable through errors.As.
func TransportError(err error) error {
	return &classified{class: ErrTransport, cause: err}
}
