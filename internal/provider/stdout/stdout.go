// Package stdout implements a Provider that prints messages to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/shineum/contact-api/internal/email"
)

// Provider prints email messages in a human-readable format. It is meant
// for local development where no relay is available.
type Provider struct {
	// mu serializes writes so concurrent submissions do not interleave.
	mu     sync.Mutex
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the email message. A failed write is reported as an error
// so the caller does not claim delivery that never happened.
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\n", msg.SafeSubject())
	b.WriteString("Body:\n")
	b.WriteString(msg.TextBody)
	if !strings.HasSuffix(msg.TextBody, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("========================================\n")

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}
