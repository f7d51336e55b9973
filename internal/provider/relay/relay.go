// Package relay implements a Provider that submits messages to an SMTP
// relay over a STARTTLS-upgraded session.
package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/shineum/contact-api/internal/email"
	"github.com/shineum/contact-api/internal/provider"
)

// defaultTimeout bounds a whole relay session when Config.Timeout is zero.
const defaultTimeout = 15 * time.Second

// Config holds the configuration for creating a relay Provider.
type Config struct {
	// Addr is the relay address in host:port form.
	Addr string

	// Username and Password enable AUTH PLAIN when both are set.
	Username string
	Password string

	// Timeout bounds dialing and the complete SMTP conversation.
	Timeout time.Duration

	// TLSConfig is used for the STARTTLS upgrade. When nil, the relay
	// certificate is verified against the host part of Addr.
	TLSConfig *tls.Config
}

// Provider delivers messages through an SMTP relay.
type Provider struct {
	config Config
}

// New creates a relay Provider with the given configuration.
func New(cfg Config) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TLSConfig == nil {
		host, _, _ := net.SplitHostPort(cfg.Addr)
		cfg.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return &Provider{config: cfg}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

// AuthEnabled returns true if relay credentials are configured.
func (p *Provider) AuthEnabled() bool {
	return p.config.Username != "" && p.config.Password != ""
}

// Send opens a session to the relay, upgrades it with STARTTLS,
// authenticates when credentials are configured and submits msg to its
// recipients. Rejected credentials are reported as provider.ErrAuthentication,
// network and protocol failures as provider.ErrTransport.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", p.config.Addr)
	if err != nil {
		return provider.TransportError(fmt.Errorf("failed to connect to relay: %w", err))
	}

	// The client moves the connection deadline on every command, so the
	// session as a whole is bounded by closing the connection instead.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	client := smtp.NewClient(conn)
	client.CommandTimeout = p.config.Timeout
	client.SubmissionTimeout = p.config.Timeout
	if err := client.StartTLS(p.config.TLSConfig); err != nil {
		client.Close()
		return provider.TransportError(fmt.Errorf("STARTTLS failed: %w", err))
	}
	defer client.Close()

	if p.AuthEnabled() {
		if err := p.authenticate(client); err != nil {
			return err
		}
	}

	if err := submit(client, msg.From, msg.To, raw); err != nil {
		return provider.TransportError(err)
	}

	// The message is accepted at this point; a failed QUIT does not undo it.
	_ = client.Quit()
	return nil
}

// authenticate performs AUTH PLAIN. Any reply the relay sends to the
// credentials counts as an authentication failure; broken connections do not.
func (p *Provider) authenticate(client *smtp.Client) error {
	if ok, _ := client.Extension("AUTH"); !ok {
		return provider.TransportError(errors.New("relay does not advertise AUTH"))
	}

	err := client.Auth(sasl.NewPlainClient("", p.config.Username, p.config.Password))
	if err == nil {
		return nil
	}

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return provider.AuthError(err)
	}
	return provider.TransportError(fmt.Errorf("AUTH failed: %w", err))
}

// submit runs the MAIL, RCPT and DATA commands for one message.
func submit(client *smtp.Client, from string, to []string, raw []byte) error {
	if err := client.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(raw)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return nil
}
