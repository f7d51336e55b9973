// Package email defines the outgoing message model used by the contact API
// and renders it as an RFC 5322 message.
package email

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhonePlaceholder stands in for the phone number when the submitter left it empty.
const PhonePlaceholder = "(not provided)"

// Message represents a composed plaintext email ready for delivery.
type Message struct {
	From      string
	To        []string
	ReplyTo   string
	Subject   string
	TextBody  string
	MessageID string
	Date      time.Time
}

// Template holds the fixed addressing applied to every contact message.
type Template struct {
	From          string
	To            string
	SubjectPrefix string
}

// Compose builds the message for a contact submission. The recipient is
// always the configured one; replies go to the submitter.
func (t Template) Compose(name, addr, phone, message string) *Message {
	if phone == "" {
		phone = PhonePlaceholder
	}

	var b strings.Builder
	b.WriteString("New message from the contact form\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Name:     %s\n", name)
	fmt.Fprintf(&b, "Email:    %s\n", addr)
	fmt.Fprintf(&b, "Phone:    %s\n\n", phone)
	fmt.Fprintf(&b, "Message:\n%s\n", message)

	subject := "Message from " + name
	if t.SubjectPrefix != "" {
		subject = t.SubjectPrefix + " " + subject
	}

	return &Message{
		From:      t.From,
		To:        []string{t.To},
		ReplyTo:   addr,
		Subject:   subject,
		TextBody:  b.String(),
		MessageID: newMessageID(t.From),
		Date:      time.Now(),
	}
}

// Bytes renders the message as RFC 5322 text with a quoted-printable
// UTF-8 body and CRLF line endings.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", strings.Join(m.To, ", "))
	if m.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", m.ReplyTo)
	}
	buf.WriteString("Subject: " + encodeSubject(m.Subject) + "\r\n")
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	if m.MessageID != "" {
		writeHeader(&buf, "Message-ID", m.MessageID)
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", "text/plain; charset=utf-8")
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(crlf(m.TextBody))); err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}

	return buf.Bytes(), nil
}

// SafeSubject returns the subject with line breaks collapsed, for transports
// that take the subject as a structured field.
func (m *Message) SafeSubject() string {
	return headerSafe(m.Subject)
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, headerSafe(value))
}

// headerSafe collapses CR and LF so submitter-controlled values cannot
// start a new header.
func headerSafe(v string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(v)
}

// encodeSubject Q-encodes a non-ASCII subject and folds it between encoded
// words so no header line exceeds the RFC 5322 limit.
func encodeSubject(subject string) string {
	raw := headerSafe(subject)
	encoded := mime.QEncoding.Encode("utf-8", raw)
	if encoded == raw {
		return raw
	}
	return strings.ReplaceAll(encoded, "?= =?", "?=\r\n =?")
}

// crlf normalizes line endings to CRLF.
func crlf(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
