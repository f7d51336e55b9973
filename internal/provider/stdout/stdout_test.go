package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shineum/contact-api/internal/email"
)

func testMessage() *email.Message {
	tmpl := email.Template{From: "web@example.com", To: "owner@example.com", SubjectPrefix: "[Contact Form]"}
	return tmpl.Compose("Jana", "jana@example.com", "", "Hello there")
}

func TestSend_BasicMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "From: web@example.com") {
		t.Error("output missing From header")
	}
	if !strings.Contains(output, "To: owner@example.com") {
		t.Error("output missing To header")
	}
	if !strings.Contains(output, "Reply-To: jana@example.com") {
		t.Error("output missing Reply-To header")
	}
	if !strings.Contains(output, "Subject: [Contact Form] Message from Jana") {
		t.Error("output missing Subject header")
	}
	if !strings.Contains(output, "Hello there") {
		t.Error("output missing body text")
	}
	if !strings.HasPrefix(output, "========================================\n") {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, "========================================\n") {
		t.Error("output should end with separator line")
	}
}

func TestSend_NoReplyTo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "web@example.com",
		To:       []string{"owner@example.com"},
		Subject:  "No reply",
		TextBody: "Body",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "Reply-To:") {
		t.Error("output should not contain Reply-To line when unset")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{})
	if err := p.Send(context.Background(), testMessage()); err == nil {
		t.Error("expected error from failing writer, got nil")
	}
}

func TestSend_ConcurrentWritesDoNotInterleave(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Send(context.Background(), testMessage())
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "Subject: [Contact Form] Message from Jana\n"); got != 20 {
		t.Errorf("Subject lines: got %d, want 20", got)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", p.Name(), "stdout")
	}
}
