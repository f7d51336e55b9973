package provider

import (
	"errors"
	"io"
	"net"
	"testing"
)

func TestAuthError(t *testing.T) {
	t.Parallel()

	cause := errors.New("535 5.7.8 bad credentials")
	err := AuthError(cause)

	if !errors.Is(err, ErrAuthentication) {
		t.Error("errors.Is(err, ErrAuthentication): got false, want true")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport): got true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should stay reachable")
	}
	if err.Error() != "authentication failed: 535 5.7.8 bad credentials" {
		t.Errorf("Error(): got %q", err.Error())
	}
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	cause := &net.OpError{Op: "dial", Net: "tcp", Err: io.ErrUnexpectedEOF}
	err := TransportError(cause)

	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport): got false, want true")
	}
	if errors.Is(err, ErrAuthentication) {
		t.Error("errors.Is(err, ErrAuthentication): got true, want false")
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Error("errors.As(err, *net.OpError): got false, want true")
	}
}
