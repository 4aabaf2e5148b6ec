package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNegotiationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *NegotiationError
		want string
	}{
		{
			name: "basic error",
			err:  NewNegotiationError("record outcome", nil),
			want: "negotiation error: record outcome",
		},
		{
			name: "with cause",
			err:  NewNegotiationError("record outcome", ErrTimeout),
			want: "negotiation error: record outcome: operation timed out",
		},
		{
			name: "with session and peer",
			err:  NewNegotiationError("subscribe", nil).WithSessionID("s1").WithPeerID("p1"),
			want: "negotiation error [session=s1, peer=p1]: subscribe",
		},
		{
			name: "with phase",
			err:  NewNegotiationError("send", ErrTransportClosed).WithPhase("dice"),
			want: "negotiation error [phase=dice]: send: transport closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNegotiationError_Is(t *testing.T) {
	err := NewNegotiationError("send", ErrTransportClosed).WithSessionID("abc")

	if !Is(err, &NegotiationError{}) {
		t.Error("Is(NegotiationError{}) = false, want true")
	}
	if !Is(err, ErrTransportClosed) {
		t.Error("Is(ErrTransportClosed) = false, want true")
	}
	if Is(err, ErrProfileNotFound) {
		t.Error("Is(ErrProfileNotFound) = true, want false")
	}
}

func TestTransportError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransportError("publish", cause).WithKind("redis").WithAddress("localhost:6379")

	want := "transport error [kind=redis, addr=localhost:6379]: publish: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !err.IsRetryable() {
		t.Error("IsRetryable() = false, want true")
	}
	if !IsRetryable(Wrap(err, "negotiate")) {
		t.Error("IsRetryable(wrapped) = false, want true")
	}

	err = err.WithRetryable(false).WithSeverity(SeverityCritical)
	if IsRetryable(err) {
		t.Error("IsRetryable() after WithRetryable(false) = true, want false")
	}
	if GetSeverity(err) != SeverityCritical {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityCritical)
	}
}

func TestProfileError(t *testing.T) {
	err := NewProfileError("load profiles", ErrProfileNotFound).WithLabel("hospital").WithPath("/etc/p.yaml")

	want := "profile error [label=hospital, path=/etc/p.yaml]: load profiles: profile not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrProfileNotFound) {
		t.Error("Is(ErrProfileNotFound) = false, want true")
	}
	var pe *ProfileError
	if !As(Wrap(err, "outer"), &pe) {
		t.Fatal("As(ProfileError) = false, want true")
	}
	if pe.Label != "hospital" {
		t.Errorf("Label = %q, want %q", pe.Label, "hospital")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("profile", "care")
	if got := err.Error(); got != "profile 'care' not found" {
		t.Errorf("Error() = %q", got)
	}
	err = err.WithCause(ErrProfileNotFound)
	if !Is(err, ErrProfileNotFound) {
		t.Error("Is(ErrProfileNotFound) = false, want true")
	}
	if GetSeverity(err) != SeverityWarning {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityWarning)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("dice out of range").WithField("content").WithValue(0)

	want := "validation error [field=content, value=0]: dice out of range"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("Is(ErrInvalidInput) = false, want true")
	}
	if !IsUserFacing(err) {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("waiting for subscription", 2*time.Second)

	want := "timeout error: waiting for subscription (timeout: 2s)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrTimeout) {
		t.Error("Is(ErrTimeout) = false, want true")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
}

func TestClassification_PlainErrors(t *testing.T) {
	plain := errors.New("boom")

	if IsRetryable(plain) {
		t.Error("IsRetryable(plain) = true, want false")
	}
	if IsUserFacing(plain) {
		t.Error("IsUserFacing(plain) = true, want false")
	}
	if GetSeverity(plain) != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", GetSeverity(plain), SeverityError)
	}
	if GetSeverity(nil) != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", GetSeverity(nil), SeverityDebug)
	}
	if !IsRetryable(Wrap(ErrTimeout, "wait")) {
		t.Error("IsRetryable(wrapped ErrTimeout) = false, want true")
	}
}

func TestIsDropReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"malformed", Wrap(ErrMalformedMessage, "decode"), true},
		{"unknown kind", ErrUnknownKind, true},
		{"self", ErrSelfMessage, true},
		{"stale", ErrStaleSender, true},
		{"duplicate dice", ErrDuplicateDice, true},
		{"queue full", ErrQueueFull, true},
		{"transport", ErrTransportClosed, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDropReason(tt.err); got != tt.want {
				t.Errorf("IsDropReason() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}

	err := Wrapf(ErrNoPeers, "send to %d peers", 0)
	if err.Error() != "send to 0 peers: no peers configured" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !Is(err, ErrNoPeers) {
		t.Error("Is(ErrNoPeers) = false, want true")
	}
}
