package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"
)

func TestResolveErrorWrapping(t *testing.T) {
	cause := os.ErrNotExist
	err := NewImageUnreadableError("/tmp/shot.png", cause)

	if !stderrors.Is(err, os.ErrNotExist) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if !stderrors.Is(err, &ResolveError{Code: ErrorImageUnreadable}) {
		t.Error("expected code match through Is")
	}
	if stderrors.Is(err, &ResolveError{Code: ErrorOCRFailed}) {
		t.Error("different code must not match")
	}

	wrapped := fmt.Errorf("locate: %w", err)
	if got := CodeOf(wrapped); got != ErrorImageUnreadable {
		t.Errorf("CodeOf = %q, want %q", got, ErrorImageUnreadable)
	}
	if got := CodeOf(os.ErrClosed); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestResolveErrorToMap(t *testing.T) {
	err := NewResolverPanicError("req-1", "boom")
	m := err.ToMap()
	if m["error_code"] != string(ErrorResolverPanic) {
		t.Errorf("error_code = %v", m["error_code"])
	}
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["panic"] != "boom" {
		t.Errorf("panic = %v", m["panic"])
	}
	if _, ok := m["cause"]; ok {
		t.Error("no cause expected")
	}
}

func TestWithRequest(t *testing.T) {
	base := NewNoBookError()
	tagged := base.WithRequest("abc")
	if tagged.RequestID != "abc" {
		t.Errorf("RequestID = %q", tagged.RequestID)
	}
	if base.RequestID != "" {
		t.Error("WithRequest must not modify the receiver")
	}
}
