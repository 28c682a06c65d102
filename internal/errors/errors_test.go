package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestHarpError_Error(t *testing.T) {
	err := &HarpError{
		Code:    ErrRegisterUnset,
		Status:  404,
		Message: "harp `a` unset",
	}

	expected := "REGISTER_UNSET: harp `a` unset"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("register is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "register is required" {
		t.Errorf("Message = %q, want %q", err.Message, "register is required")
	}
}

func TestNewUnpathedBuffer(t *testing.T) {
	err := NewUnpathedBuffer()

	if err.Code != ErrUnpathedBuffer {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnpathedBuffer)
	}
	if !strings.Contains(err.Message, "doesn't have a path") {
		t.Errorf("Message = %q, want mention of missing path", err.Message)
	}
}

func TestNewRegisterUnset(t *testing.T) {
	err := NewRegisterUnset("harp_files", "b")

	if err.Code != ErrRegisterUnset {
		t.Errorf("Code = %q, want %q", err.Code, ErrRegisterUnset)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["section"] != "harp_files" {
		t.Errorf("Details[section] = %v, want %q", err.Details["section"], "harp_files")
	}
	if err.Details["register"] != "b" {
		t.Errorf("Details[register] = %v, want %q", err.Details["register"], "b")
	}
}

func TestNewWriteTargetUnavailable(t *testing.T) {
	err := NewWriteTargetUnavailable("register /")

	if err.Code != ErrWriteTargetUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrWriteTargetUnavailable)
	}
	if err.Message != "harp: register / is empty" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewArityMismatch(t *testing.T) {
	err := NewArityMismatch("harp_marks", "m", []string{"line", "column"})

	if err.Code != ErrArityMismatch {
		t.Errorf("Code = %q, want %q", err.Code, ErrArityMismatch)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	missing, ok := err.Details["missing_fields"].([]string)
	if !ok || len(missing) != 2 || missing[0] != "line" || missing[1] != "column" {
		t.Errorf("Details[missing_fields] = %v, want [line column]", err.Details["missing_fields"])
	}
	if !strings.Contains(err.Message, "edited by hand") {
		t.Errorf("Message = %q, want both culprits named", err.Message)
	}
}

func TestNewCountMismatch(t *testing.T) {
	err := NewCountMismatch("harp_files", "a", "1", 3)

	if err.Code != ErrArityMismatch {
		t.Errorf("Code = %q, want %q", err.Code, ErrArityMismatch)
	}
	if err.Details["got"] != 3 {
		t.Errorf("Details[got] = %v, want 3", err.Details["got"])
	}
}

func TestNewFormat_Unwraps(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := NewFormat("/tmp/harp.jsonc", cause)

	if err.Code != ErrFormat {
		t.Errorf("Code = %q, want %q", err.Code, ErrFormat)
	}
	if !stderrors.Is(err, cause) {
		t.Error("NewFormat should wrap its cause")
	}
}

func TestNewIO_Unwraps(t *testing.T) {
	err := NewIO("read /nope", os.ErrPermission)

	if err.Code != ErrIO {
		t.Errorf("Code = %q, want %q", err.Code, ErrIO)
	}
	if !stderrors.Is(err, os.ErrPermission) {
		t.Error("NewIO should wrap its cause")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("boom"))
	if err.Message != "boom" {
		t.Errorf("Message = %q, want %q", err.Message, "boom")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{"matching code", NewRegisterUnset("s", "r"), ErrRegisterUnset, true},
		{"different code", NewRegisterUnset("s", "r"), ErrFormat, false},
		{"wrapped", fmt.Errorf("ctx: %w", NewUnpathedBuffer()), ErrUnpathedBuffer, true},
		{"plain error", fmt.Errorf("plain"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewInvalidRequest("x"))

	hErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() should find the HarpError")
	}
	if hErr.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", hErr.Code, ErrInvalidRequest)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As() should not match a plain error")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(fmt.Errorf("wrap: %w", NewRegisterUnset("harp_files", "b"))); got != "harp `b` unset" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(stderrors.New("plain")); got != "plain" {
		t.Errorf("Message() = %q, want %q", got, "plain")
	}
}
