package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a Harp error code.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"           // 400
	ErrUnpathedBuffer          ErrorCode = "UNPATHED_BUFFER"           // 400
	ErrRegisterUnset           ErrorCode = "REGISTER_UNSET"            // 404
	ErrWriteTargetUnavailable  ErrorCode = "WRITE_TARGET_UNAVAILABLE"  // 409
	ErrArityMismatch           ErrorCode = "ARITY_MISMATCH"            // 422
	ErrFormat                  ErrorCode = "FORMAT"                    // 422
	ErrIO                      ErrorCode = "IO"                        // 500
	ErrInternal                ErrorCode = "INTERNAL"                  // 500
)

// HarpError represents a structured error with code, status, and details.
type HarpError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *HarpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *HarpError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *HarpError {
	return &HarpError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnpathedBuffer creates an error for operations that need the current
// document to have a backing file.
func NewUnpathedBuffer() *HarpError {
	return &HarpError{
		Code:    ErrUnpathedBuffer,
		Status:  400,
		Message: "harp: current buffer doesn't have a path",
	}
}

// NewRegisterUnset creates a 404 error for a register absent from its section.
func NewRegisterUnset(section, register string) *HarpError {
	return &HarpError{
		Code:    ErrRegisterUnset,
		Status:  404,
		Message: fmt.Sprintf("harp `%s` unset", register),
		Details: map[string]any{"section": section, "register": register},
	}
}

// NewWriteTargetUnavailable creates an error for an empty source register
// that a set operation wanted to capture.
func NewWriteTargetUnavailable(source string) *HarpError {
	return &HarpError{
		Code:    ErrWriteTargetUnavailable,
		Status:  409,
		Message: fmt.Sprintf("harp: %s is empty", source),
		Details: map[string]any{"source": source},
	}
}

// NewArityMismatch creates a 422 error for an entry that doesn't hold what the
// caller requires. The two likely culprits look identical from the outside, so
// the message names both.
func NewArityMismatch(section, register string, missing []string) *HarpError {
	return &HarpError{
		Code:   ErrArityMismatch,
		Status: 422,
		Message: fmt.Sprintf(
			"harp register `%s` in section `%s` is missing %s (either the caller asks for too much, or the harp file was edited by hand)",
			register, section, strings.Join(missing, ", "),
		),
		Details: map[string]any{"section": section, "register": register, "missing_fields": missing},
	}
}

// NewCountMismatch creates a 422 error for a list entry with the wrong number of values.
func NewCountMismatch(section, register string, want string, got int) *HarpError {
	return &HarpError{
		Code:   ErrArityMismatch,
		Status: 422,
		Message: fmt.Sprintf(
			"incorrect amount of values in harp register `%s` (%d, want %s)",
			register, got, want,
		),
		Details: map[string]any{"section": section, "register": register, "want": want, "got": got},
	}
}

// NewFormat creates a 422 error for a backing document that can't be parsed.
func NewFormat(location string, err error) *HarpError {
	msg := fmt.Sprintf("harp: %s is malformed", location)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &HarpError{
		Code:    ErrFormat,
		Status:  422,
		Message: msg,
		Details: map[string]any{"location": location},
		cause:   err,
	}
}

// NewIO creates a 500 error for a backing document that can't be read or written.
func NewIO(op string, err error) *HarpError {
	msg := fmt.Sprintf("harp: %s failed", op)
	if err != nil {
		msg = fmt.Sprintf("harp: %s: %v", op, err)
	}
	return &HarpError{
		Code:    ErrIO,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *HarpError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &HarpError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a HarpError with the given code.
func Is(err error, code ErrorCode) bool {
	var hErr *HarpError
	if stderrors.As(err, &hErr) {
		return hErr.Code == code
	}
	return false
}

// As returns the HarpError in err's chain, if any.
func As(err error) (*HarpError, bool) {
	var hErr *HarpError
	if stderrors.As(err, &hErr) {
		return hErr, true
	}
	return nil, false
}

// Message returns the text shown on a status line: the HarpError message
// without its code, or err.Error() for anything else.
func Message(err error) string {
	if hErr, ok := As(err); ok {
		return hErr.Message
	}
	return err.Error()
}
