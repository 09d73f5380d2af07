// Package apperrors defines the error taxonomy shared by the launcher, the
// tool session and the task runner. Transport and tool-execution failures are
// recoverable inside a conversation; launch, connection and backend failures
// abort the task that hit them.
package apperrors

import (
	stderrors "errors"
	"fmt"
)

type Code string

const (
	CodeUnknown                Code = "UNKNOWN"
	CodeLaunchFailure          Code = "LAUNCH_FAILURE"
	CodeStartupTimeout         Code = "STARTUP_TIMEOUT"
	CodeConnectionError        Code = "CONNECTION_ERROR"
	CodeTransportError         Code = "TRANSPORT_ERROR"
	CodeToolExecutionFailure   Code = "TOOL_EXECUTION_FAILURE"
	CodeUnknownTool            Code = "UNKNOWN_TOOL"
	CodeBackendError           Code = "BACKEND_ERROR"
	CodeIterationLimitExceeded Code = "ITERATION_LIMIT_EXCEEDED"
)

// recoverable codes may be fed back into the conversation as a tool-result
// turn instead of aborting the loop.
var recoverable = map[Code]bool{
	CodeTransportError:       true,
	CodeToolExecutionFailure: true,
	CodeUnknownTool:          true,
}

type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches errors by code, so callers can compare against a bare
// apperrors.New(code, "") sentinel with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *Error) Code() Code       { return e.code }
func (e *Error) Message() string  { return e.message }
func (e *Error) Recoverable() bool { return recoverable[e.code] }

// CodeOf extracts the taxonomy code from any error chain.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Recoverable reports whether err may be surfaced to the model as a failed
// tool-result turn rather than aborting the task.
func Recoverable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Recoverable()
	}
	return false
}
