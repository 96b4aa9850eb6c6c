// Package errs defines the closed error taxonomy shared by every layer of the
// retrieval pipeline. Components raise *Error values; the dispatcher is the
// sole place that converts them to protocol responses.
package errs

import "fmt"

// Code is a member of the closed error taxonomy. Names are contracts: callers
// match on Code, never on Message text.
type Code string

const (
	ConfigError     Code = "config_error"
	ConnectionError Code = "connection_error"
	TimeoutError    Code = "timeout_error"
	AuthError       Code = "auth_error"
	NotFound        Code = "not_found"
	InvalidInput    Code = "invalid_input"
	RateLimited     Code = "rate_limited"
	InternalError   Code = "internal_error"
	IngestionError  Code = "ingestion_error"
)

// Recoverable reports whether a caller may retry an operation that failed
// with this code. The mapping itself is the contract; it is not configurable.
func (c Code) Recoverable() bool {
	switch c {
	case ConnectionError, TimeoutError, RateLimited:
		return true
	default:
		return false
	}
}

// Error is the typed error carried between layers. New and Wrap store
// Message and Suggestion as given; the dispatcher sanitizes both before they
// reach a tool-call response.
type Error struct {
	Code       Code
	Message    string
	Suggestion string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Recoverable mirrors Code.Recoverable for convenience at call sites that
// only hold an *Error.
func (e *Error) Recoverable() bool { return e.Code.Recoverable() }

// New constructs an *Error with no wrapped cause.
func New(code Code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

// Wrap constructs an *Error carrying cause, adding operation context to the
// message the way the donor codebase wraps with fmt.Errorf("...: %w", err).
func Wrap(code Code, op string, cause error, suggestion string) *Error {
	return &Error{Code: code, Message: op, Suggestion: suggestion, Cause: cause}
}

// As extracts an *Error from err, following wrapped chains. It never panics
// on a nil or foreign error.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if ae, ok := err.(*Error); ok {
		return ae, true
	}
	type unwrapper interface{ Unwrap() error }
	for u, ok := err.(unwrapper); ok; u, ok = err.(unwrapper) {
		err = u.Unwrap()
		if ae, ok := err.(*Error); ok {
			return ae, true
		}
	}
	return nil, false
}
