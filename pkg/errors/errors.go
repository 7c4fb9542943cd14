// Package errors provides structured error types for revdeps.
//
// Every failure that can abort a scan carries a machine-readable [Code] so the
// CLI, sinks and tests can tell a registry outage from a malformed manifest
// without string matching:
//
//   - NETWORK_ERROR: search or package-content fetch failed
//   - NOT_FOUND: the registry has no such package or resource
//   - DECODE_ERROR: a search page or dependency manifest is not valid JSON
//   - INVALID_VERSION: a version string cannot be parsed
//   - ENTRY_NOT_FOUND / INVALID_ARCHIVE: the package archive is inconsistent
//   - INVALID_CONFIG / INVALID_INPUT / INVALID_PACKAGE: bad user input
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidVersion, "cannot parse %q", raw)
//	if errors.Is(err, errors.ErrCodeInvalidVersion) {
//	    // ...
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch page %d", skip)
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code classifies an [Error].
type Code string

const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidVersion Code = "INVALID_VERSION"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	ErrCodeDecode         Code = "DECODE_ERROR"
	ErrCodeEntryNotFound  Code = "ENTRY_NOT_FOUND"
	ErrCodeInvalidArchive Code = "INVALID_ARCHIVE"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error pairs a [Code] with a message and an optional cause. It renders as
// "CODE: message" or "CODE: message: cause".
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.UserMessage())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// UserMessage is the error text without the code prefix.
func (e *Error) UserMessage() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is [New] with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// outermost returns the first *Error in err's chain.
func outermost(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain carries code. A
// DECODE_ERROR wrapped in a NETWORK_ERROR is a NETWORK_ERROR.
func Is(err error, code Code) bool {
	e, ok := outermost(err)
	return ok && e.Code == code
}

// GetCode returns the outermost code in err's chain, or "" if there is none.
func GetCode(err error) Code {
	if e, ok := outermost(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns err's text without the code prefix when err carries
// one, or err.Error() otherwise.
func UserMessage(err error) string {
	if e, ok := outermost(err); ok {
		return e.UserMessage()
	}
	return err.Error()
}

// RateLimitedError is the cause attached to RATE_LIMITED errors.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter <= 0 {
		return "rate limited"
	}
	return "rate limited: retry after " + e.RetryAfter.String()
}

// Code returns [ErrCodeRateLimited].
func (e *RateLimitedError) Code() Code { return ErrCodeRateLimited }
