// Package errs defines the error codes surfaced by the dome generator.
//
// Every failure carries a Code and the subject it concerns (a star ID or a
// configuration key) so messages always name the offending value. Codes are
// string based so they read well in logs.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeCatalogUnavailable indicates the catalog query could not be completed.
	CodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"

	// CodeEmptyResult indicates the catalog filter matched no stars.
	CodeEmptyResult Code = "EMPTY_RESULT"

	// CodeInvalidProjectionConfig indicates a configuration value was rejected.
	CodeInvalidProjectionConfig Code = "INVALID_PROJECTION_CONFIG"

	// CodeDuplicateStarIdentifier indicates two catalog rows share an ID.
	CodeDuplicateStarIdentifier Code = "DUPLICATE_STAR_IDENTIFIER"

	// CodeCoincidentPerforation indicates two stars project to the same spot.
	CodeCoincidentPerforation Code = "COINCIDENT_PERFORATION"

	// CodeOutputFailed indicates the scene file could not be written.
	CodeOutputFailed Code = "OUTPUT_FAILED"

	// CodePublishFailed indicates the scene file could not be uploaded.
	CodePublishFailed Code = "PUBLISH_FAILED"
)

// Fatal reports whether a failure with this code must abort the run.
// Data-quality codes are warnings: the pipeline repairs the input and goes on.
func (c Code) Fatal() bool {
	switch c {
	case CodeDuplicateStarIdentifier, CodeCoincidentPerforation:
		return false
	default:
		return true
	}
}

// Error is a coded failure about a single subject.
type Error struct {
	Code    Code
	Subject string
	Message string
	Err     error
}

// New creates an Error without an underlying cause.
func New(code Code, subject, message string) *Error {
	return &Error{Code: code, Subject: subject, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, subject, format string, args ...interface{}) *Error {
	return New(code, subject, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and subject to an existing error.
func Wrap(err error, code Code, subject, message string) *Error {
	return &Error{Code: code, Subject: subject, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Subject != "" {
		msg += " [" + e.Subject + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so callers can write
// errors.Is(err, errs.New(errs.CodeEmptyResult, "", "")) or use Has.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Has reports whether err's chain contains an *Error with the given code.
func Has(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
