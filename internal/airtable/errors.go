package airtable

import (
	"errors"
	"fmt"

	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/formula"
)

// ErrorKind categorises client failures.
type ErrorKind string

const (
	// KindConfigurationMissing indicates required settings were absent at startup.
	KindConfigurationMissing ErrorKind = "CONFIGURATION_MISSING"

	// KindRemoteAPI indicates a non-2xx response. StatusCode and Body are set.
	KindRemoteAPI ErrorKind = "REMOTE_API_ERROR"

	// KindNetwork indicates a transport failure or timeout.
	KindNetwork ErrorKind = "NETWORK_ERROR"

	// KindInvalidArgument indicates an unusable combination of caller arguments.
	// Raised before any network I/O.
	KindInvalidArgument ErrorKind = "INVALID_ARGUMENT"

	// KindEmptyQuery indicates a filtered query was requested with no filters.
	KindEmptyQuery ErrorKind = "EMPTY_QUERY"

	// KindUnknown covers anything not produced by this package.
	KindUnknown ErrorKind = "UNKNOWN"
)

// Error is the single error type returned by Client operations.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op names the failed operation (e.g. "fetch", "alter_table").
	Op string

	// StatusCode is the HTTP status for KindRemoteAPI, else 0.
	StatusCode int

	// Body is the raw response body for KindRemoteAPI.
	Body string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Kind == KindRemoteAPI:
		return fmt.Sprintf("%s: %s: remote API error %d: %s", e.Kind, e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidArgument creates an Error for unusable caller input.
func NewInvalidArgument(op, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: message}
}

// NewEmptyQuery creates an Error for a filtered query with no filters.
func NewEmptyQuery(op string) *Error {
	return &Error{Kind: KindEmptyQuery, Op: op, Message: "no filter supplied", Err: formula.ErrEmptyQuery}
}

// KindOf classifies any error.
//
// Errors from this package report their own kind; configuration and
// formula sentinel errors are mapped onto the taxonomy; anything else is
// KindUnknown. Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, config.ErrConfigurationMissing) {
		return KindConfigurationMissing
	}
	if errors.Is(err, formula.ErrEmptyQuery) {
		return KindEmptyQuery
	}
	return KindUnknown
}

// IsRemoteAPIError returns true for non-2xx responses.
func IsRemoteAPIError(err error) bool {
	return KindOf(err) == KindRemoteAPI
}

// IsNetworkError returns true for transport failures and timeouts.
func IsNetworkError(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsInvalidArgument returns true for rejected caller input.
func IsInvalidArgument(err error) bool {
	return KindOf(err) == KindInvalidArgument
}

// IsEmptyQuery returns true when a filter was required but none was given.
func IsEmptyQuery(err error) bool {
	return KindOf(err) == KindEmptyQuery
}

// StatusCode extracts the HTTP status from a KindRemoteAPI error, else 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
