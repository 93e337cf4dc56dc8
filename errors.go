package authclient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSession is returned when no access token is stored. Route the user to login.
	ErrNoSession = errors.New("no session")
	// ErrUnauthenticated is returned by a refresh the API rejected with 401. The session
	// has been cleared; callers must treat it as a logout and never retry.
	ErrUnauthenticated = errors.New("refresh token rejected")
	// ErrTransient is returned by a refresh that failed for any other reason (network,
	// 5xx, malformed body). The session is left untouched.
	ErrTransient = errors.New("transient refresh failure")
	// ErrSessionExpired is returned when a request exhausted its retry budget or its
	// refresh was rejected. Route the user to login.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork wraps transport-level failures of the request itself.
	ErrNetwork = errors.New("network failure")
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrUnexpectedTokenType is returned by Login when the API answers with a token_type
	// other than bearer.
	ErrUnexpectedTokenType = errors.New("unexpected token type")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
)

// StatusError is a non-2xx API answer that is not a structured validation failure.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ERROR STATUS: %d", e.StatusCode)
	}
	return fmt.Sprintf("ERROR STATUS: %d: %s", e.StatusCode, e.Detail)
}

// FieldError is one entry of an API `detail` array.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is a 4xx answer carrying a structured `detail` array.
type ValidationError struct {
	StatusCode int
	Fields     []FieldError
}

// Error joins every entry as "field: message".
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, " ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NeedsLogin reports whether err means the user must authenticate again.
func NeedsLogin(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrUnauthenticated)
}
