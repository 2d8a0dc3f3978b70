package service

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrAuthFailed is the opaque condition reported for any login or
	// registration failure.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotAuthenticated is returned when an operation needs a session and
	// none is active.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInconsistentSession marks persisted session state where the token and
	// the cached user do not agree.
	ErrInconsistentSession = errors.New("inconsistent session state")
)

// ValidationError reports field-scoped input errors.
// Fields maps the lower-case field name to a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, name := range names {
		msgs[i] = e.Fields[name]
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// AuthError wraps a login or registration failure.
// It always reads as ErrAuthFailed; the cause is kept for logging.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return ErrAuthFailed.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }

// GatewayError is any failure of a remote task call.
// Status is 0 when no HTTP response was received.
type GatewayError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Status == 0 && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Status == 0:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
	default:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Unauthorized reports whether the server rejected the credentials.
func (e *GatewayError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether err means the request carried no valid
// session: either no token was available or the server answered 401.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	var gerr *GatewayError
	return errors.As(err, &gerr) && gerr.Unauthorized()
}
