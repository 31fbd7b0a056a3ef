package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
)

// Error is a failed API call. Status is 0 when no response was received, in
// which case Err holds the transport error.
type Error struct {
	Method string
	Path   string
	Status int
	// Body is the decoded JSON object of the error response, if any.
	Body map[string]any
	// Text is the raw response body when it was not a JSON object.
	Text string
	Err  error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Status == 0
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrInsufficientFunds:
		return e.Status == http.StatusPaymentRequired || e.mentionsInsufficient()
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

func (e *Error) mentionsInsufficient() bool {
	if e.Status < 400 {
		return false
	}
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := e.Field(key); ok && strings.Contains(strings.ToLower(s), "insufficient") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(e.Text), "insufficient")
}

// Field returns the first message stored under key. Django-style bodies hold
// either a string or a list of strings per field.
func (e *Error) Field(key string) (string, bool) {
	v, ok := e.Body[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, val != ""
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// Flag reports whether key holds boolean true, e.g. {"error": true}.
func (e *Error) Flag(key string) bool {
	v, ok := e.Body[key].(bool)
	return ok && v
}
