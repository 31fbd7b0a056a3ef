package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
)

const (
	msgNoResponse       = "No response from server. Please check your network connection."
	msgUnknown          = "An unknown error occurred"
	msgAuthFailed       = "Authentication failed"
	msgMessagingFailed  = "Messaging operation failed"
	msgProfileFailed    = "Profile operation failed"
	msgInsufficientCoin = "Insufficient coins. Get more coins to keep chatting."
)

var ErrConversationNotFound = errors.New("conversation not found")

// Error is what services return to the UI: Message is ready to show, Err keeps
// the underlying cause so errors.Is still matches api sentinels.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// authError picks the most specific message the server gave, in the order
// error flag, detail, username, email, password, password confirmation.
func authError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return &Error{Message: msgUnknown, Err: err}
	}
	if apiErr.Status == 0 {
		return &Error{Message: msgNoResponse, Err: err}
	}

	if apiErr.Flag("error") {
		if msg, ok := apiErr.Field("message"); ok {
			return &Error{Message: msg, Err: err}
		}
		return &Error{Message: msgAuthFailed, Err: err}
	}
	if msg, ok := apiErr.Field("error"); ok {
		if m, ok := apiErr.Field("message"); ok {
			msg = m
		}
		return &Error{Message: msg, Err: err}
	}
	if msg, ok := apiErr.Field("detail"); ok {
		return &Error{Message: msg, Err: err}
	}

	fields := []struct{ key, label string }{
		{"username", "Username"},
		{"email", "Email"},
		{"password", "Password"},
		{"password_confirm", "Password confirmation"},
	}
	for _, f := range fields {
		if msg, ok := apiErr.Field(f.key); ok {
			return &Error{Message: fmt.Sprintf("%s: %s", f.label, msg), Err: err}
		}
	}
	return &Error{Message: msgUnknown, Err: err}
}

// operationError is used by the messaging and profile services: the server's
// message field, then a plain-text body, then fallback.
func operationError(err error, fallback string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return &Error{Message: fallback, Err: err}
	}
	if apiErr.Status == 0 {
		return &Error{Message: msgNoResponse, Err: err}
	}
	for _, key := range []string{"message", "detail", "error"} {
		if msg, ok := apiErr.Field(key); ok {
			return &Error{Message: msg, Err: err}
		}
	}
	if apiErr.Text != "" {
		return &Error{Message: apiErr.Text, Err: err}
	}
	if errors.Is(err, api.ErrInsufficientFunds) {
		return &Error{Message: msgInsufficientCoin, Err: err}
	}
	return &Error{Message: fallback, Err: err}
}
