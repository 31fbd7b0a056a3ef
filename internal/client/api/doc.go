// Package api is the single request pipeline between the client core and the
// REST backend.
//
// # Overview
//
// Client attaches "Authorization: Token <token>" to every request when a
// token is known, logs method and path when a request starts and the status
// when it ends, records Prometheus metrics, and decodes JSON responses.
//
// The token lives in an in-memory cache backed by a TokenStore. The first
// read lazily loads it from the store (cold start); SetToken, SetSession,
// ClearToken and ClearSession write through to the store before the cache is
// updated, so cache and store never diverge. Feature services never touch the
// store directly.
//
// # Unauthorized responses
//
// A 401 response clears the stored session. Concurrent 401s collapse into a
// single clear: only a request that carried the currently cached token can
// trigger it, and concurrent triggers share one execution. Listeners added
// with OnSessionCleared run once per clear.
//
// # Error Handling
//
// Failures are returned as *Error, which matches the sentinels ErrUnavailable,
// ErrUnauthorized, ErrInsufficientFunds, ErrValidation and ErrNotFound with
// errors.Is. Context cancellation is returned unchanged.
package api
