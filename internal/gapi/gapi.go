// Package gapi shapes Gmail API failures into the typed error taxonomy the
// tool layer exposes, and applies the bounded retry policy for transient
// upstream failures at the dispatch boundary.
package gapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/emailbot/gmail-mcp/internal/auth"
	"google.golang.org/api/googleapi"
)

// Kind classifies a tool failure for the calling model.
type Kind string

const (
	// KindAuth: no usable credential and authorization could not complete.
	KindAuth Kind = "auth_error"
	// KindRefresh: the refresh token was revoked or expired; re-authorization
	// is required.
	KindRefresh Kind = "credential_refresh_error"
	// KindInvalidInput: the caller supplied malformed input. Raised before
	// any network call or mutation.
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound: the referenced entity existed upstream but is gone.
	KindNotFound Kind = "not_found"
	// KindUpstream: the Gmail API failed. Transient variants (rate limit,
	// 5xx) are retried before being surfaced.
	KindUpstream Kind = "upstream_error"
)

// Error is a classified failure: a kind plus a human-readable message,
// suitable for returning to the MCP layer as structured failure content.
type Error struct {
	Kind      Kind
	Msg       string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput builds an invalid-input error. Handlers raise it during
// validation, before any network call is made.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the failure kind of an error, defaulting to upstream.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	var aerr *auth.AuthError
	if errors.As(err, &aerr) {
		return KindAuth
	}
	var rerr *auth.RefreshError
	if errors.As(err, &rerr) {
		return KindRefresh
	}
	return KindUpstream
}

// Shape wraps an arbitrary handler error into a classified *Error. Already
// classified errors pass through unchanged.
func Shape(err error) *Error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}
	return &Error{Kind: KindOf(err), Msg: err.Error(), Err: errors.Unwrap(err)}
}

// classify maps an API error onto the taxonomy. op names the operation for
// the human-readable message.
func classify(op string, err error) *Error {
	var aerr *auth.AuthError
	if errors.As(err, &aerr) {
		return &Error{Kind: KindAuth, Msg: op, Err: err}
	}
	var rerr *auth.RefreshError
	if errors.As(err, &rerr) {
		return &Error{Kind: KindRefresh, Msg: op, Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 404:
			return &Error{Kind: KindNotFound, Msg: op, Err: err}
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return &Error{Kind: KindUpstream, Msg: op, Transient: true, Err: err}
		default:
			// Permanent 4xx (permission denied, bad request built upstream):
			// surfaced immediately, never retried.
			return &Error{Kind: KindUpstream, Msg: op, Err: err}
		}
	}

	return &Error{Kind: KindUpstream, Msg: op, Err: err}
}

// Retry policy for transient upstream failures: exponential backoff starting
// at 500ms, doubling, capped at 5s, at most 4 attempts total.
const (
	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 5 * time.Second
	retryMultiplier      = 2
	retryMaxAttempts     = 4
)

// Call runs one Gmail API round trip through the retry boundary. Transient
// upstream failures are retried with exponential backoff; everything else is
// surfaced immediately as a classified *Error. op names the operation in
// failure messages, e.g. "sending message".
func Call[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	operation := func() (T, error) {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		cerr := classify(op, err)
		if cerr.Transient {
			return v, cerr
		}
		return v, backoff.Permanent(cerr)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.Multiplier = retryMultiplier

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(retryMaxAttempts),
	)
}

// Do is Call for operations that return no value, like deletes.
func Do(ctx context.Context, op string, fn func() error) error {
	_, err := Call(ctx, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
