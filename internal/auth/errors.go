package auth

import "fmt"

// AuthError means no usable credential exists and interactive authorization
// could not be completed (headless environment, user declined, listener
// failure). Fatal for the current call, not for the process.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// RefreshError means the silent token refresh failed, typically because the
// refresh token was revoked or expired. Never retried automatically: recovery
// requires a full re-authorization, which needs user interaction.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("auth: token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
