package gapi

import (
	"context"
	"errors"
	"testing"

	"github.com/emailbot/gmail-mcp/internal/auth"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      Kind
		wantTransient bool
	}{
		{"rate limit", &googleapi.Error{Code: 429}, KindUpstream, true},
		{"server error", &googleapi.Error{Code: 500}, KindUpstream, true},
		{"bad gateway", &googleapi.Error{Code: 502}, KindUpstream, true},
		{"not found", &googleapi.Error{Code: 404}, KindNotFound, false},
		{"forbidden", &googleapi.Error{Code: 403}, KindUpstream, false},
		{"bad request", &googleapi.Error{Code: 400}, KindUpstream, false},
		{"auth", &auth.AuthError{Reason: "declined"}, KindAuth, false},
		{"refresh", &auth.RefreshError{Err: errors.New("revoked")}, KindRefresh, false},
		{"plain", errors.New("connection reset"), KindUpstream, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Transient != tt.wantTransient {
				t.Errorf("Transient = %v, want %v", got.Transient, tt.wantTransient)
			}
		})
	}
}

func TestClassify_Wrapped(t *testing.T) {
	// Errors wrapped with %w still classify.
	wrapped := &wrapError{err: &googleapi.Error{Code: 429}}
	got := classify("op", wrapped)
	if got.Kind != KindUpstream || !got.Transient {
		t.Errorf("wrapped 429 classified as %v (transient=%v), want transient upstream", got.Kind, got.Transient)
	}
}

type wrapError struct{ err error }

func (w *wrapError) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapError) Unwrap() error { return w.err }

func TestCall_SuccessFirstTry(t *testing.T) {
	calls := 0
	got, err := Call(context.Background(), "op", func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want \"ok\" after 1", got, calls)
	}
}

func TestCall_RetriesTransient(t *testing.T) {
	calls := 0
	got, err := Call(context.Background(), "op", func() (string, error) {
		calls++
		if calls < 2 {
			return "", &googleapi.Error{Code: 429}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Errorf("got %q, want \"ok\"", got)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestCall_PermanentNotRetried(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), "op", func() (string, error) {
		calls++
		return "", &googleapi.Error{Code: 403}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fn called %d times for a permanent failure, want 1", calls)
	}
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindUpstream || gerr.Transient {
		t.Errorf("error = %v, want permanent upstream *Error", err)
	}
}

func TestCall_RefreshErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), "op", func() (string, error) {
		calls++
		return "", &auth.RefreshError{Err: errors.New("revoked")}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fn called %d times for a refresh failure, want 1", calls)
	}
	if KindOf(err) != KindRefresh {
		t.Errorf("KindOf = %v, want KindRefresh", KindOf(err))
	}
}

func TestCall_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), "op", func() (string, error) {
		calls++
		return "", &googleapi.Error{Code: 503}
	})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if calls != retryMaxAttempts {
		t.Errorf("fn called %d times, want %d", calls, retryMaxAttempts)
	}
}

func TestDo(t *testing.T) {
	if err := Do(context.Background(), "op", func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	err := Do(context.Background(), "op", func() error {
		return &googleapi.Error{Code: 404}
	})
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %v, want KindNotFound", KindOf(err))
	}
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("bad address %q", "nope")
	if err.Kind != KindInvalidInput {
		t.Errorf("Kind = %v, want KindInvalidInput", err.Kind)
	}
	if KindOf(err) != KindInvalidInput {
		t.Errorf("KindOf = %v, want KindInvalidInput", KindOf(err))
	}
}

func TestShape_PassThrough(t *testing.T) {
	orig := InvalidInput("bad")
	if got := Shape(orig); got != orig {
		t.Error("Shape rebuilt an already classified error")
	}

	shaped := Shape(errors.New("boom"))
	if shaped.Kind != KindUpstream {
		t.Errorf("Kind = %v, want KindUpstream", shaped.Kind)
	}
}
