// Package inference provides the reasoning backends every role calls.
//
// A backend is anything that can turn a role context plus role instructions
// into text. Failures are reported as *Error carrying one of three reasons,
// which is all the orchestrator needs to decide between retrying and giving
// up.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client is the boundary between roles and a reasoning backend.
type Client interface {
	Complete(ctx context.Context, roleContext, roleInstructions string) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, roleContext, roleInstructions string) (string, error)

func (f ClientFunc) Complete(ctx context.Context, roleContext, roleInstructions string) (string, error) {
	return f(ctx, roleContext, roleInstructions)
}

// WithTimeout bounds every Complete call made through c.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return ClientFunc(func(ctx context.Context, roleContext, roleInstructions string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return c.Complete(ctx, roleContext, roleInstructions)
	})
}

// Reason classifies a backend failure.
type Reason string

const (
	ReasonBackendUnavailable Reason = "BackendUnavailable"
	ReasonInvalidResponse    Reason = "InvalidResponse"
	ReasonTimeout            Reason = "Timeout"
)

// Error is a classified backend failure.
type Error struct {
	Provider   string
	Reason     Reason
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from any error returned by a Client.
// Unclassified errors count as BackendUnavailable, deadlines as Timeout.
func ReasonOf(err error) Reason {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonBackendUnavailable
}

// Invalid builds an InvalidResponse error.
func Invalid(provider string, format string, args ...any) *Error {
	return &Error{Provider: provider, Reason: ReasonInvalidResponse, Err: fmt.Errorf(format, args...)}
}

// transportError classifies a failure to reach the backend.
func transportError(ctx context.Context, provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Provider: provider, Reason: ReasonTimeout, Err: err}
	}
	return &Error{Provider: provider, Reason: ReasonBackendUnavailable, Err: err}
}

// statusError classifies a non-200 HTTP reply.
func statusError(provider string, code int, body string) *Error {
	reason := ReasonInvalidResponse
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		reason = ReasonBackendUnavailable
	}
	return &Error{Provider: provider, Reason: reason, StatusCode: code, Err: fmt.Errorf("%s", truncate(body, 300))}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
