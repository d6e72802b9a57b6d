package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/sixhat/internal/inference"
	"github.com/dyluth/sixhat/internal/tools"
)

// Reason classifies why a role failed to produce an artifact.
type Reason string

const (
	ReasonBackendUnavailable Reason = "BackendUnavailable"
	ReasonInvalidResponse    Reason = "InvalidResponse"
	ReasonToolError          Reason = "ToolError"
	ReasonTimeout            Reason = "Timeout"
)

// Failure is the error every Agent.Run returns.
type Failure struct {
	Role   Role
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", f.Role, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether running the role again may succeed.
// Tool errors are not retried: research degrades instead.
func (f *Failure) Retryable() bool {
	return f.Reason != ReasonToolError
}

// Classify wraps err as a *Failure for role. Existing failures pass through.
func Classify(role Role, err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var reason Reason
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = ReasonTimeout
	case errors.Is(err, tools.ErrToolUnavailable):
		reason = ReasonToolError
	default:
		reason = Reason(inference.ReasonOf(err))
	}
	return &Failure{Role: role, Reason: reason, Err: err}
}

func invalid(role Role, format string, args ...any) *Failure {
	return &Failure{Role: role, Reason: ReasonInvalidResponse, Err: fmt.Errorf(format, args...)}
}
