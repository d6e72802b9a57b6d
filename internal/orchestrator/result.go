package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/pkg/blackboard"
)

// StopReason records why the analysis loop ended.
type StopReason string

const (
	StopNone           StopReason = ""
	StopCancelled      StopReason = "Cancelled"
	StopNonProgress    StopReason = "NonProgress"
	StopIterationLimit StopReason = "IterationLimit"
	StopVerdict        StopReason = "VerdictStop"
)

// ErrNonProgress is reported when two consecutive rounds produced no usable
// analyst result.
var ErrNonProgress = errors.New("non-progress: two consecutive rounds produced no usable analysis")

// FailureKind names a session-level failure.
type FailureKind string

const (
	PlanningFailure FailureKind = "PlanningFailure"
	ReportFailure   FailureKind = "ReportFailure"
)

// SessionError is returned when a load-bearing role exhausts its retries.
// No report is produced.
type SessionError struct {
	Kind    FailureKind
	Failure *agent.Failure
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Failure)
}

func (e *SessionError) Unwrap() error {
	return e.Failure
}

// Degradation records a role that delivered nothing usable for a round.
type Degradation struct {
	Role      agent.Role `json:"role"`
	Iteration int        `json:"iteration"`
	Reason    string     `json:"reason"`
}

// Result is the outcome of one session.
type Result struct {
	SessionID   string
	Requirement string
	// Report is nil when the session failed.
	Report *blackboard.Entry
	Score  agent.Score
	// Rounds is the number of analysis rounds that were sealed.
	Rounds     int
	StopReason StopReason
	Degraded   []Degradation
	// Entries is the final blackboard contents, for audit.
	Entries    []blackboard.Entry
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the session produced a report.
func (r *Result) Succeeded() bool {
	return r.Report != nil
}

// StopError returns ErrNonProgress when the loop ended on the non-progress
// guard, nil otherwise.
func (r *Result) StopError() error {
	if r.StopReason == StopNonProgress {
		return ErrNonProgress
	}
	return nil
}
