package orchestrator

import "github.com/dyluth/sixhat/internal/agent"

// Verdict is everything the termination policy looks at after a round.
type Verdict struct {
	// Iteration is the 0-based round just completed.
	Iteration     int
	MaxIterations int
	// EmptyStreak counts consecutive rounds with no usable analyst result,
	// including this one.
	EmptyStreak int
	Decision    agent.Decision
}

// Decide returns why the loop should stop, or StopNone to run another round.
//
// Non-progress is checked first so a session that keeps failing reports the
// failure rather than a limit. Cancellation never reaches here.
func Decide(v Verdict) StopReason {
	switch {
	case v.EmptyStreak >= 2:
		return StopNonProgress
	case v.Iteration+1 >= v.MaxIterations:
		return StopIterationLimit
	case v.Decision == agent.DecisionStop:
		return StopVerdict
	}
	return StopNone
}
