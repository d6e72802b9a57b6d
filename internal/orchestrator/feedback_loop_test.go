package orchestrator

import (
	"errors"
	"testing"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    StopReason
	}{
		{
			name:    "continue with rounds left",
			verdict: Verdict{Iteration: 0, MaxIterations: 3, Decision: agent.DecisionContinue},
			want:    StopNone,
		},
		{
			name:    "stop verdict",
			verdict: Verdict{Iteration: 0, MaxIterations: 3, Decision: agent.DecisionStop},
			want:    StopVerdict,
		},
		{
			name:    "last round reached",
			verdict: Verdict{Iteration: 2, MaxIterations: 3, Decision: agent.DecisionContinue},
			want:    StopIterationLimit,
		},
		{
			name:    "limit outranks verdict",
			verdict: Verdict{Iteration: 0, MaxIterations: 1, Decision: agent.DecisionStop},
			want:    StopIterationLimit,
		},
		{
			name:    "single empty round replans",
			verdict: Verdict{Iteration: 0, MaxIterations: 3, EmptyStreak: 1, Decision: agent.DecisionContinue},
			want:    StopNone,
		},
		{
			name:    "two empty rounds",
			verdict: Verdict{Iteration: 1, MaxIterations: 5, EmptyStreak: 2, Decision: agent.DecisionContinue},
			want:    StopNonProgress,
		},
		{
			name:    "non-progress outranks limit",
			verdict: Verdict{Iteration: 1, MaxIterations: 2, EmptyStreak: 2, Decision: agent.DecisionStop},
			want:    StopNonProgress,
		},
		{
			name:    "missing verdict continues",
			verdict: Verdict{Iteration: 0, MaxIterations: 2},
			want:    StopNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.verdict))
		})
	}
}

func TestResult_StopError(t *testing.T) {
	assert.ErrorIs(t, (&Result{StopReason: StopNonProgress}).StopError(), ErrNonProgress)
	assert.NoError(t, (&Result{StopReason: StopVerdict}).StopError())
	assert.NoError(t, (&Result{StopReason: StopCancelled}).StopError())
}

func TestRoleFailure(t *testing.T) {
	cause := &agent.Failure{Role: agent.RoleBlue, Reason: agent.ReasonInvalidResponse, Err: errors.New("no plan")}

	var se *SessionError
	require.ErrorAs(t, roleFailure(agent.RoleBlue, cause), &se)
	assert.Equal(t, PlanningFailure, se.Kind)
	assert.Equal(t, agent.ReasonInvalidResponse, se.Failure.Reason)

	require.ErrorAs(t, roleFailure(agent.RoleReport, errors.New("down")), &se)
	assert.Equal(t, ReportFailure, se.Kind)
	assert.Equal(t, agent.ReasonBackendUnavailable, se.Failure.Reason)

	err := roleFailure(agent.RoleGreen, errors.New("down"))
	assert.False(t, errors.As(err, &se))
	var f *agent.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, agent.RoleGreen, f.Role)
}
