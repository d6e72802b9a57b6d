package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflect_FailureDefaultsToContinue(t *testing.T) {
	h := newHarness(t, testSettings(2), map[agent.Role]runFunc{
		agent.RoleReflection: func(ctx context.Context, snap *blackboard.Snapshot, cfg agent.Config) (*agent.Artifact, error) {
			return nil, fail(agent.RoleReflection, agent.ReasonInvalidResponse)
		},
	})

	res, err := h.engine.Run(context.Background(), "requirement")
	require.NoError(t, err)

	// Without a verdict the loop runs to the bound.
	assert.Equal(t, StopIterationLimit, res.StopReason)
	assert.Equal(t, 2, res.Rounds)

	snap := h.snapshot(t)
	history := snap.History(blackboard.SectionReflection)
	require.Len(t, history, 2)
	for _, e := range history {
		assert.Equal(t, blackboard.StatusUnavailable, e.Status)
		assert.Equal(t, string(agent.ReasonInvalidResponse), e.Reason)
	}
	assert.Contains(t, res.Degraded, Degradation{Role: agent.RoleReflection, Iteration: 1, Reason: string(agent.ReasonInvalidResponse)})
}

func TestReflect_SeesSealedRound(t *testing.T) {
	var seen []agent.Role
	h := newHarness(t, testSettings(1), map[agent.Role]runFunc{
		agent.RoleBlack: func(ctx context.Context, snap *blackboard.Snapshot, cfg agent.Config) (*agent.Artifact, error) {
			return nil, fail(agent.RoleBlack, agent.ReasonBackendUnavailable)
		},
		agent.RoleReflection: func(ctx context.Context, snap *blackboard.Snapshot, cfg agent.Config) (*agent.Artifact, error) {
			for _, role := range agent.AnalystRoles {
				if entries := snap.AtIteration(role.Section(), cfg.Iteration); len(entries) > 0 {
					seen = append(seen, role)
				}
			}
			art := artifact(agent.RoleReflection, "DECISION: stop")
			art.Decision = agent.DecisionStop
			return art, nil
		},
	})

	_, err := h.engine.Run(context.Background(), "requirement")
	require.NoError(t, err)
	// Every analyst, including the failed one, has an entry for the round.
	assert.Equal(t, agent.AnalystRoles, seen)
}

func TestRunWithRetry(t *testing.T) {
	h := newHarness(t, testSettings(1), nil)
	h.engine.settings.RetryBound = 3

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		art, err := h.engine.runWithRetry(context.Background(), agent.RoleWhite, func(ctx context.Context) (*agent.Artifact, error) {
			attempts++
			if attempts < 3 {
				return nil, fail(agent.RoleWhite, agent.ReasonTimeout)
			}
			return artifact(agent.RoleWhite, "ok"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", art.Content)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after the bound", func(t *testing.T) {
		attempts := 0
		_, err := h.engine.runWithRetry(context.Background(), agent.RoleWhite, func(ctx context.Context) (*agent.Artifact, error) {
			attempts++
			return nil, errors.New("connection refused")
		})
		var f *agent.Failure
		require.ErrorAs(t, err, &f)
		assert.Equal(t, agent.ReasonBackendUnavailable, f.Reason)
		assert.Equal(t, 4, attempts)
	})

	t.Run("tool errors are not retried", func(t *testing.T) {
		attempts := 0
		_, err := h.engine.runWithRetry(context.Background(), agent.RoleInformation, func(ctx context.Context) (*agent.Artifact, error) {
			attempts++
			return nil, fail(agent.RoleInformation, agent.ReasonToolError)
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancellation stops retrying", func(t *testing.T) {
		h.engine.settings.RetryBackoff = time.Hour
		defer func() { h.engine.settings.RetryBackoff = time.Millisecond }()

		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		_, err := h.engine.runWithRetry(ctx, agent.RoleWhite, func(ctx context.Context) (*agent.Artifact, error) {
			attempts++
			cancel()
			return nil, fail(agent.RoleWhite, agent.ReasonBackendUnavailable)
		})
		var f *agent.Failure
		require.ErrorAs(t, err, &f)
		assert.Equal(t, 1, attempts)
	})
}
