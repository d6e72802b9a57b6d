package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/internal/archive"
	"github.com/dyluth/sixhat/internal/config"
	"github.com/dyluth/sixhat/internal/orchestrator"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSession_EndToEnd(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")
	backend := newFakeBackend(t, http.StatusOK)
	cfgPath, archivePath := writeConfig(t, t.TempDir(), backend.URL, "")

	out, err := executeCommand(t, "", "--config", cfgPath, "--requirement", "Adopt a four-day week?", "--raw")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Four-day week"), "raw report comes first on stdout")
	assert.Contains(t, out, "Scorecard")
	assert.Contains(t, out, "80.0")
	assert.Contains(t, out, "reflection judged the analysis complete")
	assert.Contains(t, out, "Balanced")
	// plan, five analysts, information is skipped, reflection, report, evaluator
	assert.GreaterOrEqual(t, int(backend.calls.Load()), 9)

	a, err := archive.Open(archivePath)
	require.NoError(t, err)
	defer a.Close()
	sessions, err := a.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Succeeded)
	assert.Equal(t, "VerdictStop", sessions[0].StopReason)
	assert.Equal(t, 1, sessions[0].Rounds)
	assert.Equal(t, "Adopt a four-day week?", sessions[0].Requirement)

	entries, err := a.SessionEntries(context.Background(), sessions[0].ID)
	require.NoError(t, err)
	var sections []blackboard.Section
	for _, e := range entries {
		sections = append(sections, e.Section)
	}
	assert.Contains(t, sections, blackboard.SectionRequirement)
	assert.Contains(t, sections, blackboard.SectionReport)
	assert.Contains(t, sections, blackboard.SectionEvaluation)
}

func TestRunSession_PromptsForRequirement(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")
	backend := newFakeBackend(t, http.StatusOK)
	cfgPath, archivePath := writeConfig(t, t.TempDir(), backend.URL, "")

	out, err := executeCommand(t, "Open a second office\n", "--config", cfgPath, "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter requirement: ")

	a, err := archive.Open(archivePath)
	require.NoError(t, err)
	defer a.Close()
	sessions, err := a.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Open a second office", sessions[0].Requirement)
}

func TestRunSession_EmptyRequirement(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")
	backend := newFakeBackend(t, http.StatusOK)
	cfgPath, _ := writeConfig(t, t.TempDir(), backend.URL, "")

	_, err := executeCommand(t, "   \n", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, "no requirement given", err.Error())
	assert.Zero(t, backend.calls.Load(), "no backend call without a requirement")
}

func TestRunSession_PlanningFailure(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")
	backend := newFakeBackend(t, http.StatusServiceUnavailable)
	cfgPath, archivePath := writeConfig(t, t.TempDir(), backend.URL, "")

	out, err := executeCommand(t, "", "--config", cfgPath, "--requirement", "Adopt a four-day week?")
	require.Error(t, err)
	assert.Equal(t, "planning failed", err.Error())
	assert.NotContains(t, out, "Scorecard")

	a, err := archive.Open(archivePath)
	require.NoError(t, err)
	defer a.Close()
	sessions, err := a.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].Succeeded)
	assert.Contains(t, sessions[0].Failure, "PlanningFailure")
}

func TestRunSession_MissingCredentials(t *testing.T) {
	clearEnv(t)
	backend := newFakeBackend(t, http.StatusOK)
	cfgPath, _ := writeConfig(t, t.TempDir(), backend.URL, "")

	_, err := executeCommand(t, "", "--config", cfgPath, "--requirement", "anything")
	require.Error(t, err)
	assert.Equal(t, "missing API credentials", err.Error())
}

func TestRunSession_RedisBlackboard(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")
	mr := miniredis.RunT(t)
	backend := newFakeBackend(t, http.StatusOK)
	cfgPath, _ := writeConfig(t, t.TempDir(), backend.URL, "redis://"+mr.Addr())

	_, err := executeCommand(t, "", "--config", cfgPath, "--requirement", "Adopt a four-day week?", "--raw")
	require.NoError(t, err)

	keys := mr.Keys()
	assert.NotEmpty(t, keys, "session entries are written to Redis")
}

func TestPromptRequirement(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "line", input: "Adopt a four-day week?\n", want: "Adopt a four-day week?"},
		{name: "trimmed", input: "  spaced out  \n", want: "spaced out"},
		{name: "no newline", input: "eof without newline", want: "eof without newline"},
		{name: "first line only", input: "first\nsecond\n", want: "first"},
		{name: "empty", input: "\n", wantErr: errEmptyRequirement},
		{name: "closed stdin", input: "", wantErr: errEmptyRequirement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompt bytes.Buffer
			got, err := promptRequirement(strings.NewReader(tt.input), &prompt)
			assert.Equal(t, "Enter requirement: ", prompt.String())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory by default", func(t *testing.T) {
		store, err := openStore(ctx, config.BlackboardConfig{}, "session-1")
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &blackboard.MemoryStore{}, store)
		assert.Equal(t, "session-1", store.SessionID())
	})

	t.Run("redis when configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := openStore(ctx, config.BlackboardConfig{RedisURL: "redis://" + mr.Addr()}, "session-2")
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &blackboard.Client{}, store)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := openStore(ctx, config.BlackboardConfig{RedisURL: "redis://" + addr}, "session-3")
		require.Error(t, err)
		assert.Equal(t, "Redis connection failed", err.Error())
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := openStore(ctx, config.BlackboardConfig{RedisURL: "http://nope"}, "session-4")
		require.Error(t, err)
		assert.Equal(t, "invalid Redis URL", err.Error())
	})
}

func TestSessionFailure(t *testing.T) {
	res := &orchestrator.Result{SessionID: "abc", Rounds: 2}

	planning := &orchestrator.SessionError{
		Kind:    orchestrator.PlanningFailure,
		Failure: &agent.Failure{Role: agent.RoleBlue, Reason: agent.ReasonBackendUnavailable, Err: errors.New("503")},
	}
	assert.Equal(t, "planning failed", sessionFailure(res, planning).Error())

	report := &orchestrator.SessionError{
		Kind:    orchestrator.ReportFailure,
		Failure: &agent.Failure{Role: agent.RoleReport, Reason: agent.ReasonTimeout, Err: errors.New("slow")},
	}
	assert.Equal(t, "report generation failed", sessionFailure(res, report).Error())

	other := errors.New("store closed")
	err := sessionFailure(res, other)
	assert.ErrorIs(t, err, other)
}

func TestRenderReport(t *testing.T) {
	t.Run("raw", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderReport(&buf, "# Title\n\nBody", true))
		assert.Equal(t, "# Title\n\nBody\n", buf.String())
	})

	t.Run("styled", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderReport(&buf, "# Title\n\nBody text", false))
		assert.Contains(t, buf.String(), "Title")
		assert.Contains(t, buf.String(), "Body text")
		assert.NotEqual(t, "# Title\n\nBody text\n", buf.String())
	})
}

func TestWriteScorecard(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	t.Run("available score", func(t *testing.T) {
		var buf bytes.Buffer
		writeScorecard(&buf, &orchestrator.Result{
			Rounds:     2,
			StopReason: orchestrator.StopIterationLimit,
			Score: agent.Score{
				Comprehensiveness: 80, Consistency: 60, Practicality: 70, Overall: 70,
				Summary: "Solid but thin on costs", Available: true,
			},
			Degraded: []orchestrator.Degradation{{Role: agent.RoleGreen, Iteration: 1, Reason: "Timeout"}},
		})

		out := buf.String()
		for _, want := range []string{"Comprehensiveness", "80.0", "60.0", "Overall", "70.0", "iteration limit reached", "Degraded roles", "Solid but thin on costs"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("unavailable score", func(t *testing.T) {
		var buf bytes.Buffer
		writeScorecard(&buf, &orchestrator.Result{Rounds: 1, StopReason: orchestrator.StopCancelled})

		out := buf.String()
		assert.Contains(t, out, "unavailable")
		assert.Contains(t, out, "interrupted")
		assert.NotContains(t, out, "Comprehensiveness")
		assert.NotContains(t, out, "Degraded roles")
		assert.NotContains(t, out, "no usable analysis")
	})

	t.Run("non-progress", func(t *testing.T) {
		var buf bytes.Buffer
		writeScorecard(&buf, &orchestrator.Result{Rounds: 2, StopReason: orchestrator.StopNonProgress})

		out := buf.String()
		assert.Contains(t, out, "no progress in two rounds")
		assert.Contains(t, out, orchestrator.ErrNonProgress.Error())
	})
}
