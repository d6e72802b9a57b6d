// Package orchestrator drives a Six Thinking Hats session through its state
// machine. It is the only component with a global view: roles only ever see
// a blackboard snapshot, and every commit goes through the engine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/internal/config"
	"github.com/dyluth/sixhat/internal/inference"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"go.uber.org/zap"
)

const producerOrchestrator = "orchestrator"

// Settings is the immutable configuration a session runs with.
type Settings struct {
	config.Orchestration
	Research config.Research
}

// SettingsFrom copies the orchestration settings out of a validated config.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{Orchestration: cfg.Orchestration(), Research: cfg.ResearchLimits()}
}

// Engine runs sessions against one blackboard.
type Engine struct {
	bb       *blackboard.Blackboard
	agents   map[agent.Role]agent.Agent
	settings Settings
	logger   *zap.Logger

	// stragglers tracks analyst goroutines still running after their
	// round was sealed.
	stragglers sync.WaitGroup
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAgents replaces the agents for the given roles.
func WithAgents(agents map[agent.Role]agent.Agent) Option {
	return func(e *Engine) {
		for role, a := range agents {
			e.agents[role] = a
		}
	}
}

// New creates an engine. Agents are built from deps, with every inference
// call bounded by the configured call timeout; WithAgents may replace them.
func New(bb *blackboard.Blackboard, settings Settings, deps agent.Deps, opts ...Option) (*Engine, error) {
	if bb == nil {
		return nil, errors.New("blackboard is required")
	}
	if settings.MaxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be >= 1, got %d", settings.MaxIterations)
	}

	e := &Engine{
		bb:       bb,
		agents:   make(map[agent.Role]agent.Agent),
		settings: settings,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if deps.Inference != nil {
		deps.Inference = inference.WithTimeout(deps.Inference, settings.CallTimeout)
		if deps.Logger == nil {
			deps.Logger = e.logger
		}
		set, err := agent.NewSet(deps)
		if err != nil {
			return nil, err
		}
		for role, a := range set {
			if _, replaced := e.agents[role]; !replaced {
				e.agents[role] = a
			}
		}
	}

	for _, role := range allRoles {
		if e.agents[role] == nil {
			return nil, fmt.Errorf("no agent for role %q", role)
		}
	}

	e.logger = e.logger.With(zap.String("session_id", bb.SessionID()))
	return e, nil
}

var allRoles = []agent.Role{
	agent.RoleBlue, agent.RoleInformation,
	agent.RoleWhite, agent.RoleRed, agent.RoleYellow, agent.RoleBlack, agent.RoleGreen,
	agent.RoleReflection, agent.RoleReport, agent.RoleEvaluator,
}

// Settings returns the engine's configuration.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Run executes one session for requirement.
//
// Cancelling ctx stops the loop at the next state boundary (or ends the
// current round early) and moves straight to finalizing with whatever
// has been committed. A *SessionError is returned, together with the partial
// result, when planning or the report fails.
func (e *Engine) Run(ctx context.Context, requirement string) (*Result, error) {
	s := &session{
		requirement: requirement,
		result: &Result{
			SessionID:   e.bb.SessionID(),
			Requirement: requirement,
			StartedAt:   time.Now(),
		},
	}

	e.logEvent("session_started",
		zap.Int("max_iterations", e.settings.MaxIterations),
		zap.Int("retry_bound", e.settings.RetryBound))

	state := StateInit
	for state != StateDone {
		if state.cancellable() && ctx.Err() != nil && s.stop == StopNone {
			s.stop = StopCancelled
			e.logEvent("session_cancelled", zap.Stringer("state", state), zap.Int("iteration", s.iteration))
			state = StateFinalizing
		}

		next, err := e.step(ctx, s, state)
		if err != nil {
			e.finish(s)
			var se *SessionError
			if errors.As(err, &se) {
				e.logEvent("session_failed",
					zap.String("kind", string(se.Kind)),
					zap.String("reason", string(se.Failure.Reason)),
					zap.Error(err))
			}
			return s.result, err
		}

		e.logEvent("state_transition",
			zap.Stringer("from", state),
			zap.Stringer("to", next),
			zap.Int("iteration", s.iteration))
		state = next
	}

	e.finish(s)
	e.logEvent("session_complete",
		zap.String("stop_reason", string(s.stop)),
		zap.Int("rounds", s.result.Rounds),
		zap.Int("degraded", len(s.result.Degraded)),
		zap.Float64("score", s.result.Score.Overall))
	return s.result, nil
}

// Wait blocks until every analyst left running by a sealed round has
// returned, or ctx is done. Their results are never committed; Wait only
// lets callers release shared resources after the last of them exits.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.stragglers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish captures the final blackboard contents into the result.
func (e *Engine) finish(s *session) {
	s.result.StopReason = s.stop
	s.result.FinishedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), e.settings.FinalizeTimeout)
	defer cancel()
	snap, err := e.bb.Snapshot(ctx)
	if err != nil {
		e.logger.Warn("failed to capture final blackboard", zap.Error(err))
		return
	}
	s.result.Entries = snap.Entries()
}

// commit appends an artifact under the engine's single-writer discipline.
// A stale write here means two writers raced on one section, which is a bug.
func (e *Engine) commit(ctx context.Context, iteration int, art *agent.Artifact) (*blackboard.Entry, error) {
	entry, err := e.bb.Write(ctx, art.Section, iteration, art.Content, string(art.Role))
	if err != nil {
		if blackboard.IsStaleWrite(err) {
			e.logger.DPanic("stale write outside round sealing",
				zap.String("role", string(art.Role)),
				zap.Int("iteration", iteration),
				zap.Error(err))
		}
		return nil, err
	}
	return entry, nil
}

func (e *Engine) markUnavailable(ctx context.Context, role agent.Role, iteration int, reason string) error {
	_, err := e.bb.MarkUnavailable(ctx, role.Section(), iteration, string(role), reason)
	if err != nil && blackboard.IsStaleWrite(err) {
		e.logger.DPanic("stale unavailable marker outside round sealing",
			zap.String("role", string(role)), zap.Error(err))
	}
	return err
}

func (e *Engine) agentConfig(iteration int) agent.Config {
	return agent.Config{
		Iteration:     iteration,
		MaxIterations: e.settings.MaxIterations,
		Research:      e.settings.Research,
		ToolTimeout:   e.settings.ToolTimeout,
	}
}

// logEvent emits one structured orchestration event.
func (e *Engine) logEvent(event string, fields ...zap.Field) {
	e.logger.Info(event, append(fields, zap.String("event", event))...)
}
