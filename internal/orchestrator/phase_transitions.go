package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"go.uber.org/zap"
)

// State is a node of the session state machine.
type State int

const (
	StateInit State = iota
	StatePlanning
	StateResearching
	StateAnalyzing
	StateReflecting
	StateDeciding
	StateFinalizing
	StateDone
)

var stateNames = [...]string{
	StateInit:        "Init",
	StatePlanning:    "Planning",
	StateResearching: "Researching",
	StateAnalyzing:   "Analyzing",
	StateReflecting:  "Reflecting",
	StateDeciding:    "Deciding",
	StateFinalizing:  "Finalizing",
	StateDone:        "Done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// cancellable reports whether cancellation diverts the session to
// Finalizing before this state runs.
func (s State) cancellable() bool {
	return s > StateInit && s < StateFinalizing
}

// session is the mutable bookkeeping of one Run.
type session struct {
	requirement string
	iteration   int
	// emptyStreak counts consecutive rounds with no usable analyst result.
	emptyStreak int
	verdict     agent.Decision
	stop        StopReason
	result      *Result
}

func (s *session) degrade(role agent.Role, iteration int, reason string) {
	s.result.Degraded = append(s.result.Degraded, Degradation{Role: role, Iteration: iteration, Reason: reason})
}

// step runs one state and returns the next.
func (e *Engine) step(ctx context.Context, s *session, state State) (State, error) {
	switch state {
	case StateInit:
		if _, err := e.bb.Write(ctx, blackboard.SectionRequirement, 0, s.requirement, producerOrchestrator); err != nil {
			return StateDone, fmt.Errorf("failed to record requirement: %w", err)
		}
		return StatePlanning, nil

	case StatePlanning:
		return e.plan(ctx, s)

	case StateResearching:
		return e.research(ctx, s)

	case StateAnalyzing:
		return e.analyze(ctx, s)

	case StateReflecting:
		return e.reflect(ctx, s)

	case StateDeciding:
		return e.decide(s), nil

	case StateFinalizing:
		return e.finalize(ctx, s)
	}
	return StateDone, fmt.Errorf("unknown state %v", state)
}

// plan runs the Blue hat. It is load-bearing: when it exhausts its retries
// the session fails, unless the failure came from cancellation.
func (e *Engine) plan(ctx context.Context, s *session) (State, error) {
	art, err := e.runRole(ctx, agent.RoleBlue, s.iteration)
	if err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		return StateDone, roleFailure(agent.RoleBlue, err)
	}
	if _, err := e.commit(ctx, s.iteration, art); err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		return StateDone, err
	}
	return StateResearching, nil
}

// research runs the Information role. Its failure never fails the session:
// the section is marked unavailable and the analysts proceed without it.
func (e *Engine) research(ctx context.Context, s *session) (State, error) {
	art, err := e.runRole(ctx, agent.RoleInformation, s.iteration)
	if err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		f := agent.Classify(agent.RoleInformation, err)
		if markErr := e.markUnavailable(ctx, agent.RoleInformation, s.iteration, string(f.Reason)); markErr != nil {
			return StateDone, markErr
		}
		s.degrade(agent.RoleInformation, s.iteration, string(f.Reason))
		e.logEvent("role_degraded",
			zap.String("role", string(agent.RoleInformation)),
			zap.Int("iteration", s.iteration),
			zap.String("reason", string(f.Reason)))
		return StateAnalyzing, nil
	}

	if art.Degraded {
		s.degrade(agent.RoleInformation, s.iteration, string(agent.ReasonToolError))
		e.logEvent("role_degraded",
			zap.String("role", string(agent.RoleInformation)),
			zap.Int("iteration", s.iteration),
			zap.String("reason", string(agent.ReasonToolError)))
	}
	if _, err := e.commit(ctx, s.iteration, art); err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		return StateDone, err
	}
	return StateAnalyzing, nil
}

// decide applies the termination policy to the round just finished.
func (e *Engine) decide(s *session) State {
	stop := Decide(Verdict{
		Iteration:     s.iteration,
		MaxIterations: e.settings.MaxIterations,
		EmptyStreak:   s.emptyStreak,
		Decision:      s.verdict,
	})
	e.logEvent("termination_decided",
		zap.Int("iteration", s.iteration),
		zap.String("verdict", string(s.verdict)),
		zap.Int("empty_streak", s.emptyStreak),
		zap.String("stop_reason", string(stop)))

	if stop != StopNone {
		s.stop = stop
		return StateFinalizing
	}
	s.iteration++
	s.verdict = agent.DecisionNone
	return StatePlanning
}

// finalize produces the report and then scores it. It runs on its own
// bounded context so a cancelled session still gets a report.
func (e *Engine) finalize(ctx context.Context, s *session) (State, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.settings.FinalizeTimeout)
	defer cancel()

	art, err := e.runRole(fctx, agent.RoleReport, s.iteration)
	if err != nil {
		return StateDone, roleFailure(agent.RoleReport, err)
	}
	report, err := e.commit(fctx, s.iteration, art)
	if err != nil {
		return StateDone, err
	}
	s.result.Report = report
	e.logEvent("report_written", zap.String("entry_id", report.ID), zap.Int("sources", len(art.Sources)))

	s.result.Score = e.evaluate(fctx, s)
	return StateDone, nil
}

// evaluate scores the report. Its failure leaves the report intact and
// yields an unavailable score.
func (e *Engine) evaluate(ctx context.Context, s *session) agent.Score {
	art, err := e.runRole(ctx, agent.RoleEvaluator, s.iteration)
	if err != nil {
		f := agent.Classify(agent.RoleEvaluator, err)
		s.degrade(agent.RoleEvaluator, s.iteration, string(f.Reason))
		if markErr := e.markUnavailable(ctx, agent.RoleEvaluator, s.iteration, string(f.Reason)); markErr != nil {
			e.logger.Warn("failed to record evaluator failure", zap.Error(markErr))
		}
		e.logEvent("role_degraded",
			zap.String("role", string(agent.RoleEvaluator)),
			zap.String("reason", string(f.Reason)))
		return agent.Score{}
	}
	if _, err := e.commit(ctx, s.iteration, art); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("failed to record evaluation", zap.Error(err))
	}
	if art.Score == nil {
		return agent.Score{}
	}
	return *art.Score
}

// roleFailure escalates a load-bearing role's exhausted retries to a
// session failure. Other roles degrade and never reach here.
func roleFailure(role agent.Role, err error) error {
	f := agent.Classify(role, err)
	if !role.LoadBearing() {
		return f
	}
	kind := PlanningFailure
	if role == agent.RoleReport {
		kind = ReportFailure
	}
	return &SessionError{Kind: kind, Failure: f}
}

// runRole takes a fresh snapshot and runs role under the retry policy.
func (e *Engine) runRole(ctx context.Context, role agent.Role, iteration int) (*agent.Artifact, error) {
	return e.runWithRetry(ctx, role, func(ctx context.Context) (*agent.Artifact, error) {
		snap, err := e.bb.Snapshot(ctx)
		if err != nil {
			return nil, agent.Classify(role, err)
		}
		return e.agents[role].Run(ctx, snap, e.agentConfig(iteration))
	})
}
