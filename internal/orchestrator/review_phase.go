package orchestrator

import (
	"context"

	"github.com/dyluth/sixhat/internal/agent"
	"go.uber.org/zap"
)

// reflect runs the Reflection role over the sealed round. A failed
// reflection is recorded as unavailable and treated as a continue verdict,
// leaving the iteration limit and non-progress guard to end the loop.
func (e *Engine) reflect(ctx context.Context, s *session) (State, error) {
	art, err := e.runRole(ctx, agent.RoleReflection, s.iteration)
	if err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		f := agent.Classify(agent.RoleReflection, err)
		if markErr := e.markUnavailable(ctx, agent.RoleReflection, s.iteration, string(f.Reason)); markErr != nil {
			return StateDone, markErr
		}
		s.degrade(agent.RoleReflection, s.iteration, string(f.Reason))
		s.verdict = agent.DecisionContinue
		e.logEvent("role_degraded",
			zap.String("role", string(agent.RoleReflection)),
			zap.Int("iteration", s.iteration),
			zap.String("reason", string(f.Reason)))
		return StateDeciding, nil
	}

	if _, err := e.commit(ctx, s.iteration, art); err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		return StateDone, err
	}
	s.verdict = art.Decision
	e.logEvent("reflection_verdict", zap.Int("iteration", s.iteration), zap.String("decision", string(art.Decision)))
	return StateDeciding, nil
}
