package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// analyze fans the five analysts out against one snapshot and waits for
// them, or for the round deadline, before sealing the round.
func (e *Engine) analyze(ctx context.Context, s *session) (State, error) {
	iteration := s.iteration
	snap, err := e.bb.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.stop = StopCancelled
			return StateFinalizing, nil
		}
		return StateDone, err
	}

	roundCtx, cancelRound := context.WithTimeout(ctx, e.settings.RoundTimeout)
	defer cancelRound()

	e.logEvent("round_started", zap.Int("iteration", iteration), zap.Int("analysts", len(agent.AnalystRoles)))

	gate := &roundGate{}
	outcomes := make(chan Outcome, len(agent.AnalystRoles))
	var g errgroup.Group
	for _, role := range agent.AnalystRoles {
		g.Go(func() error {
			outcomes <- e.runAnalyst(roundCtx, gate, role, snap, iteration)
			return nil
		})
	}

	round := e.collect(roundCtx, outcomes, iteration)
	gate.close()
	cancelRound()

	sealReason := string(agent.ReasonTimeout)
	if ctx.Err() != nil {
		sealReason = string(StopCancelled)
	}
	if err := e.sealRound(ctx, iteration, sealReason); err != nil {
		return StateDone, err
	}

	// An analyst that ignores its context may still be running. It can no
	// longer commit, so the session moves on and Wait reaps it.
	e.stragglers.Add(1)
	go func() {
		defer e.stragglers.Done()
		_ = g.Wait()
	}()

	return e.reconcile(ctx, s, round)
}

// runAnalyst runs one hat against the shared snapshot and commits its
// result through gate. A result that arrives after the round ended, by
// deadline or cancellation, is discarded and the seal records the hat.
func (e *Engine) runAnalyst(ctx context.Context, gate *roundGate, role agent.Role, snap *blackboard.Snapshot, iteration int) Outcome {
	art, err := e.runWithRetry(ctx, role, func(ctx context.Context) (*agent.Artifact, error) {
		return e.agents[role].Run(ctx, snap, e.agentConfig(iteration))
	})

	// The commit runs under the gate, so the round context is only checked
	// there and the store write itself must not be cut short.
	wctx := context.WithoutCancel(ctx)
	var out Outcome
	open := gate.commit(ctx, func() {
		if err != nil {
			f := agent.Classify(role, err)
			if _, markErr := e.bb.MarkUnavailable(wctx, role.Section(), iteration, string(role), string(f.Reason)); markErr != nil && !blackboard.IsStaleWrite(markErr) {
				e.logger.Warn("failed to mark analyst unavailable", zap.String("role", string(role)), zap.Error(markErr))
			}
			out = Outcome{Role: role, Err: f}
			return
		}
		entry, werr := e.bb.Write(wctx, art.Section, iteration, art.Content, string(role))
		if werr != nil {
			if blackboard.IsStaleWrite(werr) {
				e.logEvent("late_result_discarded",
					zap.String("role", string(role)),
					zap.Int("iteration", iteration))
			}
			out = Outcome{Role: role, Err: werr}
			return
		}
		out = Outcome{Role: role, Entry: entry}
	})
	if open {
		return out
	}

	if err == nil {
		e.logEvent("late_result_discarded",
			zap.String("role", string(role)),
			zap.Int("iteration", iteration))
		err = errRoundClosed
	}
	return Outcome{Role: role, Err: agent.Classify(role, err)}
}

var errRoundClosed = errors.New("round closed before the result was committed")

// roundGate orders analyst commits against the end of a round. Once the
// round context is done or the gate is closed, commits are refused.
type roundGate struct {
	mu     sync.Mutex
	closed bool
}

// commit runs fn unless the round has ended, and reports whether it ran.
func (g *roundGate) commit(ctx context.Context, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

// close waits for an in-progress commit and refuses later ones.
func (g *roundGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// sealRound closes every analyst section for iteration, recording reason
// for each analyst that had not reported.
func (e *Engine) sealRound(ctx context.Context, iteration int, reason string) error {
	sctx := context.WithoutCancel(ctx)
	for _, role := range agent.AnalystRoles {
		written, err := e.bb.Seal(sctx, role.Section(), iteration, producerOrchestrator, reason)
		if err != nil {
			return err
		}
		if written {
			e.logEvent("analyst_sealed",
				zap.String("role", string(role)),
				zap.Int("iteration", iteration),
				zap.String("reason", reason))
		}
	}
	return nil
}

// reconcile reads the sealed round back and updates the non-progress guard.
func (e *Engine) reconcile(ctx context.Context, s *session, round *RoundState) (State, error) {
	snap, err := e.bb.Snapshot(context.WithoutCancel(ctx))
	if err != nil {
		return StateDone, err
	}
	sum := Summarize(snap, s.iteration)
	for _, role := range agent.AnalystRoles {
		if reason, ok := sum.Unavailable[role]; ok {
			s.degrade(role, s.iteration, reason)
		}
	}
	s.result.Rounds++

	if sum.Empty() {
		s.emptyStreak++
	} else {
		s.emptyStreak = 0
	}

	e.logEvent("round_complete",
		zap.Int("iteration", s.iteration),
		zap.Int("usable", len(sum.Usable)),
		zap.Int("reported", len(agent.AnalystRoles)-len(round.Pending())),
		zap.Int("empty_streak", s.emptyStreak))

	if ctx.Err() != nil {
		s.stop = StopCancelled
		return StateFinalizing, nil
	}
	return StateReflecting, nil
}
