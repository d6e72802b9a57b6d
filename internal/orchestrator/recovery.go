package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dyluth/sixhat/internal/agent"
	"go.uber.org/zap"
)

// runWithRetry calls fn until it succeeds, fails with a non-retryable
// failure, or has been retried RetryBound times. The delay before retry n
// is RetryBackoff * 2^(n-1), jittered. Cancellation aborts immediately.
func (e *Engine) runWithRetry(ctx context.Context, role agent.Role, fn func(context.Context) (*agent.Artifact, error)) (*agent.Artifact, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.settings.RetryBackoff
	policy.Multiplier = 2
	policy.MaxInterval = 64 * e.settings.RetryBackoff
	policy.MaxElapsedTime = 0
	policy.Reset()

	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(e.settings.RetryBound)), ctx)

	var art *agent.Artifact
	attempt := 0
	op := func() error {
		attempt++
		result, err := fn(ctx)
		if err == nil {
			art = result
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		f := agent.Classify(role, err)
		if !f.Retryable() {
			return backoff.Permanent(f)
		}
		return f
	}
	notify := func(err error, wait time.Duration) {
		e.logger.Warn("role attempt failed, retrying",
			zap.String("role", string(role)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, bounded, notify); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = errors.Join(err, ctx.Err())
		}
		return nil, agent.Classify(role, err)
	}
	return art, nil
}
