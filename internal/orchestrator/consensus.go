package orchestrator

import (
	"context"
	"time"

	"github.com/dyluth/sixhat/internal/agent"
	"go.uber.org/zap"
)

const waitLogInterval = 5 * time.Second

// collect gathers analyst outcomes until all five have reported or the
// round context ends, whichever comes first.
func (e *Engine) collect(roundCtx context.Context, outcomes <-chan Outcome, iteration int) *RoundState {
	round := NewRoundState(iteration)
	ticker := time.NewTicker(waitLogInterval)
	defer ticker.Stop()

	for !round.IsComplete() {
		select {
		case o := <-outcomes:
			round.Record(o)
			if o.Err != nil {
				e.logger.Warn("analyst failed",
					zap.String("role", string(o.Role)),
					zap.Int("iteration", iteration),
					zap.Error(o.Err))
				continue
			}
			e.logger.Debug("analyst reported",
				zap.String("role", string(o.Role)),
				zap.Int("iteration", iteration),
				zap.String("entry_id", o.Entry.ID))

		case <-ticker.C:
			e.logger.Info("waiting for analysts",
				zap.Int("iteration", iteration),
				zap.Strings("pending", roleNames(round.Pending())))

		case <-roundCtx.Done():
			e.logger.Warn("round ended before all analysts reported",
				zap.Int("iteration", iteration),
				zap.Strings("pending", roleNames(round.Pending())),
				zap.Error(roundCtx.Err()))
			return round
		}
	}
	return round
}

func roleNames(roles []agent.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
