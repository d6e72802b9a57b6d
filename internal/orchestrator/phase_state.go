package orchestrator

import (
	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/pkg/blackboard"
)

// Outcome is what one analyst delivered in a round.
type Outcome struct {
	Role agent.Role
	// Entry is the committed entry, nil if the result was discarded.
	Entry *blackboard.Entry
	Err   error
}

// RoundState tracks the five analysts of one round.
type RoundState struct {
	Iteration int
	outcomes  map[agent.Role]Outcome
}

// NewRoundState starts tracking a round.
func NewRoundState(iteration int) *RoundState {
	return &RoundState{Iteration: iteration, outcomes: make(map[agent.Role]Outcome, len(agent.AnalystRoles))}
}

// Record stores an analyst's outcome. The first outcome per role wins.
func (r *RoundState) Record(o Outcome) bool {
	if _, seen := r.outcomes[o.Role]; seen {
		return false
	}
	r.outcomes[o.Role] = o
	return true
}

// IsComplete reports whether every analyst has reported.
func (r *RoundState) IsComplete() bool {
	return len(r.outcomes) == len(agent.AnalystRoles)
}

// Pending lists analysts that have not reported, in fan-out order.
func (r *RoundState) Pending() []agent.Role {
	var pending []agent.Role
	for _, role := range agent.AnalystRoles {
		if _, ok := r.outcomes[role]; !ok {
			pending = append(pending, role)
		}
	}
	return pending
}

// Summary is the reconciled view of a sealed round, read back from the
// blackboard so it reflects what was actually committed.
type Summary struct {
	Iteration int
	Usable    []agent.Role
	// Unavailable maps each analyst without a usable entry to its reason.
	Unavailable map[agent.Role]string
}

// Empty reports whether no analyst produced a usable result.
func (s Summary) Empty() bool {
	return len(s.Usable) == 0
}

// Summarize reads the round at iteration out of snap.
func Summarize(snap *blackboard.Snapshot, iteration int) Summary {
	sum := Summary{Iteration: iteration, Unavailable: make(map[agent.Role]string)}
	for _, role := range agent.AnalystRoles {
		usable := false
		reason := "Missing"
		for _, e := range snap.AtIteration(role.Section(), iteration) {
			if e.Usable() {
				usable = true
				break
			}
			reason = e.Reason
		}
		if usable {
			sum.Usable = append(sum.Usable, role)
		} else {
			sum.Unavailable[role] = reason
		}
	}
	return sum
}
