package agent

import (
	"context"

	"github.com/dyluth/sixhat/pkg/blackboard"
)

// blueAgent plans each round from the plan history and the latest reflection.
type blueAgent struct {
	base
}

func (a *blueAgent) Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error) {
	b, _, err := withRequirement(a.role, snap)
	if err != nil {
		return nil, err
	}

	b.history("Previous plan", usableHistory(snap, blackboard.SectionPlan))
	if reflection, ok := snap.LatestUsable(blackboard.SectionReflection); ok {
		b.entry("Latest reflection", reflection)
	}
	b.heading("Task")
	b.text(roundLine(cfg) + " Write the plan for this round.")

	text, err := a.complete(ctx, b.String(), hatInstructions[a.role])
	if err != nil {
		return nil, err
	}
	return a.artifact(text), nil
}

// analystAgent is any of the five parallel hats. They differ only in
// their instructions and the section they write.
type analystAgent struct {
	base
}

func (a *analystAgent) Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error) {
	b, _, err := withRequirement(a.role, snap)
	if err != nil {
		return nil, err
	}

	if plan, ok := snap.LatestUsable(blackboard.SectionPlan); ok {
		b.entry("Plan", plan)
	}
	if research, ok := snap.LatestUsable(blackboard.SectionResearch); ok && research.Content != "" {
		b.entry("Research notes", research)
	}
	b.heading("Task")
	b.text(roundLine(cfg) + " Analyse the requirement from your perspective, following the plan's directive for your hat.")

	text, err := a.complete(ctx, b.String(), hatInstructions[a.role])
	if err != nil {
		return nil, err
	}
	return a.artifact(text), nil
}
