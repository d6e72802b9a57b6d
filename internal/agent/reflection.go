package agent

import (
	"context"
	"regexp"
	"strings"

	"github.com/dyluth/sixhat/pkg/blackboard"
)

var decisionLine = regexp.MustCompile(`(?i)^\W*decision\W*[:：]\s*\**\s*(continue|stop|yes|no|是|否)`)

// reflectionAgent critiques the latest round and votes on continuing.
type reflectionAgent struct {
	base
}

func (a *reflectionAgent) Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error) {
	b, _, err := withRequirement(a.role, snap)
	if err != nil {
		return nil, err
	}

	if plan, ok := snap.LatestUsable(blackboard.SectionPlan); ok {
		b.entry("Plan", plan)
	}
	round := roundEntries(snap, cfg.Iteration)
	for _, role := range AnalystRoles {
		entries, ok := round[role]
		if !ok {
			b.heading(role.Title())
			b.text("[no output recorded]")
			continue
		}
		b.history(role.Title(), entries)
	}
	b.heading("Task")
	b.text(roundLine(cfg) + " Review each hat's output for this round and decide whether to continue.")

	text, err := a.complete(ctx, b.String(), reflectionInstructions)
	if err != nil {
		return nil, err
	}

	decision, ok := ParseDecision(text)
	if !ok {
		return nil, invalid(a.role, "reflection has no %s line", strings.TrimSuffix(decisionPrefix, ":"))
	}
	art := a.artifact(text)
	art.Decision = decision
	return art, nil
}

// ParseDecision finds the continue/stop verdict in reflection text. The
// last DECISION line wins. A reply that is only a yes/no answer (是/否 in
// Chinese) to "continue?" is accepted as well.
func ParseDecision(text string) (Decision, bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if m := decisionLine.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
			return decisionWord(m[1])
		}
	}
	if len(lines) == 1 {
		return decisionWord(strings.Trim(lines[0], " .!。*"))
	}
	return DecisionNone, false
}

func decisionWord(word string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "continue", "yes", "是":
		return DecisionContinue, true
	case "stop", "no", "否":
		return DecisionStop, true
	}
	return DecisionNone, false
}
