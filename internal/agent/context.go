package agent

import (
	"fmt"
	"strings"

	"github.com/dyluth/sixhat/pkg/blackboard"
)

// contextBuilder renders blackboard entries into the text a role reads.
type contextBuilder struct {
	sb strings.Builder
}

func (b *contextBuilder) heading(title string) {
	if b.sb.Len() > 0 {
		b.sb.WriteString("\n")
	}
	b.sb.WriteString("## ")
	b.sb.WriteString(title)
	b.sb.WriteString("\n\n")
}

func (b *contextBuilder) text(body string) {
	b.sb.WriteString(strings.TrimSpace(body))
	b.sb.WriteString("\n")
}

// entry writes one entry. Unavailable markers are rendered as a note so
// readers can see the gap rather than silently missing a perspective.
func (b *contextBuilder) entry(title string, e blackboard.Entry) {
	b.heading(fmt.Sprintf("%s (round %d)", title, e.Iteration+1))
	if !e.Usable() {
		b.text(fmt.Sprintf("[unavailable: %s]", e.Reason))
		return
	}
	if strings.TrimSpace(e.Content) == "" {
		b.text("[no content]")
		return
	}
	b.text(e.Content)
}

// history writes every entry of a section, oldest first.
func (b *contextBuilder) history(title string, entries []blackboard.Entry) {
	for _, e := range entries {
		b.entry(title, e)
	}
}

func (b *contextBuilder) String() string {
	return b.sb.String()
}

func requirementOf(snap *blackboard.Snapshot) (string, bool) {
	e, ok := snap.LatestUsable(blackboard.SectionRequirement)
	if !ok || strings.TrimSpace(e.Content) == "" {
		return "", false
	}
	return e.Content, true
}

// withRequirement starts a context with the requirement, failing if the
// session has none.
func withRequirement(role Role, snap *blackboard.Snapshot) (*contextBuilder, string, error) {
	requirement, ok := requirementOf(snap)
	if !ok {
		return nil, "", invalid(role, "snapshot has no requirement")
	}
	b := &contextBuilder{}
	b.heading("Requirement")
	b.text(requirement)
	return b, requirement, nil
}

// usableHistory filters a section's history to entries carrying results.
func usableHistory(snap *blackboard.Snapshot, section blackboard.Section) []blackboard.Entry {
	var out []blackboard.Entry
	for _, e := range snap.History(section) {
		if e.Usable() {
			out = append(out, e)
		}
	}
	return out
}

// roundEntries returns the analyst entries for one iteration, keyed by role.
func roundEntries(snap *blackboard.Snapshot, iteration int) map[Role][]blackboard.Entry {
	out := make(map[Role][]blackboard.Entry, len(AnalystRoles))
	for _, role := range AnalystRoles {
		if entries := snap.AtIteration(role.Section(), iteration); len(entries) > 0 {
			out[role] = entries
		}
	}
	return out
}

func firstLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > max {
		s = strings.TrimSpace(string(r[:max]))
	}
	return s
}
