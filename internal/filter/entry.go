package filter

import (
	"path/filepath"

	"github.com/dyluth/sixhat/internal/timespec"
	"github.com/dyluth/sixhat/pkg/blackboard"
)

// Criteria selects blackboard entries. All criteria are ANDed; zero values
// match everything.
type Criteria struct {
	Window timespec.Range
	// SectionGlob is a filepath.Match pattern over the section name.
	SectionGlob string
	// Role is an exact match on the producer role.
	Role string
	// UsableOnly drops unavailable markers.
	UsableOnly bool
}

// Matches reports whether e passes every criterion.
func (c *Criteria) Matches(e *blackboard.Entry) bool {
	if !c.Window.Contains(e.CreatedAtMs) {
		return false
	}
	if c.SectionGlob != "" {
		matched, err := filepath.Match(c.SectionGlob, string(e.Section))
		if err != nil || !matched {
			return false
		}
	}
	if c.Role != "" && e.ProducerRole != c.Role {
		return false
	}
	if c.UsableOnly && !e.Usable() {
		return false
	}
	return true
}

// Apply returns the entries that match, preserving order.
func (c *Criteria) Apply(entries []*blackboard.Entry) []*blackboard.Entry {
	if c == nil || !c.Active() {
		return entries
	}
	var out []*blackboard.Entry
	for _, e := range entries {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Active reports whether any criterion is set.
func (c *Criteria) Active() bool {
	return c.Window.Bounded() || c.SectionGlob != "" || c.Role != "" || c.UsableOnly
}

// ValidGlob reports whether pattern is a well-formed section glob.
func ValidGlob(pattern string) bool {
	_, err := filepath.Match(pattern, "")
	return err == nil
}
