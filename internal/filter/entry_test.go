package filter

import (
	"testing"

	"github.com/dyluth/sixhat/internal/timespec"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/stretchr/testify/assert"
)

func testEntries() []*blackboard.Entry {
	return []*blackboard.Entry{
		{ID: "1", Section: blackboard.SectionPlan, ProducerRole: "blue", Status: blackboard.StatusOK, CreatedAtMs: 1000},
		{ID: "2", Section: blackboard.SectionWhite, ProducerRole: "white", Status: blackboard.StatusOK, CreatedAtMs: 2000},
		{ID: "3", Section: blackboard.SectionGreen, ProducerRole: "orchestrator", Status: blackboard.StatusUnavailable, Reason: "Timeout", CreatedAtMs: 3000},
		{ID: "4", Section: blackboard.SectionReport, ProducerRole: "report", Status: blackboard.StatusOK, CreatedAtMs: 4000},
		{ID: "5", Section: blackboard.SectionReflection, ProducerRole: "reflection", Status: blackboard.StatusOK, CreatedAtMs: 5000},
	}
}

func ids(entries []*blackboard.Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestCriteria_Apply(t *testing.T) {
	tests := []struct {
		name     string
		criteria *Criteria
		want     []string
	}{
		{name: "nil criteria", criteria: nil, want: []string{"1", "2", "3", "4", "5"}},
		{name: "no criteria", criteria: &Criteria{}, want: []string{"1", "2", "3", "4", "5"}},
		{name: "section glob", criteria: &Criteria{SectionGlob: "re*"}, want: []string{"4", "5"}},
		{name: "exact section", criteria: &Criteria{SectionGlob: "white"}, want: []string{"2"}},
		{name: "role", criteria: &Criteria{Role: "orchestrator"}, want: []string{"3"}},
		{name: "usable only", criteria: &Criteria{UsableOnly: true}, want: []string{"1", "2", "4", "5"}},
		{name: "since", criteria: &Criteria{Window: timespec.Range{SinceMs: 3000}}, want: []string{"3", "4", "5"}},
		{name: "until", criteria: &Criteria{Window: timespec.Range{UntilMs: 2000}}, want: []string{"1", "2"}},
		{name: "combined", criteria: &Criteria{SectionGlob: "*e*", Window: timespec.Range{SinceMs: 2000, UntilMs: 4000}, UsableOnly: true}, want: []string{"2", "4"}},
		{name: "bad glob matches nothing", criteria: &Criteria{SectionGlob: "["}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.criteria.Apply(testEntries())))
		})
	}
}

func TestValidGlob(t *testing.T) {
	assert.True(t, ValidGlob("re*"))
	assert.True(t, ValidGlob("white"))
	assert.False(t, ValidGlob("["))
}
