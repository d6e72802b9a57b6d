package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dyluth/sixhat/pkg/blackboard"
)

// Score is the Evaluator's assessment of a report.
type Score struct {
	Comprehensiveness float64 `json:"comprehensiveness"`
	Consistency       float64 `json:"consistency"`
	Practicality      float64 `json:"practicality"`
	Overall           float64 `json:"overall"`
	Summary           string  `json:"summary,omitempty"`
	// ReportID is the entry the score was computed against.
	ReportID string `json:"report_id,omitempty"`
	// Available is false when the Evaluator could not produce a score.
	Available bool `json:"available"`
}

type rawScore struct {
	Comprehensiveness *float64 `json:"comprehensiveness"`
	Consistency       *float64 `json:"consistency"`
	Practicality      *float64 `json:"practicality"`
	Summary           string   `json:"summary"`
}

// evaluatorAgent scores the latest report. It reads the report but never
// changes it; the score goes to its own section.
type evaluatorAgent struct {
	base
}

func (a *evaluatorAgent) Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error) {
	report, ok := snap.LatestUsable(blackboard.SectionReport)
	if !ok {
		return nil, invalid(a.role, "snapshot has no report")
	}

	text, err := a.complete(ctx, report.Content, evaluatorInstructions)
	if err != nil {
		return nil, err
	}

	score, err := ParseScore(text)
	if err != nil {
		return nil, invalid(a.role, "%v", err)
	}
	score.ReportID = report.ID

	content, err := json.Marshal(score)
	if err != nil {
		return nil, invalid(a.role, "encode score: %v", err)
	}
	art := a.artifact(string(content))
	art.Score = score
	return art, nil
}

// ParseScore extracts the JSON score object from an evaluator reply,
// tolerating surrounding prose or code fences.
func ParseScore(text string) (*Score, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var raw rawScore
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("invalid score JSON: %w", err)
	}

	fields := []struct {
		name  string
		value *float64
	}{
		{"comprehensiveness", raw.Comprehensiveness},
		{"consistency", raw.Consistency},
		{"practicality", raw.Practicality},
	}
	var total float64
	for _, f := range fields {
		if f.value == nil {
			return nil, fmt.Errorf("missing %s", f.name)
		}
		if *f.value < 0 || *f.value > 100 {
			return nil, fmt.Errorf("%s out of range: %v", f.name, *f.value)
		}
		total += *f.value
	}

	return &Score{
		Comprehensiveness: *raw.Comprehensiveness,
		Consistency:       *raw.Consistency,
		Practicality:      *raw.Practicality,
		Overall:           total / float64(len(fields)),
		Summary:           strings.TrimSpace(raw.Summary),
		Available:         true,
	}, nil
}
