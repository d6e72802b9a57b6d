package hoard

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/sixhat/internal/archive"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatSessions writes archived sessions as a table.
func FormatSessions(w io.Writer, sessions []*archive.Session, now time.Time) int {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No archived sessions found")
		return 0
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "STARTED", "ROUNDS", "STOP", "SCORE", "REQUIREMENT"})
	for _, s := range sessions {
		t.AppendRow(table.Row{
			formatID(s.ID),
			formatAge(s.StartedAt.UnixMilli(), now),
			s.Rounds,
			formatOutcome(s),
			formatScore(s),
			formatContent(s.Requirement),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "\n%d %s found\n", len(sessions), plural(len(sessions), "session", "sessions"))
	return len(sessions)
}

// FormatEntries writes a session's entries as a table.
func FormatEntries(w io.Writer, entries []*blackboard.Entry, sessionID string, now time.Time) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No entries found for session '%s'\n", sessionID)
		return 0
	}

	fmt.Fprintf(w, "Entries for session '%s':\n\n", sessionID)
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "SECTION", "ROUND", "BY", "AGE", "CONTENT"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			formatID(e.ID),
			string(e.Section),
			e.Iteration + 1,
			formatProducer(e.ProducerRole),
			formatAge(e.CreatedAtMs, now),
			formatEntryContent(e),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), plural(len(entries), "entry", "entries"))
	return len(entries)
}

// FormatJSONL writes one JSON object per line.
func FormatJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatID truncates an ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatOutcome(s *archive.Session) string {
	if !s.Succeeded {
		if kind, _, ok := strings.Cut(s.Failure, ":"); ok {
			return kind
		}
		return "failed"
	}
	if s.StopReason == "" {
		return "-"
	}
	return s.StopReason
}

func formatScore(s *archive.Session) string {
	if !s.Score.Available {
		return "-"
	}
	return fmt.Sprintf("%.0f", s.Score.Overall)
}

func formatEntryContent(e *blackboard.Entry) string {
	if !e.Usable() {
		return "[unavailable: " + e.Reason + "]"
	}
	return formatContent(e.Content)
}

// formatContent shows the first non-empty line, at most 40 characters.
func formatContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > 40 {
			return string(runes[:37]) + "..."
		}
		return line
	}
	return "-"
}

func formatProducer(role string) string {
	if role == "" {
		return "-"
	}
	return role
}

// formatAge renders a timestamp relative to now, e.g. "2m ago".
func formatAge(timestampMs int64, now time.Time) string {
	if timestampMs == 0 {
		return "-"
	}
	diff := now.Sub(time.UnixMilli(timestampMs))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
