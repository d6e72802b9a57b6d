// Package hoard renders the session audit archive for `sixhat hoard`.
package hoard

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/sixhat/internal/archive"
	"github.com/dyluth/sixhat/internal/filter"
	"github.com/dyluth/sixhat/pkg/blackboard"
)

// OutputFormat selects how listings are written.
type OutputFormat string

const (
	// OutputFormatDefault is a table with truncated content.
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSONL writes complete records, one JSON object per line.
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Source is the part of the archive hoard reads.
type Source interface {
	ListSessions(ctx context.Context) ([]*archive.Session, error)
	SessionEntries(ctx context.Context, sessionID string) ([]*blackboard.Entry, error)
}

// ListSessions writes every archived session whose start time falls in the
// window of criteria.
func ListSessions(ctx context.Context, src Source, format OutputFormat, criteria *filter.Criteria, w io.Writer) error {
	sessions, err := src.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if criteria != nil {
		var kept []*archive.Session
		for _, s := range sessions {
			if criteria.Window.Contains(s.StartedAt.UnixMilli()) {
				kept = append(kept, s)
			}
		}
		sessions = kept
	}

	switch format {
	case OutputFormatDefault:
		FormatSessions(w, sessions, time.Now())
	case OutputFormatJSONL:
		return FormatJSONL(w, sessions)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

// ListEntries writes the entries of one session that match criteria.
func ListEntries(ctx context.Context, src Source, sessionID string, format OutputFormat, criteria *filter.Criteria, w io.Writer) error {
	entries, err := src.SessionEntries(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read session entries: %w", err)
	}
	entries = criteria.Apply(entries)

	switch format {
	case OutputFormatDefault:
		FormatEntries(w, entries, sessionID, time.Now())
	case OutputFormatJSONL:
		return FormatJSONL(w, entries)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
