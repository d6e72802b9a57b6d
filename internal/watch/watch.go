// Package watch follows a session's blackboard as entries are committed.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/sixhat/internal/printer"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"go.uber.org/zap"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSONL   OutputFormat = "jsonl"
)

// Source is a blackboard that can replay its history and publish new
// entries.
type Source interface {
	Sections(ctx context.Context) ([]blackboard.Section, error)
	History(ctx context.Context, section blackboard.Section) ([]*blackboard.Entry, error)
	SubscribeEntryEvents(ctx context.Context) (*blackboard.Subscription, error)
}

// Stream writes every entry already on the blackboard, then each new entry
// as it is committed, until ctx ends. The subscription is opened before the
// replay so nothing committed in between is lost; entries seen in both are
// written once.
func Stream(ctx context.Context, src Source, format OutputFormat, w io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	sub, err := src.SubscribeEntryEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	seen := make(map[string]bool)
	emit := func(e *blackboard.Entry) error {
		if seen[e.ID] {
			return nil
		}
		seen[e.ID] = true
		return writeEntry(w, format, e)
	}

	history, err := replay(ctx, src)
	if err != nil {
		return err
	}
	for _, e := range history {
		if err := emit(e); err != nil {
			return err
		}
	}

	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := emit(e); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("skipping malformed entry event", zap.Error(err))
		}
	}
}

// replay reads every section's history, ordered by creation time.
func replay(ctx context.Context, src Source) ([]*blackboard.Entry, error) {
	sections, err := src.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	var all []*blackboard.Entry
	for _, s := range sections {
		history, err := src.History(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed to read section %s: %w", s, err)
		}
		all = append(all, history...)
	}
	sortByCreation(all)
	return all, nil
}

// sortByCreation keeps section order for equal timestamps.
func sortByCreation(entries []*blackboard.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtMs < entries[j].CreatedAtMs
	})
}

func writeEntry(w io.Writer, format OutputFormat, e *blackboard.Entry) error {
	switch format {
	case OutputFormatJSONL:
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	default:
		_, err := fmt.Fprintln(w, FormatEntry(e))
		return err
	}
}

// FormatEntry renders one entry as a single human-readable line.
func FormatEntry(e *blackboard.Entry) string {
	ts := time.UnixMilli(e.CreatedAtMs).Format("15:04:05")
	label := printer.Hat(e.Section).Sprintf("%-11s", e.Section)
	if !e.Usable() {
		return fmt.Sprintf("[%s] %s round %d ⚠️  unavailable (%s) by=%s", ts, label, e.Iteration+1, e.Reason, e.ProducerRole)
	}
	return fmt.Sprintf("[%s] %s round %d by=%s: %s", ts, label, e.Iteration+1, e.ProducerRole, summary(e.Content))
}

func summary(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > 80 {
			return string(r[:77]) + "..."
		}
		return line
	}
	return "(empty)"
}
