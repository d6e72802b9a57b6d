package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/internal/archive"
	"github.com/dyluth/sixhat/internal/config"
	"github.com/dyluth/sixhat/internal/filter"
	"github.com/dyluth/sixhat/internal/hoard"
	"github.com/dyluth/sixhat/internal/printer"
	"github.com/dyluth/sixhat/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	hoardOutputFormat string
	hoardSince        string
	hoardUntil        string
	hoardSection      string
	hoardRole         string
	hoardUsableOnly   bool
)

var hoardCmd = &cobra.Command{
	Use:   "hoard [SESSION]",
	Short: "Inspect archived sessions",
	Long: `Inspect the SQLite session archive.

Sessions Mode (no SESSION):
  Lists archived sessions with their stop reason, rounds and score.

Entries Mode (with SESSION):
  Lists every blackboard entry the session wrote, in write order.
  Supports short IDs (at least 6 characters of the session UUID).

Output Formats:
  default - Human-readable table with truncated content
  jsonl   - Line-delimited JSON, one record per line

Time Filters:
  --since  - Show records created after this time
  --until  - Show records created before this time

Entry Filters (entries mode only):
  --section - Filter by section (glob pattern: "plan", "re*")
  --role    - Filter by producing role (exact match: "blue", "orchestrator")
  --usable  - Hide unavailable markers

Examples:
  # List sessions from the last day
  sixhat hoard --since=24h

  # Show one session's analysis as JSONL for jq
  sixhat hoard 1a2b3c --output=jsonl | jq -r 'select(.section=="report") | .content'

  # Show only the hat sections of a session
  sixhat hoard 1a2b3c --section="[wrybg]*"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHoard,
}

func init() {
	hoardCmd.Flags().StringVarP(&hoardOutputFormat, "output", "o", "default", "Output format: default or jsonl")

	hoardCmd.Flags().StringVar(&hoardSince, "since", "", "Show records after time (duration or RFC3339)")
	hoardCmd.Flags().StringVar(&hoardUntil, "until", "", "Show records before time (duration or RFC3339)")

	hoardCmd.Flags().StringVar(&hoardSection, "section", "", "Filter entries by section (glob pattern)")
	hoardCmd.Flags().StringVar(&hoardRole, "role", "", "Filter entries by producing role (exact match)")
	hoardCmd.Flags().BoolVar(&hoardUsableOnly, "usable", false, "Hide unavailable markers")

	rootCmd.AddCommand(hoardCmd)
}

func runHoard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	outputFormat, err := hoard.ParseOutputFormat(hoardOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", hoardOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	criteria, err := hoardCriteria()
	if err != nil {
		return err
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), []string{"Create a starter configuration:\n  sixhat init"})
	}
	if cfg.Archive.Path == "" {
		return printer.Error(
			"session archive disabled",
			"No archive path is configured, so no sessions have been recorded.",
			[]string{"Set archive.path in sixhat.yml, for example:\n  archive:\n    path: .sixhat/sessions.db"},
		)
	}

	a, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to open session archive",
			err.Error(),
			map[string]string{"Path": cfg.Archive.Path},
			nil,
		)
	}
	defer a.Close()

	if len(args) == 0 {
		if criteria.SectionGlob != "" || criteria.Role != "" || criteria.UsableOnly {
			printer.Warning("--section, --role and --usable apply to entries mode only\n")
		}
		return hoard.ListSessions(ctx, a, outputFormat, criteria, cmd.OutOrStdout())
	}

	shortID := args[0]
	sessionID, err := a.ResolveSessionID(ctx, shortID)
	if err != nil {
		switch {
		case archive.IsNotFound(err):
			return printer.Error(
				fmt.Sprintf("session '%s' not found", shortID),
				"No archived session matches that ID.",
				[]string{"List archived sessions:\n  sixhat hoard"},
			)
		case archive.IsAmbiguous(err):
			var ambig *archive.AmbiguousError
			errors.As(err, &ambig)
			return printer.Error(
				fmt.Sprintf("ambiguous session ID '%s'", shortID),
				archive.FormatAmbiguousError(ambig),
				[]string{"Use more characters of the session ID"},
			)
		default:
			return printer.Error("invalid session ID", err.Error(), nil)
		}
	}

	return hoard.ListEntries(ctx, a, sessionID, outputFormat, criteria, cmd.OutOrStdout())
}

// hoardCriteria validates the filter flags.
func hoardCriteria() (*filter.Criteria, error) {
	window, err := timespec.ParseRange(hoardSince, hoardUntil)
	if err != nil {
		return nil, printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{
				"Use a duration: --since=2h",
				"Or an RFC3339 time: --since=2025-03-01T10:00:00Z",
			},
		)
	}

	section := strings.TrimSpace(hoardSection)
	if section != "" && !filter.ValidGlob(section) {
		return nil, printer.Error(
			"invalid section pattern",
			fmt.Sprintf("Pattern '%s' is not a valid glob", section),
			[]string{"Use * and ? wildcards, for example: --section=\"re*\""},
		)
	}

	role := strings.TrimSpace(hoardRole)
	if role != "" && role != "orchestrator" {
		if err := agent.Role(role).Validate(); err != nil {
			return nil, printer.Error("invalid role", err.Error(), nil)
		}
	}

	return &filter.Criteria{
		Window:      window,
		SectionGlob: section,
		Role:        role,
		UsableOnly:  hoardUsableOnly,
	}, nil
}
