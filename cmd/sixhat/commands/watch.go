package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/sixhat/internal/archive"
	"github.com/dyluth/sixhat/internal/config"
	"github.com/dyluth/sixhat/internal/printer"
	"github.com/dyluth/sixhat/internal/watch"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	watchSessionID    string
	watchOutputFormat string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream a running session's blackboard",
	Long: `Stream blackboard entries of a session as they are written.

Entries already on the blackboard are replayed first, then new entries and
unavailable markers are printed as the session writes them. Requires a Redis
blackboard (blackboard.redis_url or SIXHAT_REDIS_URL); an in-memory
blackboard is private to the running process.

The session ID is printed when a session starts. A short ID is accepted
when the session archive is enabled and already holds the session.

Output Formats:
  default - One line per entry with time, section, round and role
  jsonl   - Line-delimited JSON, one entry per line

Examples:
  # Watch a session in another terminal
  sixhat watch --session 1a2b3c4d-...

  # Export entries for later processing
  sixhat watch --session 1a2b3c4d-... --output=jsonl > entries.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSessionID, "session", "s", "", "Session ID to watch (required)")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	_ = watchCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "jsonl":
		outputFormat = watch.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), []string{"Create a starter configuration:\n  sixhat init"})
	}
	if cfg.Blackboard.RedisURL == "" {
		return printer.Error(
			"no Redis blackboard configured",
			"Only sessions using a Redis blackboard can be watched.",
			[]string{"Set blackboard.redis_url in sixhat.yml or export SIXHAT_REDIS_URL for both the session and watch"},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID, err := resolveWatchSession(ctx, cfg, watchSessionID)
	if err != nil {
		return err
	}

	client, err := blackboard.NewClientFromURL(cfg.Blackboard.RedisURL, sessionID)
	if err != nil {
		return printer.Error("invalid Redis URL", err.Error(), nil)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"URL": cfg.Blackboard.RedisURL},
			[]string{"Check Redis is running and reachable"},
		)
	}

	if outputFormat == watch.OutputFormatDefault {
		printer.Info("Watching session %s (Ctrl+C to stop)...\n\n", sessionID)
	}

	if err := watch.Stream(ctx, client, outputFormat, cmd.OutOrStdout(), logger); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

// resolveWatchSession accepts a full session UUID, or a prefix of one
// already recorded in the archive.
func resolveWatchSession(ctx context.Context, cfg *config.Config, id string) (string, error) {
	if _, err := uuid.Parse(id); err == nil {
		return id, nil
	}
	if cfg.Archive.Path == "" {
		return "", printer.Error(
			"invalid session ID",
			fmt.Sprintf("'%s' is not a full session ID and no archive is configured to resolve it.", id),
			[]string{"Pass the full session ID printed when the session started"},
		)
	}

	a, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open session archive: %w", err)
	}
	defer a.Close()

	full, err := a.ResolveSessionID(ctx, id)
	if err != nil {
		return "", printer.Error(
			fmt.Sprintf("cannot resolve session '%s'", id),
			err.Error(),
			[]string{"Pass the full session ID printed when the session started"},
		)
	}
	return full, nil
}
