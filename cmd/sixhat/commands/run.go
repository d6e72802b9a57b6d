package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/internal/archive"
	"github.com/dyluth/sixhat/internal/config"
	"github.com/dyluth/sixhat/internal/inference"
	"github.com/dyluth/sixhat/internal/orchestrator"
	"github.com/dyluth/sixhat/internal/printer"
	"github.com/dyluth/sixhat/internal/tools"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stragglerGrace bounds how long an exiting session waits for analysts
// that outlived their round.
const stragglerGrace = 5 * time.Second

var (
	requirementText string
	rawOutput       bool
)

// errEmptyRequirement is returned when the prompt reads nothing usable.
var errEmptyRequirement = errors.New("requirement cannot be empty")

func init() {
	rootCmd.Flags().StringVarP(&requirementText, "requirement", "r", "", "Requirement to analyse (prompted for if omitted)")
	rootCmd.Flags().BoolVar(&rawOutput, "raw", false, "Print the report as raw Markdown")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{
				"Create a starter configuration:\n  sixhat init",
				"Point at a different file:\n  sixhat --config path/to/sixhat.yml",
			},
		)
	}
	if err := cfg.Backend.RequireCredentials(); err != nil {
		return printer.ErrorWithContext(
			"missing API credentials",
			err.Error(),
			map[string]string{"Provider": cfg.Backend.Provider},
			[]string{"Export the API key for the configured provider and run sixhat again"},
		)
	}

	requirement := strings.TrimSpace(requirementText)
	if requirement == "" {
		requirement, err = promptRequirement(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return printer.Error(
				"no requirement given",
				err.Error(),
				[]string{"Type a requirement at the prompt, or pass it directly:\n  sixhat --requirement \"...\""},
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := inference.New(ctx, cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}

	deps := agent.Deps{Inference: client, Logger: logger}
	if research := cfg.ResearchLimits(); research.Enabled {
		deps.Tools = tools.NewWeb(tools.WebConfig{
			MaxResults:    research.MaxResults,
			MaxPageLength: research.MaxPageLength,
			Timeout:       cfg.Orchestration().ToolTimeout,
		}, logger)
	}

	sessionID := uuid.New().String()
	store, err := openStore(ctx, cfg.Blackboard, sessionID)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := orchestrator.New(blackboard.New(store), orchestrator.SettingsFrom(cfg), deps,
		orchestrator.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), stragglerGrace)
		defer cancel()
		if err := engine.Wait(wctx); err != nil {
			logger.Warn("Analysts still running at exit", zap.Error(err))
		}
	}()

	printer.Step("Analysing requirement (session %s)\n", sessionID[:8])
	res, runErr := engine.Run(ctx, requirement)

	if cfg.Archive.Path != "" && res != nil {
		if err := archiveSession(cfg.Archive.Path, res, runErr); err != nil {
			printer.Warning("Failed to archive session: %v\n", err)
		} else {
			logger.Debug("Session archived", zap.String("path", cfg.Archive.Path))
		}
	}

	if runErr != nil {
		return sessionFailure(res, runErr)
	}

	if res.StopReason == orchestrator.StopCancelled {
		printer.Warning("Interrupted: the report covers only the rounds completed so far\n")
	}
	if err := res.StopError(); err != nil {
		printer.Warning("Stopped early: %v\n", err)
	}
	printDegraded(res.Degraded)

	if err := renderReport(cmd.OutOrStdout(), res.Report.Content, rawOutput); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	writeScorecard(cmd.OutOrStdout(), res)
	return nil
}

// promptRequirement asks for a requirement on out and reads one line from in.
func promptRequirement(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter requirement: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read requirement: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errEmptyRequirement
	}
	return line, nil
}

// openStore returns the Redis blackboard when a URL is configured and an
// in-memory one otherwise.
func openStore(ctx context.Context, cfg config.BlackboardConfig, sessionID string) (blackboard.Store, error) {
	if cfg.RedisURL == "" {
		return blackboard.NewMemoryStore(sessionID), nil
	}

	client, err := blackboard.NewClientFromURL(cfg.RedisURL, sessionID, blackboard.WithLogger(logger))
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			err.Error(),
			[]string{"Fix blackboard.redis_url in sixhat.yml or SIXHAT_REDIS_URL"},
		)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"URL": cfg.RedisURL},
			[]string{
				"Start Redis and try again",
				"Remove blackboard.redis_url to keep the blackboard in memory",
			},
		)
	}
	return client, nil
}

func archiveSession(path string, res *orchestrator.Result, runErr error) error {
	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.SaveSession(context.Background(), res, runErr)
}

// sessionFailure reports a failed session.
func sessionFailure(res *orchestrator.Result, err error) error {
	var se *orchestrator.SessionError
	if !errors.As(err, &se) {
		return fmt.Errorf("session failed: %w", err)
	}

	details := map[string]string{"Reason": string(se.Failure.Reason)}
	if res != nil {
		details["Session"] = res.SessionID
		details["Rounds"] = fmt.Sprintf("%d", res.Rounds)
	}

	title := "planning failed"
	explanation := "The Blue hat could not produce a plan, so no analysis was run."
	if se.Kind == orchestrator.ReportFailure {
		title = "report generation failed"
		explanation = "The analysis completed but no report could be written."
	}
	return printer.ErrorWithContext(
		title,
		fmt.Sprintf("%s\n\n%v", explanation, se.Failure),
		details,
		[]string{
			"Check the backend is reachable and the API key is valid",
			"Re-run with --verbose for the full event log",
		},
	)
}

func printDegraded(degraded []orchestrator.Degradation) {
	for _, d := range degraded {
		printer.Warning("%s was unavailable in round %d (%s)\n",
			d.Role.Title(), d.Iteration+1, d.Reason)
	}
}
