package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version string
	commit  string
	date    string

	verbose    bool
	configPath string

	// logger is built in PersistentPreRunE so every subcommand shares it.
	logger = zap.NewNop()
)

// rootCmd runs an analysis session when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "sixhat",
	Short: "sixhat - Six Thinking Hats analysis of a requirement",
	Long: `sixhat analyses a requirement with a team of role agents modelled on
the Six Thinking Hats. A Blue hat plans, an Information role researches the
web, the White, Red, Yellow, Black and Green hats analyse in parallel, a
Reflection role decides whether another round is needed, and a Report role
writes the final Markdown report, which an Evaluator then scores.

Every contribution is written to a shared blackboard, optionally backed by
Redis and archived to SQLite for later inspection with 'sixhat hoard'.

Examples:
  # Prompt for a requirement
  sixhat

  # Pass the requirement directly and print the raw Markdown
  sixhat --requirement "Should we adopt a four-day week?" --raw`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE:               runSession,
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Errors are printed with colour by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// newLogger builds a production logger writing to stderr, so stdout carries
// only the report.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to sixhat.yml (default: ./sixhat.yml if present)")
}
