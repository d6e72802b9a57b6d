package commands

import (
	"fmt"

	"github.com/dyluth/sixhat/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter sixhat.yml",
	Long: `Create a starter sixhat.yml in the current directory.

The file selects the inference backend, bounds the analysis loop and
configures the optional Redis blackboard and SQLite session archive.
API keys are never stored in it; export them in the environment.

Use --force to overwrite an existing sixhat.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing sixhat.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := scaffold.Initialize(".", forceInit)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(cmd.OutOrStdout(), path)
	return nil
}
