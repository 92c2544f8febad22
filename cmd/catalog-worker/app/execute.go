package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI with the given arguments
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "catalog-worker",
		Short:   "Supplier catalog reconciliation worker",
		Version: a.version,
		Long: `catalog-worker reconciles supplier catalog exports against the
agreement registry. Submitted files are stored and queued, then a worker
diffs each snapshot, projects the changes onto agreement links and groups
unresolved articles into series.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	rootCmd.SetVersionTemplate("catalog-worker {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand loads configuration before any command runs
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if a.config != nil {
		return nil
	}
	return a.Load()
}

func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.NewServeCommand())
	rootCmd.AddCommand(a.NewSubmitCommand())
	rootCmd.AddCommand(a.NewPreviewCommand())
	rootCmd.AddCommand(a.NewRetryCommand())
	rootCmd.AddCommand(a.NewStatusCommand())

	// Management commands
	rootCmd.AddCommand(a.NewSweepCommand())
	rootCmd.AddCommand(a.NewMigrateCommand())
	rootCmd.AddCommand(a.NewHealthCommand())
}

// ExitOnError prints err and exits with status 1
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
