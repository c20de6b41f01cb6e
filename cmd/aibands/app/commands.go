package app

import (
	"github.com/spf13/cobra"

	"github.com/romiem/ai-bands/cmd/aibands/cmd/build"
	"github.com/romiem/ai-bands/cmd/aibands/cmd/history"
	"github.com/romiem/ai-bands/cmd/aibands/cmd/imports"
	"github.com/romiem/ai-bands/cmd/aibands/cmd/template"
	"github.com/romiem/ai-bands/cmd/aibands/cmd/validate"
	"github.com/romiem/ai-bands/cmd/aibands/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(imports.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))
	rootCmd.AddCommand(build.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(template.NewCommand(a))
	rootCmd.AddCommand(history.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}
