// Package validate implements the validate command.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/internal/cmd/emoji"
	"github.com/romiem/ai-bands/internal/cmd/output"
)

// NewCommand creates the validate command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		GroupID: "core",
		Short:   "Check every catalog file against the artist schema",
		Long: `Check every catalog file against the artist schema without writing
anything. Files that cannot be decoded count as failures. Exits non-zero
when any file fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}

			report, err := store.Validate(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == output.FormatTable && report.OK() {
				fmt.Fprintf(w, "%s %d files valid\n", emoji.Success, report.Checked)
				return nil
			}
			if err := output.Render(w, format, output.NewReportView(report), func() output.Data {
				return output.ReportTable(report)
			}); err != nil {
				return err
			}
			return report.Err()
		},
	}
}
