// Package build implements the build command.
package build

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/internal/cmd/emoji"
	"github.com/romiem/ai-bands/internal/cmd/output"
)

// Result is the machine-readable build report.
type Result struct {
	Path     string            `json:"path,omitempty" yaml:"path,omitempty"`
	Records  int               `json:"records" yaml:"records"`
	Failures map[string]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewCommand creates the build command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "build",
		GroupID: "core",
		Short:   "Combine the catalog into a single sorted file",
		Long: `Validate every catalog file, then write them as one JSON array to
dist/ai-bands.json sorted by name, ignoring case and accents.

Nothing is written when any file fails validation; every failure is listed.`,
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

			path, report, buildErr := store.Build(cmd.Context())
			if report == nil {
				return buildErr
			}

			w := cmd.OutOrStdout()
			if format == output.FormatTable {
				if buildErr == nil {
					fmt.Fprintf(w, "%s Wrote %d artists to %s\n", emoji.Success, report.Checked, path)
					return nil
				}
				if !report.OK() {
					fmt.Fprintf(w, "%s %d of %d files failed validation, nothing written\n", emoji.Error, len(report.Failures), report.Checked)
					if err := output.Render(w, format, nil, func() output.Data { return output.ReportTable(report) }); err != nil {
						return err
					}
				}
				return buildErr
			}

			view := output.NewReportView(report)
			result := Result{Path: path, Records: report.Checked, Failures: view.Failures}
			if err := output.Render(w, format, result, nil); err != nil {
				return err
			}
			return buildErr
		},
	}
}
