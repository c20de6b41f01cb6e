// Package template implements the template command.
package template

import (
	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/corpus"
	"github.com/romiem/ai-bands/pkg/errors"
)

// NewCommand creates the template command.
func NewCommand(app application.Application) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:     "template",
		GroupID: "management",
		Short:   "Print an empty artist record",
		Long: `Print an empty artist record in catalog file layout: every schema
field in declared order, dateAdded set to today's UTC date and tags empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := utc.Now()
			if date != "" {
				parsed, err := utc.Parse(constants.DateLayout, date)
				if err != nil {
					return errors.NewValidationError("date", date, "must be YYYY-MM-DD")
				}
				today = parsed
			}

			sc, err := app.Schema()
			if err != nil {
				return err
			}
			data, err := corpus.Encode(sc.Template(today.Time), sc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "dateAdded value (YYYY-MM-DD, default today)")

	return cmd
}
