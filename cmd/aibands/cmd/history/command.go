// Package history implements the history command over the run journal.
package history

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/internal/cmd/output"
	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
)

// NewCommand creates the history command.
func NewCommand(app application.Application) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history [run-id]",
		GroupID: "management",
		Short:   "List past import runs",
		Long: `List past import runs from the run journal, newest first.

With a run id (or a unique prefix of one) list that run's outcomes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}

			l, err := app.Ledger(ctx)
			if err != nil {
				return err
			}
			if l == nil {
				return errors.NewConfigError("ledger", "run journal is disabled", nil)
			}

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := l.Runs(ctx, limit)
				if err != nil {
					return err
				}
				return output.Render(w, format, runs, func() output.Data { return output.RunsTable(runs) })
			}

			runID, err := expandRunID(ctx, l, args[0])
			if err != nil {
				return err
			}
			entries, err := l.Entries(ctx, runID)
			if err != nil {
				return err
			}
			return output.Render(w, format, entries, func() output.Data { return output.EntriesTable(entries) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultHistoryLimit, "number of runs to list (0 for all)")

	return cmd
}

// expandRunID resolves a unique run id prefix.
func expandRunID(ctx context.Context, l *ledger.Ledger, prefix string) (string, error) {
	runs, err := l.Runs(ctx, 0)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range runs {
		if r.ID == prefix {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", &errors.NotFoundError{Resource: "run", ID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", errors.NewValidationError("run-id", prefix, "prefix matches more than one run")
	}
}
