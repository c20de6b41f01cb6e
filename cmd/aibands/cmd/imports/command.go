// Package imports implements the import command: decode an external list,
// resolve it against the catalog and write the created and modified records.
package imports

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/internal/cmd/emoji"
	"github.com/romiem/ai-bands/internal/cmd/output"
	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/feeds"
	"github.com/romiem/ai-bands/pkg/logging"
	"github.com/romiem/ai-bands/pkg/resolve"
)

// Flags holds the import flags.
type Flags struct {
	Feed      string
	Format    string
	SourceTag string
	DryRun    bool
}

// NewCommand creates the import command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "import <file|->",
		GroupID: "core",
		Short:   "Import an external artist list into the catalog",
		Long: `Import an external artist list into the catalog.

Duplicates inside the list are clustered by platform URL, then each cluster
is matched against the catalog. Matches fill empty fields and gain the
list's tags; everything else becomes a new artist tagged "external".
Records failing schema validation are reported and not written.

Known feeds (--feed) fix the format and source tag:
  cennoxx    CSV "artist,id" list of Spotify artists
  eye-wave   JSON trashbin keyed by spotify:artist:<id>`,
		Example: `  aibands import --feed cennoxx SpotifyAiArtists.csv
  aibands import --input-format records --source-tag my-list artists.yaml
  curl -s https://example.org/list.json | aibands import --feed eye-wave -
  aibands import --dry-run -o json artists.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), app, flags, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.Feed, "feed", "", "known feed name: cennoxx, eye-wave")
	cmd.Flags().StringVarP(&flags.Format, "input-format", "f", "", "input format: csv, trashbin, records (default from file extension)")
	cmd.Flags().StringVar(&flags.SourceTag, "source-tag", "", "tag stamped on every imported record next to \"external\"")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "resolve and report without writing")

	return cmd
}

// Run executes an import of input, a path or "-" for stdin.
func Run(ctx context.Context, app application.Application, flags *Flags, input string, w io.Writer) error {
	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}

	feed, err := selectFeed(flags, input)
	if err != nil {
		return err
	}

	runID := ledger.NewRunID()
	ctx = logging.WithRun(ctx, runID)
	logger := logging.FromContext(ctx)
	dryRun := flags.DryRun || app.DryRun()
	started := utc.Now()

	source, r, closeInput, err := openInput(app, input)
	if err != nil {
		return err
	}
	defer closeInput()

	batch, err := feeds.Decode(ctx, feed, source, r)
	if err != nil {
		return err
	}

	store, err := app.Store()
	if err != nil {
		return err
	}

	if !dryRun {
		lock, err := store.Lock()
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn().Err(err).Msg("Failed to release corpus lock")
			}
		}()
	}

	corpus, loadWarnings, err := store.Load(ctx)
	if err != nil {
		return err
	}

	resolver, err := app.Resolver()
	if err != nil {
		return err
	}

	res, runErr := resolver.Resolve(ctx, batch.Records, corpus)
	if runErr == nil && !dryRun {
		runErr = store.Apply(ctx, res.Entries())
	}

	journal(ctx, app, ledger.Run{
		ID:        runID,
		StartedAt: started,
		Source:    source,
		DryRun:    dryRun,
		Skipped:   len(batch.Skipped),
		Error:     errString(runErr),
	}, res)

	if res == nil {
		return runErr
	}

	summary := output.NewImportSummary(runID, source, dryRun, len(batch.Skipped), loadWarnings, res)
	logger.Info().
		Int("created", summary.Created).
		Int("modified", summary.Modified).
		Int("unchanged", summary.Unchanged).
		Int("rejected", summary.Rejected).
		Bool("dry_run", dryRun).
		Msg("Import finished")

	if err := render(w, format, summary); err != nil {
		return err
	}
	return runErr
}

func render(w io.Writer, format output.Format, summary output.ImportSummary) error {
	if format != output.FormatTable {
		return output.Render(w, format, summary, nil)
	}
	if err := output.Render(w, format, summary, func() output.Data { return output.SummaryTable(summary) }); err != nil {
		return err
	}
	if summary.Rejected > 0 {
		fmt.Fprintf(w, "%s %d records failed validation and were not written\n", emoji.Warning, summary.Rejected)
	}
	outcomes := output.OutcomesTable(summary)
	if len(outcomes.Rows) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return output.Render(w, format, summary, func() output.Data { return outcomes })
}

// journal records the run when a ledger is configured. Journal failures
// are logged and never fail the import.
func journal(ctx context.Context, app application.Application, run ledger.Run, res *resolve.Result) {
	logger := logging.FromContext(ctx)

	l, err := app.Ledger(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Run journal unavailable")
		return
	}
	if l == nil {
		return
	}
	if _, err := l.Record(ctx, run, res); err != nil {
		logger.Warn().Err(err).Msg("Failed to journal run")
	}
}

func selectFeed(flags *Flags, input string) (feeds.Feed, error) {
	var feed feeds.Feed
	if flags.Feed != "" {
		known, err := feeds.Lookup(flags.Feed)
		if err != nil {
			return feeds.Feed{}, err
		}
		feed = known
	} else {
		name := flags.Format
		if name == "" {
			name = formatFromPath(input)
		}
		format, err := feeds.ParseFormat(name)
		if err != nil {
			return feeds.Feed{}, err
		}
		feed = feeds.Feed{Name: "file", Format: format}
	}
	if flags.Format != "" && flags.Feed != "" {
		format, err := feeds.ParseFormat(flags.Format)
		if err != nil {
			return feeds.Feed{}, err
		}
		feed.Format = format
	}
	if flags.SourceTag != "" {
		feed.Tag = flags.SourceTag
	}
	return feed, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return string(feeds.FormatCSV)
	default:
		return string(feeds.FormatRecords)
	}
}

func openInput(app application.Application, input string) (string, io.Reader, func(), error) {
	if input == "-" {
		return "stdin", app.Stdin(), func() {}, nil
	}
	f, err := os.Open(input)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, nil, &errors.NotFoundError{Resource: "input", ID: input}
		}
		return "", nil, nil, errors.WrapIO("open", input, err)
	}
	return input, f, func() { _ = f.Close() }, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
