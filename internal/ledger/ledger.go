// Package ledger journals import runs in a SQLite database: one row per run
// with its counts, and one row per outcome.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/resolve"
)

// Ledger is an open run journal.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path and applies migrations.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapResource("open", "ledger", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Run is one journaled import.
type Run struct {
	ID         string   `json:"id" yaml:"id"`
	StartedAt  utc.Time `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time `json:"finished_at" yaml:"finished_at"`
	Source     string   `json:"source" yaml:"source"`
	DryRun     bool     `json:"dry_run" yaml:"dry_run"`
	Incoming   int      `json:"incoming" yaml:"incoming"`
	Skipped    int      `json:"skipped" yaml:"skipped"`
	Created    int      `json:"created" yaml:"created"`
	Modified   int      `json:"modified" yaml:"modified"`
	Unchanged  int      `json:"unchanged" yaml:"unchanged"`
	Rejected   int      `json:"rejected" yaml:"rejected"`
	Warnings   int      `json:"warnings" yaml:"warnings"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Entry is one journaled outcome.
type Entry struct {
	Seq     int      `json:"seq" yaml:"seq"`
	Kind    string   `json:"kind" yaml:"kind"`
	Handle  string   `json:"handle,omitempty" yaml:"handle,omitempty"`
	Sources []int    `json:"sources" yaml:"sources"`
	Changes []string `json:"changes,omitempty" yaml:"changes,omitempty"`
	Errors  string   `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Record journals a run and, when res is not nil, its outcomes. A run
// without an ID gets a new one. The stored run is returned.
func (l *Ledger) Record(ctx context.Context, run Run, res *resolve.Result) (Run, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = utc.Now()
	}
	if res != nil {
		run.Incoming = res.Stats.Incoming
		run.Created = res.Stats.Created
		run.Modified = res.Stats.Modified
		run.Unchanged = res.Stats.Unchanged
		run.Rejected = res.Stats.Rejected
		run.Warnings = res.Stats.Warnings
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return run, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, started_at, finished_at, source, dry_run, incoming, skipped,
            created, modified, unchanged, rejected, warnings, error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.RFC3339Nano(),
		run.FinishedAt.RFC3339Nano(),
		run.Source,
		run.DryRun,
		run.Incoming,
		run.Skipped,
		run.Created,
		run.Modified,
		run.Unchanged,
		run.Rejected,
		run.Warnings,
		nullableString(run.Error),
	)
	if err != nil {
		return run, fmt.Errorf("insert run: %w", err)
	}

	if res != nil {
		for seq, o := range res.Outcomes() {
			changes := make([]string, 0, len(o.Changes))
			for _, c := range o.Changes {
				changes = append(changes, c.Field)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO outcomes (run_id, seq, kind, handle, sources, changes, errors)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				run.ID,
				seq,
				string(o.Kind),
				nullableString(o.Handle),
				joinInts(o.Sources),
				nullableString(strings.Join(changes, ",")),
				nullableString(errors.Summarize(o.Errors)),
			)
			if err != nil {
				return run, fmt.Errorf("insert outcome %d: %w", seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("commit ledger tx: %w", err)
	}
	return run, nil
}

// Runs lists the most recent runs first. limit <= 0 lists all.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, source, dry_run, incoming, skipped,
        created, modified, unchanged, rejected, warnings, error
        FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run    Run
			runErr sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt, &run.Source, &run.DryRun,
			&run.Incoming, &run.Skipped, &run.Created, &run.Modified,
			&run.Unchanged, &run.Rejected, &run.Warnings, &runErr,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Error = runErr.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Entries returns the outcomes of one run in journal order.
func (l *Ledger) Entries(ctx context.Context, runID string) ([]Entry, error) {
	var exists int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs WHERE id = ?", runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if exists == 0 {
		return nil, &errors.NotFoundError{Resource: "run", ID: runID}
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, kind, handle, sources, changes, errors FROM outcomes WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			handle, changes, errMsg sql.NullString
			sources                 string
		)
		if err := rows.Scan(&e.Seq, &e.Kind, &handle, &sources, &changes, &errMsg); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Handle = handle.String
		e.Sources = splitInts(sources)
		if changes.String != "" {
			e.Changes = strings.Split(changes.String, ",")
		}
		e.Errors = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	return out
}
