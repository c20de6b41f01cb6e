package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/corpus"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/resolve"
)

// Render writes data in format. Tables are built by table; other formats
// serialize data as is.
func Render(w io.Writer, format Format, data any, table func() Data) error {
	if format == FormatTable || format == "" {
		if table != nil {
			return NewFormatter(FormatTable).Format(w, table())
		}
	}
	return NewFormatter(format).Format(w, data)
}

// OutcomeView is one outcome in reports.
type OutcomeView struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Handle  string   `json:"handle,omitempty" yaml:"handle,omitempty"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Sources []int    `json:"sources" yaml:"sources"`
	Changes []string `json:"changes,omitempty" yaml:"changes,omitempty"`
	Errors  []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ImportSummary is the report of one import run.
type ImportSummary struct {
	RunID     string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source    string        `json:"source" yaml:"source"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
	Incoming  int           `json:"incoming" yaml:"incoming"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Clusters  int           `json:"clusters" yaml:"clusters"`
	Created   int           `json:"created" yaml:"created"`
	Modified  int           `json:"modified" yaml:"modified"`
	Unchanged int           `json:"unchanged" yaml:"unchanged"`
	Rejected  int           `json:"rejected" yaml:"rejected"`
	Warnings  []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Outcomes  []OutcomeView `json:"outcomes" yaml:"outcomes"`
}

// NewImportSummary builds the report of a run. skipped counts feed entries
// dropped before resolution. corpusWarnings are the corpus files that could
// not be read; they are listed before the resolver warnings.
func NewImportSummary(runID, source string, dryRun bool, skipped int, corpusWarnings []error, res *resolve.Result) ImportSummary {
	s := ImportSummary{
		RunID:     runID,
		Source:    source,
		DryRun:    dryRun,
		Incoming:  res.Stats.Incoming,
		Skipped:   skipped,
		Clusters:  res.Stats.Clusters,
		Created:   res.Stats.Created,
		Modified:  res.Stats.Modified,
		Unchanged: res.Stats.Unchanged,
		Rejected:  res.Stats.Rejected,
		Outcomes:  []OutcomeView{},
	}
	for _, w := range corpusWarnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	for _, w := range res.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	for _, o := range res.Outcomes() {
		view := OutcomeView{
			Kind:    string(o.Kind),
			Handle:  o.Handle,
			Name:    o.Record.Name(),
			Sources: o.Sources,
		}
		for _, c := range o.Changes {
			view.Changes = append(view.Changes, c.String())
		}
		for _, err := range o.Errors {
			view.Errors = append(view.Errors, err.Error())
		}
		s.Outcomes = append(s.Outcomes, view)
	}
	return s
}

// SummaryTable renders the import counts.
func SummaryTable(s ImportSummary) Data {
	title := "Import summary"
	if s.DryRun {
		title += " (dry run)"
	}
	return Data{
		Headers: []string{title, "Count"},
		Rows: [][]string{
			{"Incoming records", strconv.Itoa(s.Incoming)},
			{"Skipped (malformed)", strconv.Itoa(s.Skipped)},
			{"Clusters", strconv.Itoa(s.Clusters)},
			{"New artists imported", strconv.Itoa(s.Created)},
			{"Existing artists modified", strconv.Itoa(s.Modified)},
			{"Unchanged", strconv.Itoa(s.Unchanged)},
			{"Rejected (validation)", strconv.Itoa(s.Rejected)},
			{"Warnings", strconv.Itoa(len(s.Warnings))},
		},
		Alignment: []Align{AlignLeft, AlignRight},
	}
}

// OutcomesTable lists every outcome except unchanged ones.
func OutcomesTable(s ImportSummary) Data {
	data := Data{Headers: []string{"Outcome", "Handle", "Name", "Sources", "Details"}}
	for _, o := range s.Outcomes {
		if o.Kind == string(resolve.KindUnchanged) {
			continue
		}
		details := strings.Join(o.Changes, "; ")
		if len(o.Errors) > 0 {
			details = strings.Join(o.Errors, "; ")
		}
		data.Rows = append(data.Rows, []string{o.Kind, o.Handle, o.Name, joinInts(o.Sources), details})
	}
	return data
}

// RunsTable renders journaled runs.
func RunsTable(runs []ledger.Run) Data {
	data := Data{
		Headers:   []string{"Run", "Started", "Source", "Dry run", "Created", "Modified", "Unchanged", "Rejected", "Skipped", "Error"},
		Alignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignCenter, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
	for _, r := range runs {
		dry := ""
		if r.DryRun {
			dry = "yes"
		}
		data.Rows = append(data.Rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Source,
			dry,
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Modified),
			strconv.Itoa(r.Unchanged),
			strconv.Itoa(r.Rejected),
			strconv.Itoa(r.Skipped),
			r.Error,
		})
	}
	return data
}

// EntriesTable renders the journaled outcomes of one run.
func EntriesTable(entries []ledger.Entry) Data {
	data := Data{Headers: []string{"#", "Outcome", "Handle", "Sources", "Changes", "Errors"}}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(e.Seq),
			e.Kind,
			e.Handle,
			joinInts(e.Sources),
			strings.Join(e.Changes, ", "),
			e.Errors,
		})
	}
	return data
}

// ReportView is the serializable form of a corpus validation report.
type ReportView struct {
	Checked  int               `json:"checked" yaml:"checked"`
	Failures map[string]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewReportView flattens a corpus report.
func NewReportView(r *corpus.Report) ReportView {
	v := ReportView{Checked: r.Checked}
	for _, f := range r.Failures {
		if v.Failures == nil {
			v.Failures = make(map[string]string)
		}
		v.Failures[f.File] = errors.Summarize(f.Errors)
	}
	return v
}

// ReportTable renders failing files, one error per row.
func ReportTable(r *corpus.Report) Data {
	data := Data{Headers: []string{"File", "Problem"}}
	for _, f := range r.Failures {
		for _, err := range f.Errors {
			data.Rows = append(data.Rows, []string{f.File, err.Error()})
		}
	}
	if len(data.Rows) == 0 {
		data.Rows = append(data.Rows, []string{fmt.Sprintf("%d files", r.Checked), "ok"})
	}
	return data
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
