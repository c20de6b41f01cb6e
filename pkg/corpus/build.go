package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/logging"
	"github.com/romiem/ai-bands/pkg/records"
)

// FileReport lists the problems found in one corpus file.
type FileReport struct {
	File   string
	Errors []error
}

// Report is the result of validating the whole corpus.
type Report struct {
	Checked  int
	Failures []FileReport
	entries  []records.Entry
}

// OK reports whether every file passed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err summarizes the failures, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &errors.ValidationError{
		Message: fmt.Sprintf("%d of %d corpus files failed validation", len(r.Failures), r.Checked),
	}
}

// Validate checks every corpus file against the schema. Files that cannot
// be decoded are reported as failures.
func (s *Store) Validate(ctx context.Context) (*Report, error) {
	logger := logging.FromContext(ctx)

	files, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Checked: len(files)}
	for _, f := range files {
		if f.err != nil {
			report.Failures = append(report.Failures, FileReport{File: f.name, Errors: []error{f.err}})
			continue
		}
		if errs := s.schema.Validate(f.entry.Record); len(errs) > 0 {
			report.Failures = append(report.Failures, FileReport{File: f.name, Errors: errs})
			continue
		}
		report.entries = append(report.entries, f.entry)
	}

	for _, failure := range report.Failures {
		logger.Error().
			Str("file", failure.File).
			Str("errors", errors.Summarize(failure.Errors)).
			Msg("Schema validation failed")
	}
	return report, nil
}

// Build validates the corpus and writes the combined catalog, sorted by
// name ignoring case and accents. Nothing is written when any file fails;
// the report lists every failure.
func (s *Store) Build(ctx context.Context) (string, *Report, error) {
	logger := logging.FromContext(ctx)

	report, err := s.Validate(ctx)
	if err != nil {
		return "", nil, err
	}
	if err := report.Err(); err != nil {
		return "", report, err
	}

	entries := report.entries
	coll := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Record, entries[j].Record
		if c := coll.CompareString(a.Name(), b.Name()); c != 0 {
			return c < 0
		}
		return a.ID() < b.ID()
	})

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		compact, err := encodeCompact(e.Record, s.schema)
		if err != nil {
			return "", report, errors.WrapParse("json", e.Handle, err)
		}
		buf.Write(compact)
	}
	buf.WriteByte(']')

	data, err := indent(buf.Bytes())
	if err != nil {
		return "", report, err
	}

	dist := s.DistDir()
	if err := os.MkdirAll(dist, constants.DirPermissions); err != nil {
		return "", report, errors.WrapIO("create", dist, err)
	}
	path := filepath.Join(dist, constants.CombinedFileName)
	if err := writeAtomic(path, data); err != nil {
		return "", report, err
	}

	logger.Info().Int("records", len(entries)).Str("path", path).Msg("Combined catalog written")
	return path, report, nil
}
