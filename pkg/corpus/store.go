// Package corpus is the file-backed artist corpus: one JSON file per
// artist under the source directory, named after the record id.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/logging"
	"github.com/romiem/ai-bands/pkg/records"
	"github.com/romiem/ai-bands/pkg/schema"
)

// Store reads and writes corpus files.
type Store struct {
	root    string
	srcDir  string
	distDir string
	schema  *schema.Schema
	workers int
}

// Option configures a Store.
type Option func(*Store)

// WithSrcDir sets the record directory, relative to the root unless absolute.
func WithSrcDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.srcDir = dir
		}
	}
}

// WithDistDir sets the build output directory.
func WithDistDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.distDir = dir
		}
	}
}

// WithSchema sets the schema used for field order and build validation.
func WithSchema(sc *schema.Schema) Option {
	return func(s *Store) {
		if sc != nil {
			s.schema = sc
		}
	}
}

// WithWorkers bounds concurrent file reads.
func WithWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Store rooted at root.
func New(root string, opts ...Option) *Store {
	s := &Store{
		root:    root,
		srcDir:  constants.DefaultSrcDir,
		distDir: constants.DefaultDistDir,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.schema == nil {
		s.schema = schema.Default()
	}
	return s
}

// SrcDir returns the resolved record directory.
func (s *Store) SrcDir() string {
	return s.resolve(s.srcDir)
}

// DistDir returns the resolved build output directory.
func (s *Store) DistDir() string {
	return s.resolve(s.distDir)
}

func (s *Store) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(s.root, dir)
}

// Path returns the file a handle is stored in.
func (s *Store) Path(handle string) string {
	return filepath.Join(s.SrcDir(), handle+constants.RecordExt)
}

// Load reads every record file in file-name order. Files that cannot be
// read or decoded are skipped and reported as warnings; the error is
// non-nil only when the directory itself cannot be listed.
func (s *Store) Load(ctx context.Context) ([]records.Entry, []error, error) {
	logger := logging.FromContext(ctx)

	files, err := s.scan(ctx)
	if err != nil {
		return nil, nil, err
	}

	var loaded []records.Entry
	var warnings []error
	for _, f := range files {
		if f.err != nil {
			logger.Warn().Err(f.err).Str("file", f.name).Msg("Skipping unreadable corpus file")
			warnings = append(warnings, f.err)
			continue
		}
		loaded = append(loaded, f.entry)
	}

	logger.Debug().Int("records", len(loaded)).Int("skipped", len(warnings)).Str("dir", s.SrcDir()).Msg("Loaded corpus")
	return loaded, warnings, nil
}

type scanned struct {
	name  string
	entry records.Entry
	err   error
}

// scan reads every record file concurrently and returns them in file-name
// order.
func (s *Store) scan(ctx context.Context) ([]scanned, error) {
	dir := s.SrcDir()
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.FromContext(ctx).Debug().Str("dir", dir).Msg("Corpus directory does not exist")
			return nil, nil
		}
		return nil, errors.WrapIO("read", dir, err)
	}

	var files []scanned
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), constants.RecordExt) {
			continue
		}
		files = append(files, scanned{name: de.Name()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := &files[i]
			rec, err := s.readFile(filepath.Join(dir, f.name))
			if err != nil {
				f.err = err
				return nil
			}
			f.entry = records.Entry{
				Handle: strings.TrimSuffix(f.name, constants.RecordExt),
				Record: rec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Store) readFile(path string) (records.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	if raw == nil {
		return nil, errors.NewParseError("json", path, 0, "not a JSON object", nil)
	}
	return records.Normalize(raw), nil
}

// Apply writes entries in order and stops at the first failure. The
// returned StorageError reports how many entries were committed.
func (s *Store) Apply(ctx context.Context, entries []records.Entry) error {
	logger := logging.FromContext(ctx)

	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.SrcDir(), constants.DirPermissions); err != nil {
		return &errors.StorageError{Total: len(entries), Err: errors.WrapIO("create", s.SrcDir(), err)}
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return &errors.StorageError{Committed: i, Total: len(entries), Err: err}
		}
		if err := s.Write(e); err != nil {
			logger.Error().Err(err).Str("handle", e.Handle).Int("committed", i).Msg("Corpus write failed")
			return &errors.StorageError{Committed: i, Total: len(entries), Err: err}
		}
	}
	logger.Debug().Int("written", len(entries)).Msg("Corpus updated")
	return nil
}

// Write stores one entry. The file is replaced atomically.
func (s *Store) Write(e records.Entry) error {
	if e.Handle == "" || strings.ContainsAny(e.Handle, `/\`) || e.Handle == "." || e.Handle == ".." {
		return &errors.ValidationError{Field: "handle", Value: e.Handle, Message: "is not a valid file name"}
	}
	data, err := Encode(e.Record, s.schema)
	if err != nil {
		return err
	}
	return writeAtomic(s.Path(e.Handle), data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Chmod(constants.FilePermissions); err != nil {
		tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Encode renders rec as a 2-space indented JSON object with keys in schema
// order, followed by a newline.
func Encode(rec records.Record, sc *schema.Schema) ([]byte, error) {
	compact, err := encodeCompact(rec, sc)
	if err != nil {
		return nil, err
	}
	return indent(compact)
}

func encodeCompact(rec records.Record, sc *schema.Schema) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range sc.FieldOrder(rec) {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(field)
		if err != nil {
			return nil, err
		}
		value, err := marshal(rec[field])
		if err != nil {
			return nil, errors.WrapValidation(field, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func indent(compact []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
