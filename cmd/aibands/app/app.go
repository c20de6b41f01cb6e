// Package app provides the application context and dependency management
// for the aibands CLI: configuration, logging and the lazily built corpus
// collaborators shared by commands.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/cluster"
	"github.com/romiem/ai-bands/pkg/corpus"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/resolve"
	"github.com/romiem/ai-bands/pkg/schema"
)

// App represents the aibands application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config      *Config
	logger      *zerolog.Logger
	fixedLogger bool
	stdin       io.Reader
	stdout      io.Writer

	// Lazily initialized
	mu     sync.Mutex
	schema *schema.Schema
	store  *corpus.Store
	ledger *ledger.Ledger
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdin:   os.Stdin,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// DryRun reports whether writes are disabled.
func (a *App) DryRun() bool {
	return a.config.DryRun
}

// Stdin returns the reader used for "-" inputs.
func (a *App) Stdin() io.Reader {
	return a.stdin
}

// Schema loads the configured schema once, falling back to the built-in
// schema when the file does not exist.
func (a *App) Schema() (*schema.Schema, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.schemaLocked()
}

func (a *App) schemaLocked() (*schema.Schema, error) {
	if a.schema != nil {
		return a.schema, nil
	}
	sc, err := schema.LoadOrDefault(a.config.Path(a.config.Schema))
	if err != nil {
		return nil, errors.WrapResource("load", "schema", a.config.Schema, err)
	}
	a.logger.Debug().Str("schema", sc.Source()).Msg("Loaded schema")
	a.schema = sc
	return sc, nil
}

// Store returns the corpus store for the configured root.
func (a *App) Store() (*corpus.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	sc, err := a.schemaLocked()
	if err != nil {
		return nil, err
	}
	a.store = corpus.New(a.config.Root,
		corpus.WithSrcDir(a.config.SrcDir),
		corpus.WithDistDir(a.config.DistDir),
		corpus.WithSchema(sc),
	)
	return a.store, nil
}

// Resolver builds a resolver from the schema and configured strategy.
// opts are applied last.
func (a *App) Resolver(opts ...resolve.Option) (*resolve.Resolver, error) {
	sc, err := a.Schema()
	if err != nil {
		return nil, err
	}
	strategy, err := cluster.ParseStrategy(a.config.ClusterStrategy)
	if err != nil {
		return nil, err
	}
	base := []resolve.Option{
		resolve.WithSchema(sc),
		resolve.WithClusterStrategy(strategy),
	}
	return resolve.New(append(base, opts...)...)
}

// Ledger opens the run journal once. It returns nil when the ledger path
// is empty.
func (a *App) Ledger(ctx context.Context) (*ledger.Ledger, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger != nil || a.config.Ledger == "" {
		return a.ledger, nil
	}
	l, err := ledger.Open(ctx, a.config.Path(a.config.Ledger))
	if err != nil {
		return nil, err
	}
	a.ledger = l
	return l, nil
}

// Shutdown releases resources opened during the run.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger == nil {
		return nil
	}
	err := a.ledger.Close()
	a.ledger = nil
	return err
}

// reset drops collaborators built from a previous config.
func (a *App) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.schema = nil
	a.store = nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.fixedLogger = true
		return nil
	}
}

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.stdout = w
		return nil
	}
}

// WithStdin sets the reader used for "-" inputs.
func WithStdin(r io.Reader) Option {
	return func(a *App) error {
		a.stdin = r
		return nil
	}
}
