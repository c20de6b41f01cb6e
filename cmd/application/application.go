// Package application provides the application interface for aibands commands.
//
// Commands accept an Application rather than the concrete App so they can be
// tested against a Mock:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            store, err := app.Store()
//	            if err != nil {
//	                return err
//	            }
//	            // ... use store
//	            return nil
//	        },
//	    }
//	}
package application

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/corpus"
	"github.com/romiem/ai-bands/pkg/resolve"
	"github.com/romiem/ai-bands/pkg/schema"
)

// Application provides what commands need from the running app.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Schema returns the artist schema, loaded once.
	Schema() (*schema.Schema, error)

	// Store returns the corpus store for the configured root.
	Store() (*corpus.Store, error)

	// Resolver builds a resolver from the schema and configured cluster
	// strategy. opts are applied last.
	Resolver(opts ...resolve.Option) (*resolve.Resolver, error)

	// Ledger returns the run journal, or nil when journaling is disabled.
	Ledger(ctx context.Context) (*ledger.Ledger, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// DryRun reports whether writes are disabled.
	DryRun() bool

	// Stdin is where "-" inputs are read from.
	Stdin() io.Reader

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
