package application

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/corpus"
	"github.com/romiem/ai-bands/pkg/resolve"
	"github.com/romiem/ai-bands/pkg/schema"
)

// Mock provides a mock implementation of Application for testing.
// A nil function field yields a default value.
type Mock struct {
	SchemaFunc   func() (*schema.Schema, error)
	StoreFunc    func() (*corpus.Store, error)
	ResolverFunc func(...resolve.Option) (*resolve.Resolver, error)
	LedgerFunc   func(context.Context) (*ledger.Ledger, error)
	LoggerFunc   func() *zerolog.Logger
	Format       string
	Dry          bool
	Input        io.Reader
}

// Schema returns the mock schema or the built-in one.
func (m *Mock) Schema() (*schema.Schema, error) {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return schema.Default(), nil
}

// Store returns the mock store or nil.
func (m *Mock) Store() (*corpus.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc()
	}
	return nil, nil
}

// Resolver returns the mock resolver or a default one.
func (m *Mock) Resolver(opts ...resolve.Option) (*resolve.Resolver, error) {
	if m.ResolverFunc != nil {
		return m.ResolverFunc(opts...)
	}
	return resolve.New(opts...)
}

// Ledger returns the mock ledger or nil (journaling disabled).
func (m *Mock) Ledger(ctx context.Context) (*ledger.Ledger, error) {
	if m.LedgerFunc != nil {
		return m.LedgerFunc(ctx)
	}
	return nil, nil
}

// Logger returns the mock logger or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// DryRun returns Dry.
func (m *Mock) DryRun() bool {
	return m.Dry
}

// Stdin returns Input or an empty reader.
func (m *Mock) Stdin() io.Reader {
	if m.Input != nil {
		return m.Input
	}
	return strings.NewReader("")
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

var _ Application = (*Mock)(nil)
