package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/internal/ledger"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
	"github.com/romiem/ai-bands/pkg/resolve"
)

func journal(t *testing.T) *ledger.Ledger {
	t.Helper()
	ctx := context.Background()
	l, err := ledger.Open(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	res := &resolve.Result{
		Created: []resolve.Outcome{{Kind: resolve.KindCreated, Handle: "nova", Sources: []int{0}, Record: records.Record{"name": "Nova"}}},
		Stats:   resolve.Stats{Incoming: 1, Clusters: 1, Created: 1},
	}
	for _, id := range []string{"aaaa1111", "aaaa2222", "bbbb3333"} {
		_, err := l.Record(ctx, ledger.Run{ID: id, StartedAt: utc.Now(), Source: id + ".csv"}, res)
		require.NoError(t, err)
	}
	return l
}

func execute(t *testing.T, app application.Application, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func withLedger(l *ledger.Ledger) *application.Mock {
	return &application.Mock{
		Format:     "json",
		LedgerFunc: func(context.Context) (*ledger.Ledger, error) { return l, nil },
	}
}

func TestHistoryListsRuns(t *testing.T) {
	out, err := execute(t, withLedger(journal(t)), "--limit", "2")
	require.NoError(t, err)

	var runs []ledger.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs), out)
	assert.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].Created)
}

func TestHistoryRunEntries(t *testing.T) {
	l := journal(t)

	tests := []struct {
		name   string
		prefix string
		check  func(t *testing.T, out string, err error)
	}{
		{
			name:   "unique prefix",
			prefix: "bbbb",
			check: func(t *testing.T, out string, err error) {
				require.NoError(t, err)
				var entries []ledger.Entry
				require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
				require.Len(t, entries, 1)
				assert.Equal(t, "nova", entries[0].Handle)
			},
		},
		{
			name:   "ambiguous prefix",
			prefix: "aaaa",
			check: func(t *testing.T, _ string, err error) {
				assert.True(t, errors.IsValidationError(err))
			},
		},
		{
			name:   "unknown prefix",
			prefix: "zzzz",
			check: func(t *testing.T, _ string, err error) {
				assert.True(t, errors.IsNotFound(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, withLedger(l), tt.prefix)
			tt.check(t, out, err)
		})
	}
}

func TestHistoryWithoutLedger(t *testing.T) {
	_, err := execute(t, &application.Mock{Format: "json"})
	var ce *errors.ConfigError
	assert.ErrorAs(t, err, &ce)
}
