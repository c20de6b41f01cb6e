package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
)

const knownArtist = `{
  "id": "known",
  "name": "Known",
  "dateAdded": "2024-01-01",
  "dateUpdated": null,
  "comments": null,
  "spotify": "https://open.spotify.com/artist/abc",
  "tags": [
    "vocals"
  ]
}
`

// newTestApp builds an App over a temporary catalog root.
func newTestApp(t *testing.T, opts ...Option) (*App, *bytes.Buffer, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "known.json"), []byte(knownArtist), 0o644))

	config := &Config{
		Root:            root,
		SrcDir:          constants.DefaultSrcDir,
		DistDir:         constants.DefaultDistDir,
		Schema:          constants.DefaultSchemaFile,
		ClusterStrategy: "unionfind",
		Ledger:          constants.DefaultLedgerFile,
	}
	nop := zerolog.Nop()
	out := &bytes.Buffer{}

	base := []Option{WithConfig(config), WithLogger(&nop), WithOutput(out)}
	app, err := New("1.0.0", "abc123", "2025-01-01", "test", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.Shutdown(context.Background())
	})
	return app, out, root
}

func writeInput(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApp_New(t *testing.T) {
	app, _, root := newTestApp(t)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2025-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.Equal(t, root, app.Config().Root)

	store, err := app.Store()
	require.NoError(t, err)
	again, err := app.Store()
	require.NoError(t, err)
	assert.Same(t, store, again)
	assert.Equal(t, filepath.Join(root, "src"), store.SrcDir())

	sc, err := app.Schema()
	require.NoError(t, err)
	assert.Equal(t, "builtin", sc.Source(), "missing schema file falls back to the built-in schema")
}

func TestApp_ResolverRejectsUnknownStrategy(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.Config().ClusterStrategy = "bogus"

	_, err := app.Resolver()
	assert.True(t, errors.IsValidationError(err))
}

func TestApp_Import(t *testing.T) {
	app, out, root := newTestApp(t)
	feed := writeInput(t, root, "feed.csv", "Artist Name,Artist ID\n"+
		"Known Again,abc\n"+
		"Velvet Sundown,xyz\n"+
		"Velvet Sundown (dup),xyz\n"+
		"Broken,\n")

	err := app.Execute(context.Background(), []string{"import", "--feed", "cennoxx", "-o", "json", feed})
	require.NoError(t, err)

	var summary struct {
		RunID     string `json:"run_id"`
		Incoming  int    `json:"incoming"`
		Skipped   int    `json:"skipped"`
		Created   int    `json:"created"`
		Unchanged int    `json:"unchanged"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Incoming)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Unchanged)

	data, err := os.ReadFile(filepath.Join(root, "src", "velvet-sundown.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spotify": "https://open.spotify.com/artist/xyz"`)
	assert.Contains(t, string(data), `"external"`)

	known, err := os.ReadFile(filepath.Join(root, "src", "known.json"))
	require.NoError(t, err)
	assert.Equal(t, knownArtist, string(known), "unchanged records are not rewritten")

	// The run was journaled.
	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"history", "-o", "json"}))
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0]["id"])

	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"history", "-o", "json", summary.RunID[:8]}))
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	assert.Len(t, entries, 2)
}

func TestApp_ImportDryRun(t *testing.T) {
	app, out, root := newTestApp(t, WithStdin(strings.NewReader(`[{"name": "Dry Artist", "youtube": "https://youtube.com/@dry"}]`)))

	err := app.Execute(context.Background(), []string{"import", "--dry-run", "--input-format", "records", "-o", "yaml", "-"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "dry_run: true")
	assert.Contains(t, out.String(), "created: 1")

	_, err = os.Stat(filepath.Join(root, "src", "dry-artist.json"))
	assert.True(t, os.IsNotExist(err), "dry run must not write")
}

func TestApp_ImportLocked(t *testing.T) {
	app, _, root := newTestApp(t)
	feed := writeInput(t, root, "feed.csv", "artist,id\nA,a1\n")

	store, err := app.Store()
	require.NoError(t, err)
	lock, err := store.Lock()
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	err = app.Execute(context.Background(), []string{"import", "-o", "json", feed})
	assert.ErrorIs(t, err, errors.ErrLocked)
}

func TestApp_ImportUnknownFeed(t *testing.T) {
	app, _, root := newTestApp(t)
	feed := writeInput(t, root, "feed.csv", "artist,id\n")

	err := app.Execute(context.Background(), []string{"import", "--feed", "nope", feed})
	assert.True(t, errors.IsNotFound(err))
}

func TestApp_ValidateAndBuild(t *testing.T) {
	app, out, root := newTestApp(t)

	require.NoError(t, app.Execute(context.Background(), []string{"validate", "-o", "table"}))
	assert.Equal(t, "✓ 1 files valid\n", out.String())

	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"build", "-o", "json"}))
	var result struct {
		Path    string `json:"path"`
		Records int    `json:"records"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, filepath.Join(root, "dist", "ai-bands.json"), result.Path)
	assert.Equal(t, 1, result.Records)

	// An invalid file fails both commands and blocks the build.
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "bad.json"), []byte(`{"id": "bad"}`), 0o644))
	require.NoError(t, os.Remove(result.Path))

	out.Reset()
	err := app.Execute(context.Background(), []string{"validate", "-o", "json"})
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, out.String(), "bad.json")

	out.Reset()
	err = app.Execute(context.Background(), []string{"build", "-o", "table"})
	assert.True(t, errors.IsValidationError(err))
	_, statErr := os.Stat(result.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestApp_Template(t *testing.T) {
	app, out, _ := newTestApp(t)

	require.NoError(t, app.Execute(context.Background(), []string{"template", "--date", "2025-07-04"}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "2025-07-04", rec["dateAdded"])
	assert.Contains(t, rec, "spotify")
	assert.True(t, strings.HasPrefix(out.String(), "{\n  \"id\""))
}

func TestApp_HistoryDisabled(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.Config().Ledger = ""

	err := app.Execute(context.Background(), []string{"history"})
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestApp_Version(t *testing.T) {
	app, out, _ := newTestApp(t)

	require.NoError(t, app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "aibands version 1.0.0")
	assert.Contains(t, out.String(), "commit: abc123")
}
