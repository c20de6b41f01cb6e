package corpus

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
	"github.com/romiem/ai-bands/pkg/schema"
)

func artist(id, name string) records.Record {
	return records.Record{
		"id":        id,
		"name":      name,
		"dateAdded": "2025-05-01",
		"tags":      []string{"vocals"},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestEncode(t *testing.T) {
	rec := records.Record{
		"tags":      []string{"vocals"},
		"comments":  "Rock & <roll>",
		"name":      "A",
		"id":        "a",
		"dateAdded": "2025-05-01",
		"urls":      []string{},
		"zz":        nil,
	}
	data, err := Encode(rec, schema.Default())
	require.NoError(t, err)

	want := `{
  "id": "a",
  "name": "A",
  "dateAdded": "2025-05-01",
  "comments": "Rock & <roll>",
  "urls": [],
  "tags": [
    "vocals"
  ],
  "zz": null
}
`
	assert.Equal(t, want, string(data))
}

func TestApplyAndLoad(t *testing.T) {
	root := t.TempDir()
	store := New(root)
	ctx := context.Background()

	err := store.Apply(ctx, []records.Entry{
		{Handle: "b", Record: artist("b", "B")},
		{Handle: "a", Record: artist("a", "A")},
	})
	require.NoError(t, err)

	writeFile(t, store.SrcDir(), "broken.json", "{not json")
	writeFile(t, store.SrcDir(), "notes.txt", "ignored")

	entries, warnings, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Handle)
	assert.Equal(t, "b", entries[1].Handle)
	assert.Equal(t, []string{"vocals"}, entries[0].Record.Tags())

	require.Len(t, warnings, 1)
	var pe *errors.ParseError
	assert.ErrorAs(t, warnings[0], &pe)
}

func TestLoadMissingDir(t *testing.T) {
	entries, warnings, err := New(t.TempDir(), WithSrcDir("nope")).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, warnings)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	store := New(t.TempDir())
	err := store.Apply(context.Background(), []records.Entry{
		{Handle: "ok", Record: artist("ok", "Ok")},
		{Handle: "../escape", Record: artist("x", "X")},
		{Handle: "never", Record: artist("never", "Never")},
	})

	var se *errors.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Committed)
	assert.Equal(t, 3, se.Total)
	assert.True(t, errors.IsStorageFailure(err))

	_, statErr := os.Stat(store.Path("ok"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(store.Path("never"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteReplaces(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Apply(context.Background(), []records.Entry{{Handle: "a", Record: artist("a", "A")}}))

	updated := artist("a", "A")
	updated["comments"] = "more"
	require.NoError(t, store.Write(records.Entry{Handle: "a", Record: updated}))

	data, err := os.ReadFile(store.Path("a"))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "more", got["comments"])

	leftovers, err := filepath.Glob(filepath.Join(store.SrcDir(), ".*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLock(t *testing.T) {
	store := New(t.TempDir())

	l, err := store.Lock()
	require.NoError(t, err)

	_, err = store.Lock()
	assert.ErrorIs(t, err, errors.ErrLocked)

	require.NoError(t, l.Unlock())

	l2, err := store.Lock()
	require.NoError(t, err)
	assert.NoError(t, l2.Unlock())
}

func TestBuild(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Apply(ctx, []records.Entry{
		{Handle: "zed", Record: artist("zed", "zed")},
		{Handle: "eclair", Record: artist("eclair", "Éclair")},
		{Handle: "alpha", Record: artist("alpha", "alpha")},
		{Handle: "beta", Record: artist("beta", "Beta")},
	}))

	path, report, err := store.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Checked)
	assert.True(t, report.OK())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var combined []map[string]any
	require.NoError(t, json.Unmarshal(data, &combined))

	var names []string
	for _, rec := range combined {
		names = append(names, rec["name"].(string))
	}
	assert.Equal(t, []string{"alpha", "Beta", "Éclair", "zed"}, names)
}

func TestBuildAbortsOnInvalidFiles(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	bad := artist("bad", "")
	require.NoError(t, store.Apply(ctx, []records.Entry{
		{Handle: "good", Record: artist("good", "Good")},
		{Handle: "bad", Record: bad},
	}))
	writeFile(t, store.SrcDir(), "garbled.json", "[")

	path, report, err := store.Build(ctx)
	require.Error(t, err)
	assert.Empty(t, path)
	require.NotNil(t, report)
	assert.Equal(t, 3, report.Checked)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "bad.json", report.Failures[0].File)
	assert.Equal(t, "garbled.json", report.Failures[1].File)

	_, statErr := os.Stat(filepath.Join(store.DistDir(), "ai-bands.json"))
	assert.True(t, os.IsNotExist(statErr))
}
