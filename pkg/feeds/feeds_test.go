package feeds

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/logging"
	"github.com/romiem/ai-bands/pkg/records"
)

func decode(t *testing.T, feed Feed, input string) (*Batch, error) {
	t.Helper()
	return Decode(context.Background(), feed, "test", strings.NewReader(input))
}

func TestDecodeCSV(t *testing.T) {
	feed := Known["cennoxx"]
	input := "Artist Name,Artist ID\n" +
		"Velvet Sundown,abc123\n" +
		"\n" +
		"No Id,\n" +
		"Lonely\n" +
		"\"Quoted, Name\",def456\n"

	batch, err := decode(t, feed, input)
	require.NoError(t, err)

	require.Len(t, batch.Records, 2)
	assert.Equal(t, records.Record{
		"name":    "Velvet Sundown",
		"spotify": "https://open.spotify.com/artist/abc123",
		"tags":    []string{"external", "CennoxX/spotify-ai-blocker"},
	}, batch.Records[0])
	assert.Equal(t, "Quoted, Name", batch.Records[1].Name())

	require.Len(t, batch.Skipped, 2)
	var pe *errors.ParseError
	require.ErrorAs(t, batch.Skipped[0], &pe)
	assert.Equal(t, 4, pe.Line)
	assert.Contains(t, batch.Skipped[1].Error(), "expected 2 columns")
}

func TestDecodeCSVFormatChanged(t *testing.T) {
	for _, input := range []string{"", "name,url\nx,y\n", "artist\n"} {
		_, err := decode(t, Known["cennoxx"], input)
		assert.ErrorIs(t, err, errors.ErrFormatChanged, "input %q", input)
	}
}

func TestDecodeTrashbin(t *testing.T) {
	input := `{
  "artists": {
    "spotify:artist:zzz": {"name": "Last Alphabetically"},
    "spotify:artist:aaa": {},
    "bogus": true
  }
}`
	batch, err := decode(t, Known["eye-wave"], input)
	require.NoError(t, err)

	require.Len(t, batch.Records, 2)
	assert.Equal(t, "https://open.spotify.com/artist/zzz", batch.Records[0]["spotify"])
	assert.Equal(t, "Last Alphabetically", batch.Records[0].Name())
	assert.Equal(t, "https://open.spotify.com/artist/aaa", batch.Records[1]["spotify"])
	assert.NotContains(t, batch.Records[1], "name")
	assert.Equal(t, []string{"external", "eye-wave/spotify-ai-blocklist"}, batch.Records[1].Tags())
	assert.Len(t, batch.Skipped, 1)
}

func TestDecodeTrashbinFormatChanged(t *testing.T) {
	_, err := decode(t, Known["eye-wave"], `{"blocked": ["x"]}`)
	assert.ErrorIs(t, err, errors.ErrFormatChanged)
}

func TestDecodeRecords(t *testing.T) {
	feed := Feed{Name: "manual", Format: FormatRecords, Tag: "manual-list"}

	t.Run("json", func(t *testing.T) {
		batch, err := decode(t, feed, `[
  {"name": "A", "spotify": "https://open.spotify.com/artist/a", "tags": ["vocals"]},
  "not an object",
  {"name": "B", "youtube": 42}
]`)
		require.NoError(t, err)
		require.Len(t, batch.Records, 1)
		assert.Equal(t, []string{"vocals", "external", "manual-list"}, batch.Records[0].Tags())
		assert.Len(t, batch.Skipped, 2)
	})

	t.Run("yaml", func(t *testing.T) {
		batch, err := decode(t, feed, "- name: C\n  urls:\n    - https://c.example\n")
		require.NoError(t, err)
		require.Len(t, batch.Records, 1)
		assert.Equal(t, []string{"https://c.example"}, batch.Records[0]["urls"])
	})

	t.Run("non-string list item", func(t *testing.T) {
		batch, err := decode(t, feed, "- name: D\n  tags: [vocals, 7]\n- name: E\n")
		require.NoError(t, err)
		require.Len(t, batch.Records, 1)
		assert.Equal(t, "E", batch.Records[0].Name())

		require.Len(t, batch.Skipped, 1)
		var pe *errors.ParseError
		require.ErrorAs(t, batch.Skipped[0], &pe)
		assert.Equal(t, 1, pe.Line)
		assert.Equal(t, "field tags item 2 is not a string", pe.Message)
	})

	t.Run("not a list", func(t *testing.T) {
		_, err := decode(t, feed, `{"name": "A"}`)
		assert.ErrorIs(t, err, errors.ErrFormatChanged)
	})
}

func TestDecodeLogsSkipped(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	_, err := Decode(ctx, Known["cennoxx"], "cennoxx.csv", strings.NewReader("artist,id\nbroken,\n"))
	require.NoError(t, err)
	tl.AssertContains(t, "Skipping malformed feed entry")
	tl.AssertContains(t, "cennoxx.csv")
}

func TestParseFormatAndLookup(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatRecords, f)

	_, err = ParseFormat("xml")
	assert.True(t, errors.IsValidationError(err))

	feed, err := Lookup("CennoxX")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, feed.Format)

	_, err = Lookup("unknown")
	assert.True(t, errors.IsNotFound(err))
}
