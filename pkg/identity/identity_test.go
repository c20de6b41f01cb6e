package identity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/pkg/records"
)

var fields = []string{"spotify", "apple", "youtube"}

func TestExtract(t *testing.T) {
	rec := records.Record{
		"name":    "X",
		"youtube": "y1",
		"apple":   "  ",
		"spotify": "s1",
		"tiktok":  "t1",
	}

	got := Extract(rec, fields)
	assert.Equal(t, []Key{{"spotify", "s1"}, {"youtube", "y1"}}, got.Keys(), "declared order, blanks and undeclared fields skipped")

	t.Run("non-string values do not qualify", func(t *testing.T) {
		got := Extract(records.Record{"spotify": []string{"s1"}, "apple": nil}, fields)
		assert.Zero(t, got.Len())
	})

	t.Run("normalizer", func(t *testing.T) {
		got := ExtractWith(records.Record{"spotify": "https://x/a/"}, fields, TrimTrailingSlash)
		assert.True(t, got.Contains(Key{"spotify", "https://x/a"}))
	})
}

func TestSetOperations(t *testing.T) {
	a := NewSet(Key{"spotify", "s1"}, Key{"spotify", "s1"})
	assert.Equal(t, 1, a.Len())

	b := NewSet(Key{"youtube", "s1"})
	assert.False(t, a.Intersects(b), "same value under different fields is not shared")

	a.Union(NewSet(Key{"youtube", "s1"}, Key{"apple", "a1"}))
	assert.True(t, a.Intersects(b))
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "spotify=s1", a.Keys()[0].String())
}

func TestIndexRegisterFirstWins(t *testing.T) {
	corpus := []records.Record{
		{"id": "first", "spotify": "s1"},
		{"id": "second", "spotify": "s1", "youtube": "y2"},
	}
	label := func(pos int) string { return corpus[pos].Label() }

	idx := NewIndex(fields, nil)
	assert.Empty(t, idx.Register(0, corpus[0], label))
	collisions := idx.Register(1, corpus[1], label)

	require.Len(t, collisions, 1)
	assert.Equal(t, "first", collisions[0].Owner)
	assert.Equal(t, "second", collisions[0].Duplicate)
	assert.Equal(t, "spotify", collisions[0].Field)
	assert.Len(t, idx.Collisions(), 1)

	pos, ok := idx.Lookup(Key{"spotify", "s1"})
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	pos, ok = idx.Lookup(Key{"youtube", "y2"})
	require.True(t, ok)
	assert.Equal(t, 1, pos, "non-colliding keys of the duplicate still register")
	assert.Equal(t, 2, idx.Len())
}

func TestIndexReRegisterSameOwner(t *testing.T) {
	idx := NewIndex(fields, nil)
	rec := records.Record{"id": "a", "spotify": "s1"}
	idx.Register(0, rec, func(int) string { return "a" })
	assert.Empty(t, idx.Register(0, rec, func(int) string { return "a" }))
}

func TestIndexHitOrder(t *testing.T) {
	idx := NewIndex(fields, nil)
	label := func(pos int) string { return fmt.Sprint(pos) }
	idx.Register(0, records.Record{"youtube": "y1"}, label)
	idx.Register(1, records.Record{"spotify": "s1"}, label)

	hits := idx.Hits(records.Record{"youtube": "y1", "spotify": "s1"})
	require.Len(t, hits, 2)
	assert.Equal(t, "spotify", hits[0].Key.Field, "spotify is declared first")
	assert.Equal(t, 1, hits[0].Owner)
	assert.Equal(t, 0, hits[1].Owner)
}
