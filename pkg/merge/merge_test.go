package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/pkg/records"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     records.Record
		incoming records.Record
		want     records.Record
		changed  bool
	}{
		{
			name:     "fills empty field",
			base:     records.Record{"id": "x", "spotify": "s1", "comments": nil},
			incoming: records.Record{"spotify": "s1", "comments": "new info"},
			want:     records.Record{"id": "x", "spotify": "s1", "comments": "new info"},
			changed:  true,
		},
		{
			name:     "base wins on populated field",
			base:     records.Record{"spotify": "s1", "comments": "already present"},
			incoming: records.Record{"spotify": "s1", "comments": "other"},
			want:     records.Record{"spotify": "s1", "comments": "already present"},
			changed:  false,
		},
		{
			name:     "blank string counts as empty",
			base:     records.Record{"youtube": ""},
			incoming: records.Record{"youtube": "y1"},
			want:     records.Record{"youtube": "y1"},
			changed:  true,
		},
		{
			name:     "empty incoming never clears base",
			base:     records.Record{"youtube": "y1"},
			incoming: records.Record{"youtube": nil, "apple": ""},
			want:     records.Record{"youtube": "y1"},
			changed:  false,
		},
		{
			name:     "identity field absent on base is filled",
			base:     records.Record{"spotify": "s1"},
			incoming: records.Record{"spotify": "s1", "youtube": "y1"},
			want:     records.Record{"spotify": "s1", "youtube": "y1"},
			changed:  true,
		},
		{
			name:     "tags union in first-seen order",
			base:     records.Record{"tags": []string{"b", "a"}},
			incoming: records.Record{"tags": []any{"a", "c"}},
			want:     records.Record{"tags": []string{"b", "a", "c"}},
			changed:  true,
		},
		{
			name:     "tags subset is not a change",
			base:     records.Record{"tags": []string{"a", "b"}},
			incoming: records.Record{"tags": []string{"b"}},
			want:     records.Record{"tags": []string{"a", "b"}},
			changed:  false,
		},
		{
			name:     "duplicate base tags collapse without a change",
			base:     records.Record{"tags": []string{"a", "a"}},
			incoming: records.Record{"tags": []string{"a"}},
			want:     records.Record{"tags": []string{"a"}},
			changed:  false,
		},
		{
			name:     "list field filled when empty",
			base:     records.Record{"urls": []string{}},
			incoming: records.Record{"urls": []any{"https://a"}},
			want:     records.Record{"urls": []string{"https://a"}},
			changed:  true,
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseCopy := tt.base.Clone()
			incomingCopy := tt.incoming.Clone()

			got, changed := p.Merge(tt.base, tt.incoming)

			assert.Equal(t, tt.changed, changed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("merged record mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, baseCopy, tt.base.Clone(), "base not mutated")
			assert.Equal(t, incomingCopy, tt.incoming.Clone(), "incoming not mutated")
		})
	}
}

func TestMergeNeverReplacesPopulatedValues(t *testing.T) {
	base := records.Record{"name": "A", "spotify": "s1", "apple": "", "urls": []string{"u"}}
	incoming := records.Record{"name": "B", "spotify": "s2", "apple": "a2", "urls": []string{"v"}}

	got, _ := New().Merge(base, incoming)
	for field, value := range base {
		if !records.IsEmpty(value) {
			assert.Equal(t, value, got[field], field)
		}
	}
	assert.Equal(t, "a2", got["apple"])
}

func TestMergeIsIdempotent(t *testing.T) {
	p := New()
	base := records.Record{"name": "A", "tags": []string{"x"}}
	incoming := records.Record{"youtube": "y1", "tags": []string{"y"}}

	once, changed := p.Merge(base, incoming)
	require.True(t, changed)

	twice, changed := p.Merge(once, incoming)
	assert.False(t, changed)
	assert.Equal(t, once, twice)
}

func TestMergeWithChanges(t *testing.T) {
	_, changes := New().MergeWithChanges(
		records.Record{"tags": []string{"a"}},
		records.Record{"youtube": "y1", "comments": "c", "tags": []string{"b"}},
	)
	require.Len(t, changes, 3)
	assert.Equal(t, "comments", changes[0].Field)
	assert.Equal(t, ChangeTypeUnion, changes[1].Type)
	assert.Equal(t, []string{"a", "b"}, changes[1].New)
	assert.Equal(t, "youtube: <empty> -> y1", changes[2].String())
}

func TestCustomTagFields(t *testing.T) {
	p := New(WithTagFields("tags", "genres"))
	got, changed := p.Merge(
		records.Record{"genres": []string{"pop"}},
		records.Record{"genres": []string{"rock"}},
	)
	assert.True(t, changed)
	assert.Equal(t, []string{"pop", "rock"}, got["genres"])
	assert.True(t, p.IsTagField("genres"))
}

func TestFold(t *testing.T) {
	p := New()
	assert.Nil(t, p.Fold(nil))

	got := p.Fold([]records.Record{
		{"name": "X", "spotify": "s1", "tags": []string{"external"}},
		{"name": "Y", "spotify": "s1", "youtube": "y1", "tags": []string{"external", "feed-b"}},
	})
	assert.Equal(t, records.Record{
		"name":    "X",
		"spotify": "s1",
		"youtube": "y1",
		"tags":    []string{"external", "feed-b"},
	}, got)
}
