package resolve

import (
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/identity"
	"github.com/romiem/ai-bands/pkg/records"
)

// Index is the corpus matcher: the corpus entries plus the identity index
// over them. Created and merged records are fed back so later records of
// the same run see them.
type Index struct {
	keys    *identity.Index
	entries []records.Entry
}

// Match is the result of matching one record against the corpus.
type Match struct {
	Found bool
	Pos   int
	Entry records.Entry
	// Key is the identity key the match was decided on.
	Key identity.Key
	// Ambiguities names corpus records that other identity fields of the
	// record point at.
	Ambiguities []*errors.AmbiguousMatchError
}

// NewIndex indexes corpus in order. Identity values claimed by more than one
// entry stay with the first; the rest are recorded as collisions.
func NewIndex(corpus []records.Entry, fields []string, normalize identity.Normalizer) *Index {
	idx := &Index{
		keys:    identity.NewIndex(fields, normalize),
		entries: make([]records.Entry, 0, len(corpus)),
	}
	for _, e := range corpus {
		idx.Add(e)
	}
	return idx
}

// Add appends an entry and claims its identity keys.
func (idx *Index) Add(e records.Entry) (int, []*errors.IdentityCollisionError) {
	pos := len(idx.entries)
	idx.entries = append(idx.entries, e)
	return pos, idx.keys.Register(pos, e.Record, idx.label)
}

// Replace swaps the record stored at pos and claims any identity keys it
// gained.
func (idx *Index) Replace(pos int, rec records.Record) []*errors.IdentityCollisionError {
	idx.entries[pos].Record = rec
	return idx.keys.Register(pos, rec, idx.label)
}

// Match looks rec up field by field in declared order. The first hit
// decides.
func (idx *Index) Match(rec records.Record) Match {
	hits := idx.keys.Hits(rec)
	if len(hits) == 0 {
		return Match{}
	}

	first := hits[0]
	m := Match{
		Found: true,
		Pos:   first.Owner,
		Entry: idx.entries[first.Owner],
		Key:   first.Key,
	}

	reported := map[int]bool{first.Owner: true}
	for _, hit := range hits[1:] {
		if reported[hit.Owner] {
			continue
		}
		reported[hit.Owner] = true
		m.Ambiguities = append(m.Ambiguities, &errors.AmbiguousMatchError{
			Chosen:      idx.label(first.Owner),
			ChosenField: first.Key.Field,
			Other:       idx.label(hit.Owner),
			OtherField:  hit.Key.Field,
		})
	}
	return m
}

// Entry returns the entry at pos.
func (idx *Index) Entry(pos int) records.Entry {
	return idx.entries[pos]
}

// Collisions returns every identity collision seen so far.
func (idx *Index) Collisions() []*errors.IdentityCollisionError {
	return idx.keys.Collisions()
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func (idx *Index) label(pos int) string {
	e := idx.entries[pos]
	if id := e.Record.ID(); id != "" {
		return id
	}
	if e.Handle != "" {
		return e.Handle
	}
	return e.Record.Label()
}
