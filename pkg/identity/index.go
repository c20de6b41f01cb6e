package identity

import (
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
)

// Index maps identity keys to the position of the corpus entry owning them.
// The first entry registered for a key keeps it; later claims are recorded
// as collisions.
type Index struct {
	fields     []string
	normalize  Normalizer
	owners     map[Key]int
	collisions []*errors.IdentityCollisionError
}

// NewIndex creates an empty index over the declared identity fields.
func NewIndex(fields []string, normalize Normalizer) *Index {
	if normalize == nil {
		normalize = Verbatim
	}
	return &Index{
		fields:    fields,
		normalize: normalize,
		owners:    make(map[Key]int),
	}
}

// Fields returns the declared identity fields in match order.
func (idx *Index) Fields() []string {
	return idx.fields
}

// Keys extracts the identity keys of rec with the index normalizer.
func (idx *Index) Keys(rec records.Record) Set {
	return ExtractWith(rec, idx.fields, idx.normalize)
}

// Register claims every identity key of rec for the entry at pos. ownerLabel
// resolves the label of an existing owner for collision reports. It returns
// the collisions found for this record.
func (idx *Index) Register(pos int, rec records.Record, ownerLabel func(int) string) []*errors.IdentityCollisionError {
	var found []*errors.IdentityCollisionError
	for _, k := range idx.Keys(rec).Keys() {
		owner, taken := idx.owners[k]
		if !taken {
			idx.owners[k] = pos
			continue
		}
		if owner == pos {
			continue
		}
		c := &errors.IdentityCollisionError{
			Field:     k.Field,
			Value:     k.Value,
			Owner:     ownerLabel(owner),
			Duplicate: rec.Label(),
		}
		found = append(found, c)
	}
	idx.collisions = append(idx.collisions, found...)
	return found
}

// Lookup returns the owner position of k.
func (idx *Index) Lookup(k Key) (int, bool) {
	pos, ok := idx.owners[k]
	return pos, ok
}

// Hit is one identity key of a looked-up record that resolved to an owner.
type Hit struct {
	Key   Key
	Owner int
}

// Hits returns every hit for rec in declared field order.
func (idx *Index) Hits(rec records.Record) []Hit {
	var hits []Hit
	for _, k := range idx.Keys(rec).Keys() {
		if pos, ok := idx.owners[k]; ok {
			hits = append(hits, Hit{Key: k, Owner: pos})
		}
	}
	return hits
}

// Collisions returns every collision recorded so far.
func (idx *Index) Collisions() []*errors.IdentityCollisionError {
	return idx.collisions
}

// Len returns the number of registered keys.
func (idx *Index) Len() int {
	return len(idx.owners)
}
