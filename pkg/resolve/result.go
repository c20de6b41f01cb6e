package resolve

import (
	"github.com/romiem/ai-bands/pkg/merge"
	"github.com/romiem/ai-bands/pkg/records"
)

// Kind classifies an outcome.
type Kind string

// Outcome kinds.
const (
	KindCreated   Kind = "created"
	KindModified  Kind = "modified"
	KindUnchanged Kind = "unchanged"
	KindRejected  Kind = "rejected"
)

// Outcome is what happened to one cluster of incoming records.
type Outcome struct {
	Kind Kind
	// Record is the record to persist (created, modified), the untouched
	// corpus record (unchanged), or the candidate that failed validation
	// (rejected).
	Record records.Record
	// Handle is the storage handle: the matched entry's handle, or the new
	// id for created records. Empty for rejected new records.
	Handle string
	// Sources are the positions in the incoming batch this outcome covers.
	Sources []int
	Changes []merge.FieldChange
	Errors  []error
}

// Stats counts a run.
type Stats struct {
	Incoming  int
	Clusters  int
	Corpus    int
	Created   int
	Modified  int
	Unchanged int
	Rejected  int
	Warnings  int
}

// Result is the outcome report of one Resolve call. Every incoming position
// appears in exactly one outcome.
type Result struct {
	Created   []Outcome
	Modified  []Outcome
	Unchanged []Outcome
	Rejected  []Outcome
	Warnings  []error
	Stats     Stats
}

// Writes returns the outcomes that need persisting: created first, then
// modified.
func (r *Result) Writes() []Outcome {
	out := make([]Outcome, 0, len(r.Created)+len(r.Modified))
	out = append(out, r.Created...)
	return append(out, r.Modified...)
}

// Entries returns the writes as storage entries, in the order of Writes.
func (r *Result) Entries() []records.Entry {
	writes := r.Writes()
	out := make([]records.Entry, 0, len(writes))
	for _, o := range writes {
		out = append(out, records.Entry{Handle: o.Handle, Record: o.Record})
	}
	return out
}

// Outcomes returns every outcome.
func (r *Result) Outcomes() []Outcome {
	out := r.Writes()
	out = append(out, r.Unchanged...)
	return append(out, r.Rejected...)
}

func (r *Result) finish() {
	r.Stats.Created = len(r.Created)
	r.Stats.Modified = len(r.Modified)
	r.Stats.Unchanged = len(r.Unchanged)
	r.Stats.Rejected = len(r.Rejected)
	r.Stats.Warnings = len(r.Warnings)
}
