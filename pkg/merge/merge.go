// Package merge implements the field-level policy used to combine two
// records describing the same artist.
//
// Base always wins on a populated field: incoming values only fill fields
// that base leaves empty. Tag-set fields are the exception and are unioned.
package merge

import (
	"fmt"
	"slices"
	"sort"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/records"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeFill means an empty base field adopted the incoming value.
	ChangeTypeFill ChangeType = "fill"
	// ChangeTypeUnion means a tag-set field gained tags.
	ChangeTypeUnion ChangeType = "union"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Field string
	Old   any
	New   any
	Type  ChangeType
}

// String renders the change for logs and reports.
func (c FieldChange) String() string {
	return fmt.Sprintf("%s: %v -> %v", c.Field, display(c.Old), display(c.New))
}

func display(v any) any {
	if records.IsEmpty(v) {
		return "<empty>"
	}
	return v
}

// Policy merges records field by field.
type Policy struct {
	tagFields []string
}

// Option configures a Policy.
type Option func(*Policy)

// WithTagFields declares which fields are tag sets.
func WithTagFields(fields ...string) Option {
	return func(p *Policy) {
		p.tagFields = fields
	}
}

// New creates a Policy. The tags field is the only tag set by default.
func New(opts ...Option) *Policy {
	p := &Policy{tagFields: []string{constants.FieldTags}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsTagField reports whether field is merged as a tag set.
func (p *Policy) IsTagField(field string) bool {
	return slices.Contains(p.tagFields, field)
}

// Merge combines incoming into base and reports whether anything changed.
// Neither input is modified.
func (p *Policy) Merge(base, incoming records.Record) (records.Record, bool) {
	merged, changes := p.MergeWithChanges(base, incoming)
	return merged, len(changes) > 0
}

// MergeWithChanges is Merge returning the individual field changes, in
// field-name order.
func (p *Policy) MergeWithChanges(base, incoming records.Record) (records.Record, []FieldChange) {
	merged := base.Clone()
	if merged == nil {
		merged = records.Record{}
	}
	var changes []FieldChange

	fields := make([]string, 0, len(incoming))
	for field := range incoming {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if p.IsTagField(field) {
			if change, ok := p.unionField(merged, base, incoming, field); ok {
				changes = append(changes, change)
			}
			continue
		}

		value := incoming[field]
		if records.IsEmpty(base[field]) && !records.IsEmpty(value) {
			merged[field] = records.Normalize(records.Record{field: value})[field]
			changes = append(changes, FieldChange{
				Field: field,
				Old:   base[field],
				New:   merged[field],
				Type:  ChangeTypeFill,
			})
		}
	}

	return merged, changes
}

// unionField merges one tag-set field into merged.
func (p *Policy) unionField(merged, base, incoming records.Record, field string) (FieldChange, bool) {
	baseTags := base.Strings(field)
	union := records.UnionTags(baseTags, incoming.Strings(field))

	if _, present := base[field]; present || len(union) > 0 {
		merged[field] = union
	}

	if len(union) <= len(records.UnionTags(baseTags)) {
		return FieldChange{}, false
	}
	return FieldChange{
		Field: field,
		Old:   slices.Clone(baseTags),
		New:   slices.Clone(union),
		Type:  ChangeTypeUnion,
	}, true
}

// Fold left-folds Merge over recs in order. It returns nil for an empty list.
func (p *Policy) Fold(recs []records.Record) records.Record {
	if len(recs) == 0 {
		return nil
	}
	acc := recs[0].Clone()
	for _, rec := range recs[1:] {
		acc, _ = p.Merge(acc, rec)
	}
	return acc
}
