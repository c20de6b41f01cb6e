// Package records defines the artist record shape shared by the engine,
// the corpus store and the feed decoders.
//
// A Record is a flat field → value mapping. Values are nil, string, or
// []string (tag sets and url lists). Decoders hand over []any for JSON
// arrays; Normalize folds those into []string so the rest of the engine
// only has three shapes to handle.
package records

import (
	"slices"
	"strings"

	"github.com/romiem/ai-bands/pkg/constants"
)

// Record is one artist entry.
type Record map[string]any

// IsEmpty reports whether v counts as unset: nil, a blank string, or an
// empty list.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

// Normalize returns a copy of r with []any lists converted to []string.
// Non-string list items are dropped.
func Normalize(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				strs = append(strs, s)
			}
		}
		return strs
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Normalize(r)
}

// Has reports whether field is present and non-empty.
func (r Record) Has(field string) bool {
	return !IsEmpty(r[field])
}

// String returns the field as a trimmed string, or "" when it is not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return strings.TrimSpace(s)
}

// Strings returns the field as a string list. Scalars yield nil.
func (r Record) Strings(field string) []string {
	switch val := r[field].(type) {
	case []string:
		return val
	case []any:
		return normalizeValue(val).([]string)
	default:
		return nil
	}
}

// ID returns the primary identifier, empty for records not yet in the corpus.
func (r Record) ID() string {
	return r.String(constants.FieldID)
}

// Name returns the artist name.
func (r Record) Name() string {
	return r.String(constants.FieldName)
}

// Tags returns the tag set.
func (r Record) Tags() []string {
	return r.Strings(constants.FieldTags)
}

// SetTags replaces the tag set.
func (r Record) SetTags(tags []string) {
	r[constants.FieldTags] = tags
}

// HasTag reports whether the tag set contains tag.
func (r Record) HasTag(tag string) bool {
	return slices.Contains(r.Tags(), tag)
}

// HasProvenance reports whether the record carries any provenance tag.
func (r Record) HasProvenance() bool {
	return slices.ContainsFunc(r.Tags(), constants.IsProvenanceTag)
}

// Label is a short human label for logs: id, then name, then "<unnamed>".
func (r Record) Label() string {
	if id := r.ID(); id != "" {
		return id
	}
	if name := r.Name(); name != "" {
		return name
	}
	return "<unnamed>"
}
