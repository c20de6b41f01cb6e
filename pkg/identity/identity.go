// Package identity extracts the cross-source join keys of a record.
//
// An identity field (a platform profile link such as spotify or youtube)
// denotes the same real-world artist wherever its value appears. Values are
// scoped to their field: a spotify link only ever matches another spotify
// link.
package identity

import (
	"strings"

	"github.com/romiem/ai-bands/pkg/records"
)

// Key is one (field, value) identity pair.
type Key struct {
	Field string
	Value string
}

// String renders the key as field=value.
func (k Key) String() string {
	return k.Field + "=" + k.Value
}

// Normalizer canonicalizes a value before it is compared.
type Normalizer func(field, value string) string

// Verbatim compares values exactly as stored.
func Verbatim(_, value string) string {
	return value
}

// TrimTrailingSlash treats "https://x/a/" and "https://x/a" as the same link.
func TrimTrailingSlash(_, value string) string {
	return strings.TrimRight(value, "/")
}

// Set is an insertion-ordered set of keys.
type Set struct {
	keys  []Key
	index map[Key]struct{}
}

// NewSet builds a set from keys, dropping duplicates.
func NewSet(keys ...Key) Set {
	s := Set{}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts k, reporting whether it was new.
func (s *Set) Add(k Key) bool {
	if s.index == nil {
		s.index = make(map[Key]struct{})
	}
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.keys = append(s.keys, k)
	return true
}

// Contains reports whether k is in the set.
func (s Set) Contains(k Key) bool {
	_, ok := s.index[k]
	return ok
}

// Keys returns the keys in insertion order.
func (s Set) Keys() []Key {
	return s.keys
}

// Len returns the number of keys.
func (s Set) Len() int {
	return len(s.keys)
}

// Intersects reports whether s and other share at least one key.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for _, k := range small.keys {
		if large.Contains(k) {
			return true
		}
	}
	return false
}

// Union adds every key of other to s.
func (s *Set) Union(other Set) {
	for _, k := range other.keys {
		s.Add(k)
	}
}

// Extract returns the non-empty identity values of rec in declared field
// order. Only string values qualify.
func Extract(rec records.Record, fields []string) Set {
	return ExtractWith(rec, fields, Verbatim)
}

// ExtractWith is Extract with a value normalizer.
func ExtractWith(rec records.Record, fields []string, normalize Normalizer) Set {
	if normalize == nil {
		normalize = Verbatim
	}
	s := Set{}
	for _, field := range fields {
		raw, ok := rec[field].(string)
		if !ok || records.IsEmpty(raw) {
			continue
		}
		value := normalize(field, strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		s.Add(Key{Field: field, Value: value})
	}
	return s
}
