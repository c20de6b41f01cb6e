package records

import "slices"

// UnionTags merges tag lists keeping first-seen order without duplicates.
// Blank tags are dropped.
func UnionTags(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, tag := range list {
			if IsEmpty(tag) {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// FilterTags keeps the tags for which keep returns true, preserving order.
func FilterTags(tags []string, keep func(string) bool) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if keep(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// EnsureTag appends tag when missing.
func EnsureTag(tags []string, tag string) []string {
	if slices.Contains(tags, tag) {
		return tags
	}
	return append(tags, tag)
}
