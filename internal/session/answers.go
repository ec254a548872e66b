package session

import (
	"sort"

	"github.com/hpungsan/clerk/internal/placeholder"
)

// AnswerSet maps placeholder keys to answer text. Keys are normalized
// (trimmed, lowercased, inner whitespace collapsed), so lookups by label are
// case-insensitive.
type AnswerSet struct {
	values map[string]string
}

// NewAnswerSet builds an answer set from raw label/value pairs. Blank keys are
// dropped; when two labels normalize to the same key the lexically last raw
// label wins so the result does not depend on map iteration order.
func NewAnswerSet(raw map[string]string) AnswerSet {
	labels := make([]string, 0, len(raw))
	for k := range raw {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	values := make(map[string]string, len(raw))
	for _, label := range labels {
		key := placeholder.NormalizeKey(label)
		if key == "" {
			continue
		}
		values[key] = raw[label]
	}
	return AnswerSet{values: values}
}

// Lookup returns the answer for a placeholder label.
func (a AnswerSet) Lookup(label string) (string, bool) {
	v, ok := a.values[placeholder.NormalizeKey(label)]
	return v, ok
}

// Len returns the number of distinct keys.
func (a AnswerSet) Len() int {
	return len(a.values)
}

// Keys returns the normalized keys in sorted order.
func (a AnswerSet) Keys() []string {
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
