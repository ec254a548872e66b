// Package placeholder implements the bracket micro-grammar used by templates.
//
// A placeholder is "[" followed by one or more characters other than "]",
// followed by "]". There is no escaping and no nesting: "[a [b]" is a single
// placeholder whose label is "a [b".
package placeholder

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches one placeholder token. Group 1 is the label.
var tokenPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Find returns every placeholder label in text, in order, with repeats.
func Find(text string) []string {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, m[1])
	}
	return labels
}

// Unique returns the distinct labels of text in first-seen order.
func Unique(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, label := range Find(text) {
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}

// Token renders a label back into its literal token form.
func Token(label string) string {
	return "[" + label + "]"
}

// NormalizeKey normalizes a label or answer key:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Lookup resolves a label to a value.
type Lookup interface {
	Lookup(label string) (string, bool)
}

// Resolve plans the substitution of every placeholder in text. It returns the
// literal token -> value replacements for labels the lookup knows, and the
// distinct labels it does not know, in first-seen order.
func Resolve(text string, answers Lookup) (map[string]string, []string) {
	var (
		replacements map[string]string
		unresolved   []string
	)
	for _, label := range Unique(text) {
		if value, ok := answers.Lookup(label); ok {
			if replacements == nil {
				replacements = make(map[string]string)
			}
			replacements[Token(label)] = value
			continue
		}
		unresolved = append(unresolved, label)
	}
	return replacements, unresolved
}

// NewReplacer builds a strings.Replacer from token -> value pairs. Longer
// tokens are listed first so overlapping tokens resolve deterministically.
func NewReplacer(replacements map[string]string) *strings.Replacer {
	tokens := make([]string, 0, len(replacements))
	for tok := range replacements {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	pairs := make([]string, 0, len(tokens)*2)
	for _, tok := range tokens {
		pairs = append(pairs, tok, replacements[tok])
	}
	return strings.NewReplacer(pairs...)
}
