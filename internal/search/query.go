package search

import (
	"regexp"
	"strconv"
	"strings"
)

// phraseRegex captures the body of every well-formed "..." pair. Bodies are
// at least one character; "" is left in the word stream.
var phraseRegex = regexp.MustCompile(`"([^"]+)"`)

// Terms is a parsed query. Both lists are lowercased.
type Terms struct {
	// Phrases are quoted substrings in order of appearance. At least one
	// must occur in a message.
	Phrases []string
	// Words are the remaining whitespace-separated tokens. All of them
	// must occur in a message.
	Words []string
}

// Parse splits a raw query into quoted phrases and bare words. Quotes
// cannot be escaped; an unmatched quote stays part of a word.
func Parse(query string) Terms {
	var terms Terms

	for _, m := range phraseRegex.FindAllStringSubmatch(query, -1) {
		terms.Phrases = append(terms.Phrases, strings.ToLower(m[1]))
	}

	rest := strings.TrimSpace(phraseRegex.ReplaceAllString(query, ""))
	if rest != "" {
		terms.Words = strings.Fields(strings.ToLower(rest))
	}

	return terms
}

// IsEmpty reports whether there is nothing to search for.
func (t Terms) IsEmpty() bool {
	return len(t.Phrases) == 0 && len(t.Words) == 0
}

// String renders the terms back into query syntax.
func (t Terms) String() string {
	parts := make([]string, 0, len(t.Phrases)+len(t.Words))
	for _, p := range t.Phrases {
		parts = append(parts, strconv.Quote(p))
	}
	parts = append(parts, t.Words...)
	return strings.Join(parts, " ")
}
