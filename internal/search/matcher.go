package search

import (
	"strings"

	"github.com/pders01/chatlens/internal/chat"
)

// Match reports whether msg satisfies terms. A nil message or one without
// usable text never matches. The error is the text coercion failure, if any.
//
// Phrases combine with OR and words with AND; the two conditions must both
// hold. An empty list is always satisfied.
func Match(msg *chat.Message, terms Terms) (bool, error) {
	if msg == nil {
		return false, nil
	}
	text, err := msg.Text.String()
	if err != nil {
		return false, err
	}
	if text == "" {
		return false, nil
	}
	return terms.matchLower(strings.ToLower(text)), nil
}

// Matches is Match with coercion errors treated as "no match".
func Matches(msg *chat.Message, terms Terms) bool {
	ok, err := Match(msg, terms)
	return err == nil && ok
}

func (t Terms) matchLower(lower string) bool {
	if len(t.Phrases) > 0 {
		found := false
		for _, phrase := range t.Phrases {
			if strings.Contains(lower, phrase) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, word := range t.Words {
		if !strings.Contains(lower, word) {
			return false
		}
	}
	return true
}
