package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pders01/chatlens/internal/debuglog"
)

// SpanKind tells which kind of term produced a highlight.
type SpanKind int

const (
	SpanPhrase SpanKind = iota
	SpanWord
)

// Span is an accepted highlight over byte offsets [Start, End) of the
// original, unescaped text.
type Span struct {
	Start int
	End   int
	Kind  SpanKind
}

func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Segment is a run of unescaped text, highlighted or not.
type Segment struct {
	Text      string
	Highlight bool
	Kind      SpanKind
}

// Fragment is text split into plain and highlighted segments.
type Fragment []Segment

const (
	highlightOpen  = `<span class="highlight">`
	highlightClose = `</span>`
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes & < > " and ' for safe embedding in markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Spans collects non-overlapping highlight spans for terms in text. Phrases
// go first, longest first, then words in the order given. A candidate that
// overlaps an already accepted span is dropped. The result is sorted by
// Start.
func Spans(text string, terms Terms) []Span {
	if text == "" || terms.IsEmpty() {
		return nil
	}

	var accepted []Span
	for _, t := range orderedTerms(terms) {
		re, err := termPattern(t.text)
		if err != nil {
			debuglog.Warnf("Skipping highlight term %q: %v", t.text, err)
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			candidate := Span{Start: loc[0], End: loc[1], Kind: t.kind}
			if candidate.Start == candidate.End {
				continue
			}
			if !overlapsAny(accepted, candidate) {
				accepted = append(accepted, candidate)
			}
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

type orderedTerm struct {
	text string
	kind SpanKind
}

// orderedTerms returns phrases sorted longest first (stable for ties) and
// then words in their given order.
func orderedTerms(terms Terms) []orderedTerm {
	phrases := append([]string(nil), terms.Phrases...)
	sort.SliceStable(phrases, func(i, j int) bool {
		return utf8.RuneCountInString(phrases[i]) > utf8.RuneCountInString(phrases[j])
	})

	out := make([]orderedTerm, 0, len(phrases)+len(terms.Words))
	for _, p := range phrases {
		if p != "" {
			out = append(out, orderedTerm{text: p, kind: SpanPhrase})
		}
	}
	for _, w := range terms.Words {
		if w != "" {
			out = append(out, orderedTerm{text: w, kind: SpanWord})
		}
	}
	return out
}

// termPattern builds a case-insensitive literal pattern for term.
func termPattern(term string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + regexp.QuoteMeta(term))
}

func overlapsAny(accepted []Span, s Span) bool {
	for _, a := range accepted {
		if a.overlaps(s) {
			return true
		}
	}
	return false
}

// Mark splits text into segments around the spans for terms. Empty text
// gives an empty fragment; no terms give a single plain segment.
func Mark(text string, terms Terms) Fragment {
	if text == "" {
		return nil
	}
	return fromSpans(text, Spans(text, terms))
}

func fromSpans(text string, spans []Span) Fragment {
	frag := make(Fragment, 0, 2*len(spans)+1)
	pos := 0
	for _, s := range spans {
		if s.Start > pos {
			frag = append(frag, Segment{Text: text[pos:s.Start]})
		}
		frag = append(frag, Segment{Text: text[s.Start:s.End], Highlight: true, Kind: s.Kind})
		pos = s.End
	}
	if pos < len(text) {
		frag = append(frag, Segment{Text: text[pos:]})
	}
	return frag
}

// Highlight returns text escaped for HTML with every accepted span wrapped
// in <span class="highlight">.
func Highlight(text string, terms Terms) string {
	return Mark(text, terms).HTML()
}

// HTML renders the fragment as escaped markup.
func (f Fragment) HTML() string {
	var sb strings.Builder
	for _, seg := range f {
		if seg.Highlight {
			sb.WriteString(highlightOpen)
			sb.WriteString(EscapeHTML(seg.Text))
			sb.WriteString(highlightClose)
			continue
		}
		sb.WriteString(EscapeHTML(seg.Text))
	}
	return sb.String()
}

// Plain returns the fragment's text without markup.
func (f Fragment) Plain() string {
	var sb strings.Builder
	for _, seg := range f {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// Highlights counts highlighted segments.
func (f Fragment) Highlights() int {
	n := 0
	for _, seg := range f {
		if seg.Highlight {
			n++
		}
	}
	return n
}

// Excerpt trims the fragment so the first highlight is visible in a card.
// When the first highlight starts more than threshold runes in and the text
// is longer than minLen runes, the result starts lead runes before it with
// a leading "...". Otherwise f is returned unchanged.
func (f Fragment) Excerpt(lead, threshold, minLen int) Fragment {
	first := -1
	total := 0
	for _, seg := range f {
		if seg.Highlight && first < 0 {
			first = total
		}
		total += utf8.RuneCountInString(seg.Text)
	}
	if first <= threshold || total <= minLen {
		return f
	}

	cut := first - lead
	if cut < 0 {
		cut = 0
	}

	out := Fragment{{Text: "..."}}
	pos := 0
	for _, seg := range f {
		n := utf8.RuneCountInString(seg.Text)
		switch {
		case pos+n <= cut:
		case pos >= cut:
			out = append(out, seg)
		default:
			seg.Text = string([]rune(seg.Text)[cut-pos:])
			out = append(out, seg)
		}
		pos += n
	}
	return out
}
