package search

import (
	"fmt"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/debuglog"
)

// ExcerptRule positions card text around the first highlight.
type ExcerptRule struct {
	Lead      int
	Threshold int
	MinLength int
}

// DefaultExcerpt starts a card 100 runes before a highlight found past rune
// 150 in texts longer than 300 runes.
var DefaultExcerpt = ExcerptRule{Lead: 100, Threshold: 150, MinLength: 300}

// Rendered is one result prepared for display.
type Rendered struct {
	Message *chat.Message
	// Fragment is the full highlighted text, used by list view.
	Fragment Fragment
	// Excerpt is Fragment trimmed for card view.
	Excerpt Fragment
	// Err is set when the item could not be rendered. The batch goes on.
	Err error
}

// Renderer turns result batches into fragments.
type Renderer struct {
	Excerpt ExcerptRule
}

// RenderBatch renders msgs with the default excerpt rule.
func RenderBatch(msgs []*chat.Message, terms Terms) []Rendered {
	return Renderer{Excerpt: DefaultExcerpt}.Render(msgs, terms)
}

// Render highlights every message. A failing item gets Err set instead of
// aborting the batch.
func (r Renderer) Render(msgs []*chat.Message, terms Terms) []Rendered {
	out := make([]Rendered, 0, len(msgs))
	for i, msg := range msgs {
		out = append(out, r.renderOne(i, msg, terms))
	}
	return out
}

func (r Renderer) renderOne(i int, msg *chat.Message, terms Terms) (res Rendered) {
	res.Message = msg
	defer func() {
		if rec := recover(); rec != nil {
			debuglog.Errorf("Error rendering item %d: %v", i, rec)
			res.Fragment, res.Excerpt = nil, nil
			res.Err = fmt.Errorf("rendering item: %v", rec)
		}
	}()

	if msg == nil {
		res.Err = fmt.Errorf("rendering item: nil message")
		return res
	}
	text, err := msg.Text.String()
	if err != nil {
		debuglog.Warnf("Error rendering item %d: %v", i, err)
		res.Err = err
		return res
	}

	res.Fragment = Mark(text, terms)
	res.Excerpt = res.Fragment.Excerpt(r.Excerpt.Lead, r.Excerpt.Threshold, r.Excerpt.MinLength)
	return res
}
