package search

import "github.com/pders01/chatlens/internal/chat"

// PageSize is the number of results per batch.
const PageSize = 50

// Pager tracks how much of a result set has been handed out for display.
// It keeps 0 <= DisplayedCount() <= Total().
type Pager struct {
	results   []*chat.Message
	displayed int
}

// SetResults replaces the result set and rewinds to the start.
func (p *Pager) SetResults(results []*chat.Message) {
	p.results = results
	p.displayed = 0
}

// NextBatch returns the next PageSize results and advances past them. It
// returns an empty batch once everything has been displayed.
func (p *Pager) NextBatch() []*chat.Message {
	if !p.HasMore() {
		return nil
	}
	end := p.displayed + PageSize
	if end > len(p.results) {
		end = len(p.results)
	}
	batch := p.results[p.displayed:end:end]
	p.displayed = end
	return batch
}

func (p *Pager) HasMore() bool {
	return p.displayed < len(p.results)
}

func (p *Pager) Total() int {
	return len(p.results)
}

func (p *Pager) DisplayedCount() int {
	return p.displayed
}

// Remaining is the number of results not yet displayed.
func (p *Pager) Remaining() int {
	return len(p.results) - p.displayed
}

// Displayed returns the prefix handed out so far. A view-mode switch
// re-renders exactly this slice.
func (p *Pager) Displayed() []*chat.Message {
	return p.results[:p.displayed:p.displayed]
}

// Results returns the whole result set.
func (p *Pager) Results() []*chat.Message {
	return p.results
}

// Reset drops the result set.
func (p *Pager) Reset() {
	p.results = nil
	p.displayed = 0
}
