package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/debuglog"
)

const (
	textField = "text"

	// MaxIndexedBytes caps the text put into the index. Longer messages
	// are always returned as candidates instead.
	MaxIndexedBytes = 4096
)

// BleveIndex is an in-memory substring prefilter. Each message is indexed
// as one keyword token, lowercased the same way the matcher lowercases, so
// a wildcard query *term* matches exactly the messages containing term.
type BleveIndex struct {
	idx       bleve.Index
	size      int
	indexed   int
	oversized []int
}

var _ Prefilter = (*BleveIndex)(nil)
var _ DebugStatser = (*BleveIndex)(nil)

// NewBleveIndex builds an index over messages. Positions in messages are
// the document ids, so nil slots are simply absent.
func NewBleveIndex(messages []*chat.Message) (*BleveIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	b := &BleveIndex{idx: idx, size: len(messages)}
	if err := b.indexAll(messages); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return b, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = keyword.Name

	dm := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = keyword.Name
	text.Store = false
	text.IncludeTermVectors = false
	text.IncludeInAll = false
	text.DocValues = false

	dm.AddFieldMappingsAt(textField, text)
	im.DefaultMapping = dm
	return im
}

func (b *BleveIndex) indexAll(messages []*chat.Message) error {
	batch := b.idx.NewBatch()
	for i, msg := range messages {
		if msg == nil {
			continue
		}
		text := msg.Text.Plain()
		if text == "" {
			continue
		}
		if len(text) > MaxIndexedBytes {
			b.oversized = append(b.oversized, i)
			continue
		}
		// Wildcards never match across a newline.
		text = strings.ReplaceAll(strings.ToLower(text), "\n", " ")
		if err := batch.Index(strconv.Itoa(i), map[string]any{textField: text}); err != nil {
			return fmt.Errorf("indexing message %d: %w", i, err)
		}
		b.indexed++
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	debuglog.Debugf("Indexed %d messages (%d oversized)", b.indexed, len(b.oversized))
	return nil
}

// Candidates implements Prefilter. Phrases are OR-ed and words AND-ed,
// mirroring the matcher.
func (b *BleveIndex) Candidates(terms Terms) ([]int, bool) {
	if terms.IsEmpty() {
		return nil, false
	}
	for _, term := range append(append([]string{}, terms.Phrases...), terms.Words...) {
		if !wildcardSafe(term) {
			return nil, false
		}
	}

	var must []bleveQuery.Query
	if len(terms.Phrases) > 0 {
		var anyOf []bleveQuery.Query
		for _, phrase := range terms.Phrases {
			anyOf = append(anyOf, substringQuery(phrase))
		}
		must = append(must, bleve.NewDisjunctionQuery(anyOf...))
	}
	for _, word := range terms.Words {
		must = append(must, substringQuery(word))
	}

	q := bleve.NewConjunctionQuery(must...)
	req := bleve.NewSearchRequestOptions(q, b.indexed+1, 0, false)
	req.Fields = []string{}
	res, err := b.idx.Search(req)
	if err != nil {
		debuglog.Warnf("Prefilter search failed: %v", err)
		return nil, false
	}

	out := make([]int, 0, len(res.Hits)+len(b.oversized))
	for _, h := range res.Hits {
		i, convErr := strconv.Atoi(h.ID)
		if convErr != nil {
			return nil, false
		}
		out = append(out, i)
	}
	out = append(out, b.oversized...)
	sort.Ints(out)
	return out, true
}

func substringQuery(term string) bleveQuery.Query {
	q := bleve.NewWildcardQuery("*" + strings.ToLower(term) + "*")
	q.SetField(textField)
	return q
}

// wildcardSafe rejects terms the wildcard syntax would misread.
func wildcardSafe(term string) bool {
	return term != "" && !strings.ContainsAny(term, "*?\n")
}

// Len implements Prefilter.
func (b *BleveIndex) Len() int { return b.size }

// DocCount reports total documents in the index.
func (b *BleveIndex) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *BleveIndex) Close() error {
	return b.idx.Close()
}
