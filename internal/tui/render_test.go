package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/media"
	"github.com/pders01/chatlens/internal/search"
)

func TestRenderFragmentFoldsLines(t *testing.T) {
	f := search.Mark("first line\nsecond\tfoo", search.Parse("foo"))

	assert.Equal(t, "first line second foo", renderFragment(f, true))
	assert.Contains(t, renderFragment(f, false), "\n")
}

func TestMediaBadge(t *testing.T) {
	assert.Equal(t, "", mediaBadge(nil))
	assert.Equal(t, "📷 2 🎬 1", mediaBadge(map[media.Type]int{
		media.TypeVideo: 1,
		media.TypeImage: 2,
	}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncateEnd("short", 10))
	assert.Equal(t, "abcd…", truncateEnd("abcdefgh", 5))
	assert.Equal(t, "", truncateEnd("abc", 0))

	assert.Equal(t, "/home/x.json", truncateMiddle("/home/x.json", 20))
	got := truncateMiddle("/very/long/directory/chat.json", 15)
	assert.Equal(t, 15, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "/very/l"))
	assert.True(t, strings.HasSuffix(got, "chat.json"[2:]))
}

func TestRankSenders(t *testing.T) {
	ranked := rankSenders(map[string]int{"Bob": 3, "Alice": 3, "Carol": 5, "Dave": 1}, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, senderCount{"Carol", 5}, ranked[0])
	assert.Equal(t, senderCount{"Alice", 3}, ranked[1], "ties are broken by name")
	assert.Equal(t, senderCount{"Bob", 3}, ranked[2])
}

func TestDocumentSummary(t *testing.T) {
	doc := &chat.Document{
		Name: "Team",
		Type: "private_group",
		Messages: []*chat.Message{
			{ID: chat.NumberID(1), From: "Alice", Date: chat.NewDate("2024-01-01T09:00:00"), Text: chat.PlainText("hi")},
			nil,
			{ID: chat.NumberID(2), From: "Bob", Date: chat.NewDate("2024-01-03T09:00:00"), Text: chat.PlainText("yo")},
			{ID: chat.NumberID(3), From: "Alice", Date: chat.NewDate("2024-01-02T09:00:00"), Text: chat.PlainText("ok")},
		},
		Skipped: 1,
	}
	info := &chat.FileInfo{Path: "/exports/team.json", Name: "team.json", Size: 2048}

	md := DocumentSummary(doc, info, nil)

	assert.Contains(t, md, "# Team")
	assert.Contains(t, md, "*private_group*")
	assert.Contains(t, md, "| Messages | 3 |")
	assert.Contains(t, md, "| Skipped | 1 |")
	assert.Contains(t, md, "| File | `/exports/team.json` |")
	assert.Contains(t, md, "| First message | "+chat.FormatDate(chat.NewDate("2024-01-01T09:00:00")))
	assert.Contains(t, md, "| Last message | "+chat.FormatDate(chat.NewDate("2024-01-03T09:00:00")))
	assert.Less(t, strings.Index(md, "**Alice**: 2"), strings.Index(md, "**Bob**: 1"))
	assert.NotContains(t, md, "## Attachments")
}

func TestRenderWindowMarksSelection(t *testing.T) {
	doc := &chat.Document{Name: "Team"}
	for i := 1; i <= 4; i++ {
		doc.Messages = append(doc.Messages, &chat.Message{
			ID:   chat.NumberID(int64(i)),
			From: "Alice",
			Date: chat.NewDate("2024-01-01T09:00:00"),
			Text: chat.PlainText("line"),
		})
	}
	w, ok := search.Expand(doc, chat.NumberID(3), search.Terms{})
	require.True(t, ok)

	content, selected := renderWindow(w, nil, 80)

	assert.NotContains(t, content, "› Team", "the header is rendered separately")
	assert.Greater(t, selected, 0)
	assert.Less(t, selected, strings.Count(content, "\n")+1)

	header := renderContextHeader(w, len(doc.Messages), 80)
	assert.Contains(t, header, "› Team")
	assert.Contains(t, header, "messages 1-4 of 4")
}

func TestRenderWindowFirstSelectedStartsAtTop(t *testing.T) {
	doc := &chat.Document{Name: "Team", Messages: []*chat.Message{
		{ID: chat.NumberID(1), From: "Alice", Date: chat.NewDate("2024-01-01T09:00:00"), Text: chat.PlainText("a")},
		{ID: chat.NumberID(2), From: "Bob", Date: chat.NewDate("2024-01-01T09:01:00"), Text: chat.PlainText("b")},
	}}
	w, ok := search.Expand(doc, chat.NumberID(1), search.Terms{})
	require.True(t, ok)

	// The first entry carries the day separator, so it starts below it.
	_, selected := renderWindow(w, nil, 80)
	assert.Equal(t, 2, selected)
}

func TestResultItemViews(t *testing.T) {
	msg := &chat.Message{ID: chat.NumberID(1), From: "Alice", Date: chat.NewDate("2024-01-01T09:00:00"), Text: chat.PlainText("say foo")}
	rendered := search.RenderBatch([]*chat.Message{msg}, search.Parse("foo"))
	require.Len(t, rendered, 1)

	card := resultItem{rendered: rendered[0]}
	assert.Contains(t, card.Title(), "Alice")
	assert.NotContains(t, card.Title(), "say foo")
	assert.Equal(t, "say foo", card.Description())
	assert.Equal(t, "say foo", card.FilterValue())

	broken := resultItem{rendered: search.Rendered{Message: msg, Err: chat.ErrUnsupportedText}}
	assert.Contains(t, broken.Description(), renderErrorText)
}
