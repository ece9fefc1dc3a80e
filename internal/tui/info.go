package tui

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/media"
)

var countPrinter = message.NewPrinter(language.English)

const topSenders = 10

// DocumentSummary describes a loaded export as markdown for glamour.
func DocumentSummary(doc *chat.Document, info *chat.FileInfo, detector *media.TypeDetector) string {
	var b strings.Builder

	name := doc.Name
	if name == "" {
		name = "Unnamed chat"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if doc.Type != "" {
		fmt.Fprintf(&b, "*%s*\n\n", doc.Type)
	}

	b.WriteString("| | |\n|---|---|\n")
	if info != nil {
		fmt.Fprintf(&b, "| File | `%s` |\n", info.Path)
		fmt.Fprintf(&b, "| Size | %s |\n", chat.FormatFileSize(info.Size))
	}
	countPrinter.Fprintf(&b, "| Messages | %d |\n", len(doc.Messages)-doc.Skipped)
	if doc.Skipped > 0 {
		countPrinter.Fprintf(&b, "| Skipped | %d |\n", doc.Skipped)
	}

	var first, last chat.Date
	senders := make(map[string]int)
	attachments := make(map[media.Type]int)
	for _, msg := range doc.Messages {
		if msg == nil {
			continue
		}
		if msg.Date.Valid() {
			if !first.Valid() || msg.Date.Time().Before(first.Time()) {
				first = msg.Date
			}
			if !last.Valid() || msg.Date.Time().After(last.Time()) {
				last = msg.Date
			}
		}
		senders[msg.SenderName()]++
		if detector != nil {
			for t, n := range detector.Counts(msg) {
				attachments[t] += n
			}
		}
	}
	if first.Valid() {
		fmt.Fprintf(&b, "| First message | %s |\n", chat.FormatDate(first))
		fmt.Fprintf(&b, "| Last message | %s |\n", chat.FormatDate(last))
	}

	if len(senders) > 0 {
		b.WriteString("\n## Top senders\n\n")
		for _, s := range rankSenders(senders, topSenders) {
			countPrinter.Fprintf(&b, "- **%s**: %d\n", s.name, s.count)
		}
	}

	if len(attachments) > 0 {
		b.WriteString("\n## Attachments\n\n")
		for _, badge := range mediaBadges {
			if n := attachments[badge.t]; n > 0 {
				countPrinter.Fprintf(&b, "- %s %s: %d\n", badge.icon, badge.t, n)
			}
		}
	}

	return b.String()
}

type senderCount struct {
	name  string
	count int
}

// rankSenders orders by count, then name, and keeps the first limit.
func rankSenders(counts map[string]int, limit int) []senderCount {
	out := make([]senderCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, senderCount{name: name, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
