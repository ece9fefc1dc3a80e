package search

import (
	"fmt"
	"time"

	"github.com/pders01/chatlens/internal/chat"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

func msg(id int64, text string) *chat.Message {
	return &chat.Message{
		ID:   chat.NumberID(id),
		Date: chat.NewDate(baseTime.Add(time.Duration(id) * time.Minute).Format("2006-01-02T15:04:05")),
		From: "tester",
		Text: chat.PlainText(text),
	}
}

// corpus builds n messages where every message whose index is divisible by
// every-th contains "foo".
func corpus(n, every int) []*chat.Message {
	out := make([]*chat.Message, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("message number %d", i)
		if every > 0 && i%every == 0 {
			text = fmt.Sprintf("message %d says foo", i)
		}
		out[i] = msg(int64(i), text)
	}
	return out
}

func ids(msgs []*chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID.String()
	}
	return out
}
