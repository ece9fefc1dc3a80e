package chat

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "name": "Book Club",
  "type": "private_group",
  "messages": [
    {"id": 1, "type": "message", "date": "2023-01-01T12:00:00", "from": "Ann", "text": "Hello there"},
    {"id": 2, "type": "message", "date": "2023-01-02T08:30:00", "from": "Bob",
     "text": ["See ", {"type": "link", "text": "https://example.com"}, " now"]},
    {"id": "svc-3", "type": "service", "date": 1672660800, "text": ""},
    42,
    {"id": 4, "date": "2023-01-03", "from": null, "text": {"text": "object text"},
     "photo": "photos/p1.jpg", "media": [{"file": "clip.mp4", "type": "video", "mime_type": "video/mp4"}]}
  ]
}`

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, "Book Club", doc.Name)
	assert.Equal(t, "private_group", doc.Type)
	require.Len(t, doc.Messages, 5)
	assert.Equal(t, 1, doc.Skipped)
	assert.Nil(t, doc.Messages[3], "non-object entries stay as nil slots")

	first := doc.Messages[0]
	assert.Equal(t, NumberID(1), first.ID)
	assert.Equal(t, "Ann", first.From)
	assert.Equal(t, "Hello there", first.Text.Plain())

	assert.Equal(t, "See https://example.com now", doc.Messages[1].Text.Plain())
	assert.Equal(t, StringID("svc-3"), doc.Messages[2].ID)
	assert.True(t, doc.Messages[2].Date.Valid())

	last := doc.Messages[4]
	assert.Equal(t, "Unknown", last.SenderName())
	assert.Equal(t, "object text", last.Text.Plain())
	require.Len(t, last.Media, 2)
	assert.Equal(t, Attachment{File: "clip.mp4", Type: "video", MimeType: "video/mp4"}, last.Media[0])
	assert.Equal(t, "photo", last.Media[1].Type)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrInvalidJSON},
		{"garbage", "{not json", ErrInvalidJSON},
		{"array", `[{"messages": []}]`, ErrNotObject},
		{"string", `"hello"`, ErrNotObject},
		{"missing messages", `{"name": "x"}`, ErrMissingMessages},
		{"null messages", `{"messages": null}`, ErrMissingMessages},
		{"messages object", `{"messages": {"a": 1}}`, ErrMessagesNotArray},
		{"messages string", `{"messages": "nope"}`, ErrMessagesNotArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.input))
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeEmptyMessages(t *testing.T) {
	doc, err := Decode([]byte(`{"messages": []}`))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestTextCoercion(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{``, "", false},
		{`null`, "", false},
		{`""`, "", false},
		{`false`, "", false},
		{`0`, "", false},
		{`true`, "true", false},
		{`42`, "42", false},
		{`3.5`, "3.5", false},
		{`"Café"`, "Café", false},
		{`["a", {"type": "bold", "text": "b"}, "c"]`, "abc", false},
		{`{"text": "inner"}`, "inner", false},
		{`{"text": ""}`, "", false},
		{`{"caption": "x"}`, "", true},
		{`[1, 2]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := RawText(tt.raw).String()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedText)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlainText(t *testing.T) {
	text := PlainText(`say "hi" & <go>`)
	s, err := text.String()
	require.NoError(t, err)
	assert.Equal(t, `say "hi" & <go>`, s)
}

func TestIDEquality(t *testing.T) {
	assert.True(t, NumberID(5).Equal(NumberID(5)))
	assert.False(t, NumberID(5).Equal(StringID("5")), "kinds never compare equal")
	assert.True(t, StringID("a").Equal(StringID("a")))

	var id ID
	require.NoError(t, json.Unmarshal([]byte(`{"x": 1}`), &id))
	assert.True(t, id.IsZero())

	b, err := json.Marshal(NumberID(7))
	require.NoError(t, err)
	assert.Equal(t, "7", string(b))
	b, err = json.Marshal(StringID("7"))
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(b))
}

func TestParseID(t *testing.T) {
	assert.Equal(t, NumberID(12), ParseID(" 12 "))
	assert.True(t, ParseID("-3").IsNumeric())
	assert.Equal(t, StringID("abc"), ParseID("abc"))
	assert.Equal(t, StringID("12a"), ParseID("12a"))
	assert.True(t, ParseID("").IsZero())
}

func TestNumericIDSpellings(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{"5", "5"},
		{"5.0", "5"},
		{"1e1", "10"},
		{"10E0", "10"},
		{"-2.50", "-2.5"},
		{"0.125", "0.125"},
		{"1000000", "1000000"},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.literal), &id))
			assert.True(t, id.IsNumeric())
			assert.Equal(t, tt.want, id.String())
			assert.True(t, id.Equal(ParseID(tt.literal)))
		})
	}

	assert.True(t, ParseID("5.0").Equal(NumberID(5)))
	assert.True(t, ParseID("1e1").Equal(NumberID(10)))
	assert.False(t, ParseID("5.5").Equal(NumberID(5)))
}

func TestDocumentIndexOf(t *testing.T) {
	doc := &Document{Messages: []*Message{{ID: NumberID(1)}, nil, {ID: StringID("x")}}}
	assert.Equal(t, 0, doc.IndexOf(NumberID(1)))
	assert.Equal(t, 2, doc.IndexOf(StringID("x")))
	assert.Equal(t, -1, doc.IndexOf(NumberID(99)))

	var nilDoc *Document
	assert.Equal(t, -1, nilDoc.IndexOf(NumberID(1)))
	assert.Equal(t, 0, nilDoc.Len())
}

func TestDateParsing(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"2023-05-06T07:08:09Z", true},
		{"2023-05-06T07:08:09.123+02:00", true},
		{"2023-05-06T07:08:09", true},
		{"2023-05-06 07:08:09", true},
		{"2023-05-06", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		d := NewDate(tt.raw)
		assert.Equal(t, tt.valid, d.Valid(), tt.raw)
		assert.Equal(t, tt.raw, d.Raw())
	}

	var unix Date
	require.NoError(t, json.Unmarshal([]byte(`1700000000`), &unix))
	assert.Equal(t, int64(1700000000), unix.Time().Unix())
	assert.Equal(t, UnixDate(1700000000).Time(), unix.Time())

	var bogus Date
	require.NoError(t, json.Unmarshal([]byte(`{"y": 1}`), &bogus))
	assert.False(t, bogus.Valid())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o644))

	doc, info, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Book Club", doc.Name)
	assert.Equal(t, "result.json", info.Name)
	assert.Equal(t, 5, info.MessageCount)
	assert.Equal(t, int64(len(sampleExport)), info.Size)
}

func TestLoadFileZstd(t *testing.T) {
	encoder, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := encoder.EncodeAll([]byte(sampleExport), nil)
	require.NoError(t, encoder.Close())

	path := filepath.Join(t.TempDir(), "result.json.zst")
	require.NoError(t, os.WriteFile(path, compressed, 0o644))

	doc, info, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Messages, 5)
	assert.Equal(t, int64(len(compressed)), info.Size)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = LoadFile(dir)
	assert.ErrorIs(t, err, ErrNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "no messages"}`), 0o644))
	_, _, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrMissingMessages)

	corrupt := filepath.Join(dir, "corrupt.json.zst")
	require.NoError(t, os.WriteFile(corrupt, []byte("not zstd"), 0o644))
	_, _, err = LoadFile(corrupt)
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Unknown date", FormatDate(Date{}))
	assert.Equal(t, "Unknown date", FormatDate(NewDate("garbage")))

	d := NewDate("2023-01-02T15:04:00")
	assert.Equal(t, "Jan 2, 2023 15:04", FormatDate(d))
	assert.Equal(t, "Jan 2, 2023", DayLabel(d))
	assert.Equal(t, "15:04", TimeLabel(d))
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.bytes))
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", Age(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", Age(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", Age(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", Age(now.Add(-49*time.Hour), now))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	oldDelay := settleDelay
	settleDelay = 10 * time.Millisecond
	defer func() { settleDelay = oldDelay }()

	path := filepath.Join(t.TempDir(), "watched.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"messages": []}`), 0o644))

	var (
		mu     sync.Mutex
		counts []int
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(doc *Document, _ *FileInfo, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				counts = append(counts, doc.Len())
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"messages": [{"id": 1, "text": "hi"}]}`), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(counts) > 0 && counts[len(counts)-1] == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
