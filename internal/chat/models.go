package chat

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Document is a loaded chat export. It is replaced wholesale on every load
// and never mutated afterwards.
type Document struct {
	Name     string
	Type     string
	Messages []*Message
	// Skipped counts elements of "messages" that were not JSON objects.
	// They are kept as nil slots so positions stay stable.
	Skipped int
}

// Len returns the number of message slots, nil slots included.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Messages)
}

// IndexOf returns the position of the first message with the given id, or -1.
func (d *Document) IndexOf(id ID) int {
	if d == nil {
		return -1
	}
	for i, m := range d.Messages {
		if m != nil && m.ID.Equal(id) {
			return i
		}
	}
	return -1
}

type Message struct {
	ID    ID
	Type  string
	Date  Date
	From  string
	Text  Text
	Media []Attachment
}

// Attachment is a file referenced by a message.
type Attachment struct {
	File     string `json:"file"`
	Type     string `json:"type"`
	MimeType string `json:"mime_type"`
}

type wireMessage struct {
	ID        ID              `json:"id"`
	Type      json.RawMessage `json:"type"`
	Date      Date            `json:"date"`
	From      json.RawMessage `json:"from"`
	Text      Text            `json:"text"`
	Media     json.RawMessage `json:"media"`
	Photo     json.RawMessage `json:"photo"`
	File      json.RawMessage `json:"file"`
	MediaType json.RawMessage `json:"media_type"`
	MimeType  json.RawMessage `json:"mime_type"`
}

// UnmarshalJSON decodes a message without failing on unexpected field types.
// Telegram's top-level photo and file fields are folded into Media.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	m.ID = w.ID
	m.Type = rawString(w.Type)
	m.Date = w.Date
	m.From = rawString(w.From)
	m.Text = w.Text
	m.Media = decodeMedia(w.Media)

	if photo := rawString(w.Photo); photo != "" {
		m.Media = append(m.Media, Attachment{File: photo, Type: "photo", MimeType: rawString(w.MimeType)})
	}
	if file := rawString(w.File); file != "" {
		m.Media = append(m.Media, Attachment{File: file, Type: rawString(w.MediaType), MimeType: rawString(w.MimeType)})
	}
	return nil
}

func decodeMedia(raw json.RawMessage) []Attachment {
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []Attachment
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		a := Attachment{
			File:     rawString(fields["file"]),
			Type:     rawString(fields["type"]),
			MimeType: rawString(fields["mime_type"]),
		}
		if a.Type == "" {
			a.Type = rawString(fields["media_type"])
		}
		out = append(out, a)
	}
	return out
}

// rawString returns the value of a JSON string, or "" for any other kind.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// SenderName returns From, or "Unknown" when it is empty.
func (m *Message) SenderName() string {
	if m == nil || m.From == "" {
		return "Unknown"
	}
	return m.From
}

// ID is a message identifier. Exports use numbers or strings; the two kinds
// never compare equal, so 5 and "5" are different ids.
type ID struct {
	literal string
	numeric bool
}

func NumberID(n int64) ID { return ID{literal: strconv.FormatInt(n, 10), numeric: true} }

func StringID(s string) ID { return ID{literal: s} }

// ParseID reads an id typed by a user. Anything that is a valid JSON number
// is numeric, everything else is a string id.
func ParseID(s string) ID {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}
	}
	if json.Valid([]byte(s)) && (s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) {
		return numericID(s)
	}
	return ID{literal: s}
}

// numericID keeps one spelling per number, so 5, 5.0 and 5e0 are the same
// id. Integral values print without a fraction or exponent.
func numericID(literal string) ID {
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return ID{literal: literal, numeric: true}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return NumberID(int64(f))
	}
	return ID{literal: strconv.FormatFloat(f, 'g', -1, 64), numeric: true}
}

func (id ID) String() string { return id.literal }

func (id ID) IsNumeric() bool { return id.numeric }

func (id ID) IsZero() bool { return id.literal == "" && !id.numeric }

func (id ID) Equal(other ID) bool {
	return id.numeric == other.numeric && id.literal == other.literal
}

// UnmarshalJSON accepts a number or a string. Other kinds leave the id zero.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*id = ID{}
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*id = StringID(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*id = numericID(string(data))
	}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.literal), nil
	}
	return json.Marshal(id.literal)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date is a message timestamp as found in the export: an ISO-like string or
// Unix seconds. The raw value is kept for display.
type Date struct {
	raw string
	t   time.Time
}

// NewDate builds a Date from a string in any accepted layout.
func NewDate(s string) Date {
	return Date{raw: s, t: parseDate(s)}
}

// UnixDate builds a Date from Unix seconds.
func UnixDate(sec int64) Date {
	return Date{raw: strconv.FormatInt(sec, 10), t: time.Unix(sec, 0)}
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*d = Date{}
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*d = NewDate(s)
		}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		*d = Date{raw: string(data), t: time.Unix(sec, nsec)}
	}
	return nil
}

// Raw returns the date exactly as it appeared in the export.
func (d Date) Raw() string { return d.raw }

// Time returns the parsed time, or the zero time for missing or invalid dates.
func (d Date) Time() time.Time { return d.t }

func (d Date) Valid() bool { return !d.t.IsZero() }
