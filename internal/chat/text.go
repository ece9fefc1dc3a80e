package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedText is returned when a text field has a shape that cannot be
// turned into a string.
var ErrUnsupportedText = errors.New("unsupported text value")

// Text holds a message's "text" field as raw JSON. Exports put strings,
// numbers, booleans, Telegram rich-text arrays or objects there, so the value
// is only coerced when it is needed.
type Text struct {
	raw json.RawMessage
}

// PlainText wraps s as a JSON string value.
func PlainText(s string) Text {
	b, _ := json.Marshal(s)
	return Text{raw: b}
}

// RawText wraps an arbitrary JSON value. Used by tests and decoders.
func RawText(raw string) Text {
	return Text{raw: json.RawMessage(raw)}
}

func (t *Text) UnmarshalJSON(data []byte) error {
	t.raw = append(t.raw[:0], data...)
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

// String coerces the value to a string. Absent, null, false, 0 and "" have
// no usable text and return "" with a nil error.
func (t Text) String() (string, error) {
	raw := bytes.TrimSpace(t.raw)
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding text: %w", err)
		}
		return s, nil
	case 'n':
		return "", nil
	case 't':
		return "true", nil
	case 'f':
		return "", nil
	case '[':
		return flattenRichText(raw)
	case '{':
		var obj struct {
			Text json.RawMessage `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("decoding text object: %w", err)
		}
		if field := bytes.TrimSpace(obj.Text); len(field) > 0 && field[0] == '"' {
			return rawString(field), nil
		}
		return "", fmt.Errorf("%w: object without string text field", ErrUnsupportedText)
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedText, truncate(string(raw), 32))
		}
		if f == 0 {
			return "", nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
}

// Plain is String with errors folded into "".
func (t Text) Plain() string {
	s, err := t.String()
	if err != nil {
		return ""
	}
	return s
}

// flattenRichText joins a Telegram rich-text array: plain strings and the
// "text" field of entity objects, in order.
func flattenRichText(raw json.RawMessage) (string, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("decoding rich text: %w", err)
	}

	var sb strings.Builder
	for i, part := range parts {
		part = bytes.TrimSpace(part)
		if len(part) == 0 {
			continue
		}
		switch part[0] {
		case '"':
			sb.WriteString(rawString(part))
		case '{':
			var entity struct {
				Text json.RawMessage `json:"text"`
			}
			if err := json.Unmarshal(part, &entity); err != nil {
				return "", fmt.Errorf("decoding rich text entity %d: %w", i, err)
			}
			sb.WriteString(rawString(entity.Text))
		case 'n':
		default:
			return "", fmt.Errorf("%w: rich text element %d", ErrUnsupportedText, i)
		}
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
