package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/pders01/chatlens/internal/debuglog"
)

var (
	ErrNotFound         = errors.New("file not found")
	ErrInvalidJSON      = errors.New("invalid JSON format")
	ErrNotObject        = errors.New("invalid file: content is not a JSON object")
	ErrMissingMessages  = errors.New(`invalid chat file format: missing "messages" property`)
	ErrMessagesNotArray = errors.New(`invalid chat file format: "messages" is not an array`)
)

// LargeFileThreshold is the size above which loading logs a warning.
const LargeFileThreshold = 50 * 1024 * 1024

// FileInfo describes a loaded export file.
type FileInfo struct {
	Path         string
	Name         string
	Size         int64
	MessageCount int
	ModTime      time.Time
}

// Decode parses an export. Every structural problem maps to one of the
// package's sentinel errors.
func Decode(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		var syntaxErr error
		if len(data) > 0 {
			var v any
			syntaxErr = json.Unmarshal(data, &v)
		}
		if syntaxErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, syntaxErr)
		}
		return nil, fmt.Errorf("%w: empty input", ErrInvalidJSON)
	}
	if data[0] != '{' {
		return nil, ErrNotObject
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	rawMessages := bytes.TrimSpace(top["messages"])
	if isFalsy(rawMessages) {
		return nil, ErrMissingMessages
	}
	if rawMessages[0] != '[' {
		return nil, ErrMessagesNotArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawMessages, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessagesNotArray, err)
	}

	doc := &Document{
		Name:     rawString(top["name"]),
		Type:     rawString(top["type"]),
		Messages: make([]*Message, len(items)),
	}
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			doc.Skipped++
			continue
		}
		msg := &Message{}
		if err := json.Unmarshal(item, msg); err != nil {
			debuglog.WithFields(debuglog.Fields{"index": i}).Warnf("Skipping malformed message: %v", err)
			doc.Skipped++
			continue
		}
		doc.Messages[i] = msg
	}

	if doc.Skipped > 0 {
		debuglog.Warnf("Skipped %d non-object entries in messages", doc.Skipped)
	}
	return doc, nil
}

// isFalsy reports whether a JSON value is absent or one of null, false, 0, "".
func isFalsy(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

// LoadFile reads and decodes an export. Files ending in .zst are
// decompressed first.
func LoadFile(path string) (*Document, *FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("checking file: %w", err)
	}
	if stat.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	logger := debuglog.WithFields(debuglog.Fields{"path": path, "size": stat.Size()})
	if stat.Size() > LargeFileThreshold {
		logger.Warnf("Large export file, loading may take a while")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading file: %w", err)
	}

	if isZstd(path) {
		data, err = decompress(data)
		if err != nil {
			return nil, nil, err
		}
	}

	doc, err := Decode(data)
	if err != nil {
		logger.Errorf("Failed to load export: %v", err)
		return nil, nil, err
	}

	info := &FileInfo{
		Path:         path,
		Name:         filepath.Base(path),
		Size:         stat.Size(),
		MessageCount: len(doc.Messages),
		ModTime:      stat.ModTime(),
	}
	logger.Infof("Loaded %d messages", info.MessageCount)
	return doc, info, nil
}

func isZstd(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".zst" || ext == ".zstd"
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing export: %w", err)
	}
	return out, nil
}
