package media

import (
	_ "embed"
	"fmt"
	"mime"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/chatlens/internal/chat"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

type Type int

const (
	TypeVideo Type = iota
	TypeImage
	TypeAudio
	TypeDocument
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeVideo:
		return "video"
	case TypeImage:
		return "image"
	case TypeAudio:
		return "audio"
	case TypeDocument:
		return "document"
	default:
		return "unknown"
	}
}

type TypeConfig struct {
	Extensions   []string `toml:"extensions"`
	MimePrefixes []string `toml:"mime_prefixes"`
	Kinds        []string `toml:"kinds"`
}

type TypesConfig struct {
	Video     TypeConfig                `toml:"video"`
	Image     TypeConfig                `toml:"image"`
	Audio     TypeConfig                `toml:"audio"`
	Document  TypeConfig                `toml:"document"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var config TypesConfig
	if err := toml.Unmarshal(mediaTypesTOML, &config); err != nil {
		return nil, fmt.Errorf("parsing media_types.toml: %w", err)
	}

	return &TypeDetector{config: &config}, nil
}

// ordered lists the tables in the order they are consulted.
func (d *TypeDetector) ordered() []struct {
	t   Type
	cfg TypeConfig
} {
	return []struct {
		t   Type
		cfg TypeConfig
	}{
		{TypeVideo, d.config.Video},
		{TypeImage, d.config.Image},
		{TypeAudio, d.config.Audio},
		{TypeDocument, d.config.Document},
	}
}

// Classify decides an attachment's type from its export kind, then its
// MIME type, then the file extension.
func (d *TypeDetector) Classify(a chat.Attachment) Type {
	if kind := strings.ToLower(a.Type); kind != "" {
		for _, e := range d.ordered() {
			if contains(e.cfg.Kinds, kind) {
				return e.t
			}
		}
	}

	if mt := mimeOf(a); mt != "" {
		for _, e := range d.ordered() {
			if hasPrefix(mt, e.cfg.MimePrefixes) {
				return e.t
			}
		}
	}

	return d.DetectType(a.File)
}

// DetectType classifies a file path by extension.
func (d *TypeDetector) DetectType(path string) Type {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return TypeUnknown
	}
	for _, e := range d.ordered() {
		if contains(e.cfg.Extensions, ext) {
			return e.t
		}
	}
	return TypeUnknown
}

func mimeOf(a chat.Attachment) string {
	mt := a.MimeType
	if mt == "" {
		mt = mime.TypeByExtension(filepath.Ext(a.File))
	}
	if mt == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return strings.ToLower(mt)
}

func (d *TypeDetector) GetDefaultOpener() string {
	platform := runtime.GOOS
	if platformConfig, ok := d.config.Platforms[platform]; ok {
		return platformConfig.DefaultOpener
	}
	if fallback, ok := d.config.Platforms["fallback"]; ok {
		return fallback.DefaultOpener
	}
	return "open"
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func hasPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Counts tallies attachments by type, as shown in the context view.
func (d *TypeDetector) Counts(msg *chat.Message) map[Type]int {
	counts := make(map[Type]int)
	if msg == nil {
		return counts
	}
	for _, a := range msg.Media {
		counts[d.Classify(a)]++
	}
	return counts
}
