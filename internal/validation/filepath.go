package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath          = errors.New("path cannot be empty")
	ErrUnsafePath         = errors.New("path contains unsafe characters")
	ErrUnsupportedExport  = errors.New("unsupported export file type")
	ErrNotRegularFile     = errors.New("not a regular file")
	ErrOutsideStateDirs   = errors.New("path not within chatlens directories")
	defaultMaxPathLength  = 4096
	exportExtensions      = []string{".json", ".zst", ".zstd"}
)

// FilePathValidator checks the two kinds of paths chatlens touches: export
// files the user picks, which may live anywhere, and its own state files
// (database, log), which must stay under the chatlens directories.
type FilePathValidator struct {
	// StateDirs bounds state files. Empty allows any location.
	StateDirs     []string
	MaxPathLength int
}

// NewFilePathValidator bounds state files to ~/.chatlens,
// ~/.config/chatlens and the temp dir.
func NewFilePathValidator() *FilePathValidator {
	homeDir, _ := os.UserHomeDir()
	return &FilePathValidator{
		StateDirs: []string{
			filepath.Join(homeDir, ".chatlens"),
			filepath.Join(homeDir, ".config", "chatlens"),
			os.TempDir(),
		},
		MaxPathLength: defaultMaxPathLength,
	}
}

// NewPermissiveFilePathValidator allows state files anywhere.
func NewPermissiveFilePathValidator() *FilePathValidator {
	return &FilePathValidator{MaxPathLength: defaultMaxPathLength}
}

// Clean rejects empty, overlong and control-character paths, expands a
// leading ~/ and returns the absolute, cleaned path.
func (v *FilePathValidator) Clean(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrEmptyPath
	}
	if v.MaxPathLength > 0 && len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	for _, r := range path {
		if r == 0 || (r < 32 && r != '\t') {
			return "", ErrUnsafePath
		}
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	} else if strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("%w: unsupported ~user expansion", ErrUnsafePath)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}
	return abs, nil
}

// ExportFile validates a chat export picked by the user. It must exist, be
// a regular file, and end in .json, .zst or .zstd.
func (v *FilePathValidator) ExportFile(path string) (string, os.FileInfo, error) {
	clean, err := v.Clean(path)
	if err != nil {
		return "", nil, err
	}

	ext := strings.ToLower(filepath.Ext(clean))
	supported := false
	for _, e := range exportExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return "", nil, fmt.Errorf("checking export file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s", ErrNotRegularFile, clean)
	}
	return clean, info, nil
}

// StateFile validates a database or log path. It must sit inside one of
// StateDirs and must not be a directory. The file need not exist yet.
func (v *FilePathValidator) StateFile(path string) (string, error) {
	clean, err := v.Clean(path)
	if err != nil {
		return "", err
	}
	if err := v.within(clean); err != nil {
		return "", err
	}
	if info, statErr := os.Stat(clean); statErr == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", clean)
	}
	return clean, nil
}

// StateDir validates a directory under StateDirs, creating it when asked.
func (v *FilePathValidator) StateDir(path string, create bool) (string, error) {
	clean, err := v.Clean(path)
	if err != nil {
		return "", err
	}
	if err := v.within(clean); err != nil {
		return "", err
	}

	info, err := os.Stat(clean)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", clean)
	case err == nil:
		return clean, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("checking directory: %w", err)
	case create:
		if mkErr := os.MkdirAll(clean, 0o755); mkErr != nil {
			return "", fmt.Errorf("failed to create directory: %w", mkErr)
		}
	}
	return clean, nil
}

func (v *FilePathValidator) within(abs string) error {
	if len(v.StateDirs) == 0 {
		return nil
	}
	for _, dir := range v.StateDirs {
		base, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutsideStateDirs, abs)
}

// IsPathSafe is a quick check for NUL bytes, traversal and length.
func IsPathSafe(path string) bool {
	if strings.Contains(path, "\x00") {
		return false
	}
	if strings.Contains(path, "../") || strings.Contains(path, "..\\") {
		return false
	}
	return len(path) <= defaultMaxPathLength
}
