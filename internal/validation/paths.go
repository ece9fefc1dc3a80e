package validation

import (
	"os"
	"path/filepath"
)

// PathHandler resolves chatlens's default file locations and validates
// user overrides.
type PathHandler struct {
	validator *FilePathValidator
}

func NewSecurePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator()}
}

// NewPermissivePathHandler allows state files anywhere. Used by tests and
// by the --config flag, which may point at any file.
func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator().permissive()}
}

func (v *FilePathValidator) permissive() *FilePathValidator {
	cp := *v
	cp.StateDirs = nil
	return &cp
}

// Validator returns the underlying validator.
func (ph *PathHandler) Validator() *FilePathValidator {
	return ph.validator
}

// DBPath returns the history database path, ~/.chatlens/history.db by
// default.
func (ph *PathHandler) DBPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".chatlens", "history.db")
	}
	return ph.validator.StateFile(userPath)
}

// ConfigPath returns the config file path,
// ~/.config/chatlens/config.toml by default.
func (ph *PathHandler) ConfigPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".config", "chatlens", "config.toml")
	}
	return ph.validator.StateFile(userPath)
}

// LogPath returns the debug log path, ~/.chatlens/chatlens.log by default.
func (ph *PathHandler) LogPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".chatlens", "chatlens.log")
	}
	return ph.validator.StateFile(userPath)
}

// EnsureDirectory validates dir and creates it if missing.
func (ph *PathHandler) EnsureDirectory(dir string) (string, error) {
	return ph.validator.StateDir(dir, true)
}
