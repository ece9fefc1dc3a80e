package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	ph := NewSecurePathHandler()

	tests := []struct {
		name string
		get  func(string) (string, error)
		want string
	}{
		{name: "db", get: ph.DBPath, want: filepath.Join(home, ".chatlens", "history.db")},
		{name: "config", get: ph.ConfigPath, want: filepath.Join(home, ".config", "chatlens", "config.toml")},
		{name: "log", get: ph.LogPath, want: filepath.Join(home, ".chatlens", "chatlens.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get("")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSecureHandlerRejectsOutsidePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	// The temp dir is a state dir too; move it away from home.
	t.Setenv("TMPDIR", filepath.Join(home, "tmp"))

	ph := NewSecurePathHandler()
	outside := filepath.Join(home, "Documents", "history.db")

	if _, err := ph.DBPath(outside); err == nil {
		t.Errorf("expected %s to be rejected", outside)
	}
	if _, err := ph.DBPath("~/.chatlens/custom.db"); err != nil {
		t.Errorf("expected path under ~/.chatlens to be accepted: %v", err)
	}
}

func TestPermissiveHandler(t *testing.T) {
	ph := NewPermissivePathHandler()
	p := filepath.Join(t.TempDir(), "anywhere", "config.toml")

	got, err := ph.ConfigPath(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != p {
		t.Errorf("got %s, want %s", got, p)
	}
	if len(ph.Validator().StateDirs) != 0 {
		t.Error("permissive handler should not bound state dirs")
	}
}

func TestEnsureDirectory(t *testing.T) {
	ph := NewPermissivePathHandler()
	dir := filepath.Join(t.TempDir(), "logs", "nested")

	got, err := ph.EnsureDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s", got)
	}

	// Idempotent.
	if _, err := ph.EnsureDirectory(dir); err != nil {
		t.Errorf("second call failed: %v", err)
	}
}
