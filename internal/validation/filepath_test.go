package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFilePathValidator(t *testing.T) {
	v := NewFilePathValidator()
	if v.MaxPathLength != 4096 {
		t.Errorf("Expected MaxPathLength to be 4096, got %d", v.MaxPathLength)
	}
	if len(v.StateDirs) != 3 {
		t.Fatalf("Expected three state dirs, got %v", v.StateDirs)
	}
	if !strings.HasSuffix(v.StateDirs[0], ".chatlens") {
		t.Errorf("Expected ~/.chatlens first, got %s", v.StateDirs[0])
	}

	if p := NewPermissiveFilePathValidator(); len(p.StateDirs) != 0 {
		t.Error("Expected permissive validator to allow any directory")
	}
}

func TestClean(t *testing.T) {
	v := NewFilePathValidator()
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "null byte", input: "/tmp/a\x00b", wantErr: true},
		{name: "control char", input: "/tmp/a\x01b", wantErr: true},
		{name: "too long", input: "/" + strings.Repeat("a", 5000), wantErr: true},
		{name: "tilde user", input: "~root/x", wantErr: true},
		{name: "absolute", input: "/tmp/x.json", want: "/tmp/x.json"},
		{name: "cleaned", input: "/tmp//a/../x.json", want: "/tmp/x.json"},
		{name: "home", input: "~/exports/x.json", want: filepath.Join(home, "exports", "x.json")},
		{name: "relative", input: "exports/x.json", want: filepath.Join(cwd, "exports", "x.json")},
		{name: "tab allowed", input: "/tmp/a\tb", want: "/tmp/a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Clean(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Clean(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Clean(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanErrors(t *testing.T) {
	v := NewFilePathValidator()
	if _, err := v.Clean(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
	if _, err := v.Clean("/a\x00"); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("expected ErrUnsafePath, got %v", err)
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(`{"messages":[]}`), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	jsonFile := write("result.json")
	zstFile := write("result.json.zst")
	upper := write("RESULT.JSON")
	txt := write("notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "folder.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	// Exports may live outside the state directories.
	v := NewFilePathValidator()
	v.StateDirs = []string{filepath.Join(dir, "elsewhere")}

	for _, p := range []string{jsonFile, zstFile, upper} {
		got, info, err := v.ExportFile(p)
		if err != nil {
			t.Errorf("ExportFile(%s) unexpected error: %v", p, err)
			continue
		}
		if got != p {
			t.Errorf("ExportFile(%s) = %s", p, got)
		}
		if info.Size() == 0 {
			t.Errorf("ExportFile(%s) returned empty file info", p)
		}
	}

	if _, _, err := v.ExportFile(txt); !errors.Is(err, ErrUnsupportedExport) {
		t.Errorf("expected ErrUnsupportedExport, got %v", err)
	}
	if _, _, err := v.ExportFile(filepath.Join(dir, "folder.json")); !errors.Is(err, ErrNotRegularFile) {
		t.Errorf("expected ErrNotRegularFile, got %v", err)
	}
	if _, _, err := v.ExportFile(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
	if _, _, err := v.ExportFile(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestStateFile(t *testing.T) {
	base := t.TempDir()
	v := &FilePathValidator{StateDirs: []string{base}, MaxPathLength: 4096}

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "inside", input: filepath.Join(base, "history.db")},
		{name: "nested", input: filepath.Join(base, "sub", "chatlens.log")},
		{name: "base itself is a directory", input: base, wantErr: errors.New("directory")},
		{name: "outside", input: filepath.Join(filepath.Dir(base), "other.db"), wantErr: ErrOutsideStateDirs},
		{name: "escapes via dot dot", input: base + "/../escape.db", wantErr: ErrOutsideStateDirs},
		{name: "sibling with shared prefix", input: base + "-evil/x.db", wantErr: ErrOutsideStateDirs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.StateFile(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != filepath.Clean(tt.input) {
					t.Errorf("got %s, want %s", got, filepath.Clean(tt.input))
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %s", tt.input)
			}
			if errors.Is(tt.wantErr, ErrOutsideStateDirs) && !errors.Is(err, ErrOutsideStateDirs) {
				t.Errorf("expected ErrOutsideStateDirs, got %v", err)
			}
		})
	}
}

func TestStateFilePermissive(t *testing.T) {
	v := NewPermissiveFilePathValidator()
	p := filepath.Join(t.TempDir(), "anywhere.db")
	if _, err := v.StateFile(p); err != nil {
		t.Errorf("permissive validator rejected %s: %v", p, err)
	}
}

func TestStateDir(t *testing.T) {
	base := t.TempDir()
	v := &FilePathValidator{StateDirs: []string{base}}

	target := filepath.Join(base, "a", "b")
	got, err := v.StateDir(target, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(got); !os.IsNotExist(statErr) {
		t.Error("directory should not be created when create is false")
	}

	got, err = v.StateDir(target, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, statErr := os.Stat(got); statErr != nil || !info.IsDir() {
		t.Errorf("expected directory to be created at %s", got)
	}

	file := filepath.Join(base, "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := v.StateDir(file, true); err == nil {
		t.Error("expected error for a file path")
	}

	if _, err := v.StateDir("/definitely/not/under/base", true); !errors.Is(err, ErrOutsideStateDirs) {
		t.Errorf("expected ErrOutsideStateDirs, got %v", err)
	}
}

func TestIsPathSafe(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/tmp/export.json", true},
		{"~/exports/result.json", true},
		{"../etc/passwd", false},
		{"..\\windows", false},
		{"/tmp/a\x00", false},
		{"/" + strings.Repeat("a", 5000), false},
	}
	for _, tt := range tests {
		if got := IsPathSafe(tt.path); got != tt.want {
			t.Errorf("IsPathSafe(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
