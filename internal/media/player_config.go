package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/chatlens/internal/debuglog"
)

//go:embed players.toml
var playersTOML []byte

// PlayerDefinition defines how an opener is invoked per attachment type.
type PlayerDefinition struct {
	Description string           `toml:"description"`
	Platforms   []string         `toml:"platforms"`
	Video       *MediaTypeConfig `toml:"video,omitempty"`
	Audio       *MediaTypeConfig `toml:"audio,omitempty"`
	Image       *MediaTypeConfig `toml:"image,omitempty"`
	Document    *MediaTypeConfig `toml:"document,omitempty"`
}

// MediaTypeConfig holds arguments for one attachment type.
type MediaTypeConfig struct {
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

type PlayersConfig struct {
	Players map[string]PlayerDefinition `toml:"players"`
}

// PlayerRegistry manages player definitions.
type PlayerRegistry struct {
	players map[string]PlayerDefinition
	goos    string
}

// NewPlayerRegistry creates a registry from the embedded table, merged with
// ~/.config/chatlens/players.toml when present.
func NewPlayerRegistry() (*PlayerRegistry, error) {
	registry, err := parseRegistry(playersTOML)
	if err != nil {
		return nil, err
	}
	if home, homeErr := os.UserHomeDir(); homeErr == nil {
		registry.mergeFile(filepath.Join(home, ".config", "chatlens", "players.toml"))
	}
	return registry, nil
}

func parseRegistry(data []byte) (*PlayerRegistry, error) {
	var config PlayersConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing players.toml: %w", err)
	}
	if config.Players == nil {
		config.Players = make(map[string]PlayerDefinition)
	}
	return &PlayerRegistry{players: config.Players, goos: runtime.GOOS}, nil
}

// mergeFile overlays user definitions; user entries win.
func (r *PlayerRegistry) mergeFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var user PlayersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		debuglog.Warnf("Ignoring %s: %v", path, err)
		return
	}
	for name, def := range user.Players {
		r.players[name] = def
	}
	debuglog.Debugf("Merged %d player definitions from %s", len(user.Players), path)
}

// Args returns the arguments to pass before the file for the given opener
// and type. Unknown openers take no arguments.
func (r *PlayerRegistry) Args(playerName string, mediaType Type) ([]string, error) {
	player, exists := r.players[playerName]
	if !exists {
		return nil, nil
	}

	supported := false
	for _, p := range player.Platforms {
		if p == r.goos {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("%s not supported on %s", playerName, r.goos)
	}

	var config *MediaTypeConfig
	switch mediaType {
	case TypeVideo:
		config = player.Video
	case TypeAudio:
		config = player.Audio
	case TypeImage:
		config = player.Image
	case TypeDocument:
		config = player.Document
	}
	if config == nil {
		return nil, fmt.Errorf("%s doesn't support %s attachments", playerName, mediaType)
	}

	return r.platformArgs(config), nil
}

func (r *PlayerRegistry) platformArgs(config *MediaTypeConfig) []string {
	switch r.goos {
	case "darwin":
		if len(config.ArgsDarwin) > 0 {
			return config.ArgsDarwin
		}
	case "linux":
		if len(config.ArgsLinux) > 0 {
			return config.ArgsLinux
		}
	case "windows":
		if len(config.ArgsWindows) > 0 {
			return config.ArgsWindows
		}
	}
	return config.Args
}

// Command builds the command that opens file.
func (r *PlayerRegistry) Command(playerName string, mediaType Type, file string) (*exec.Cmd, error) {
	args, err := r.Args(playerName, mediaType)
	if err != nil {
		return nil, err
	}
	args = append(append([]string(nil), args...), file)
	return exec.Command(playerName, args...), nil
}
