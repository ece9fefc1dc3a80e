package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	// Prefilter narrows candidates with an in-memory bleve index before the
	// substring matcher runs. Results are identical either way.
	Prefilter      bool `mapstructure:"prefilter"`
	DebounceMillis int  `mapstructure:"debounce_millis"`
}

type UIConfig struct {
	Colors      UIColors   `mapstructure:"colors"`
	DefaultView string     `mapstructure:"default_view"`
	WatchFile   bool       `mapstructure:"watch_file"`
	Message     CardConfig `mapstructure:"message"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
	Highlight  string `mapstructure:"highlight"`
}

// CardConfig controls the excerpt shown in card view.
type CardConfig struct {
	ExcerptLead      int `mapstructure:"excerpt_lead"`
	ExcerptThreshold int `mapstructure:"excerpt_threshold"`
	ExcerptMinLength int `mapstructure:"excerpt_min_length"`
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

type MediaConfig struct {
	Darwin        MediaOpeners `mapstructure:"darwin"`
	Linux         MediaOpeners `mapstructure:"linux"`
	Windows       MediaOpeners `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

type MediaOpeners struct {
	Video    []string `mapstructure:"video"`
	Image    []string `mapstructure:"image"`
	Audio    []string `mapstructure:"audio"`
	Document []string `mapstructure:"document"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit       string `mapstructure:"quit"`
	Search     string `mapstructure:"search"`
	OpenFile   string `mapstructure:"open_file"`
	ToggleView string `mapstructure:"toggle_view"`
	LoadMore   string `mapstructure:"load_more"`
	Context    string `mapstructure:"context"`
	Copy       string `mapstructure:"copy"`
	OpenMedia  string `mapstructure:"open_media"`
	Info       string `mapstructure:"info"`
	Back       string `mapstructure:"back"`
	Help       string `mapstructure:"help"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Database: DatabaseConfig{
			Path:    filepath.Join(homeDir, ".chatlens", "history.db"),
			Timeout: 1 * time.Second,
		},
		Search: SearchConfig{
			Prefilter:      true,
			DebounceMillis: 300,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
				Highlight:  "#FDE68A",
			},
			DefaultView: "card",
			WatchFile:   false,
			Message: CardConfig{
				ExcerptLead:      100,
				ExcerptThreshold: 150,
				ExcerptMinLength: 300,
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
		},
		Media: MediaConfig{
			Darwin: MediaOpeners{
				Video:    []string{"iina", "mpv", "vlc"},
				Image:    []string{"preview", "open"},
				Audio:    []string{"mpv", "vlc", "open"},
				Document: []string{"preview", "open"},
			},
			Linux: MediaOpeners{
				Video:    []string{"mpv", "vlc", "mplayer"},
				Image:    []string{"sxiv", "feh", "eog", "xdg-open"},
				Audio:    []string{"mpv", "vlc", "mplayer"},
				Document: []string{"zathura", "evince", "xdg-open"},
			},
			Windows: MediaOpeners{
				Video:    []string{"mpv", "vlc"},
				Image:    []string{"start"},
				Audio:    []string{"mpv", "vlc"},
				Document: []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:       "q",
				Search:     "s",
				OpenFile:   "f",
				ToggleView: "v",
				LoadMore:   "m",
				Context:    "c",
				Copy:       "y",
				OpenMedia:  "o",
				Info:       "i",
				Back:       "esc",
				Help:       "?",
			},
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(homeDir, ".chatlens", "chatlens.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// DefaultPath returns ~/.config/chatlens/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "chatlens", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults are registered per leaf so a file that sets one key of a
	// section does not shadow the rest of it.
	for key, value := range flatten(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	// CHATLENS_LOG_LEVEL overrides log.level, and so on.
	v.SetEnvPrefix("CHATLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	normalize(&config)
	expandPaths(&config)

	return &config, nil
}

// normalize replaces out-of-range values with defaults.
func normalize(cfg *Config) {
	def := defaultConfig()
	if cfg.Search.DebounceMillis < 0 {
		cfg.Search.DebounceMillis = 0
	}
	if cfg.UI.DefaultView != "card" && cfg.UI.DefaultView != "list" {
		cfg.UI.DefaultView = def.UI.DefaultView
	}
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	for key, value := range flatten(config) {
		// Durations as strings for TOML readability
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// flatten walks cfg by its mapstructure tags and returns every leaf value
// keyed by its dotted path, e.g. "ui.colors.primary".
func flatten(cfg *Config) map[string]interface{} {
	out := make(map[string]interface{})
	flattenValue("", reflect.ValueOf(cfg).Elem(), out)
	return out
}

func flattenValue(prefix string, v reflect.Value, out map[string]interface{}) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			flattenValue(key, fv, out)
			continue
		}
		out[key] = fv.Interface()
	}
}
