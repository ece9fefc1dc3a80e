package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	def := defaultConfig()
	return &Config{
		Database: DatabaseConfig{
			Path:    ":memory:", // callers swap in t.TempDir() for bbolt
			Timeout: 1 * time.Second,
		},
		Search: SearchConfig{
			Prefilter:      false,
			DebounceMillis: 0,
		},
		UI:    def.UI,
		Media: def.Media,
		Keys:  def.Keys,
		Log:   LogConfig{Level: "off"},
	}
}
