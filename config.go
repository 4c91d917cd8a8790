package nxsearch

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFile is the optional engine configuration, relative to the
// base directory.
const configFile = "nxsearch.yaml"

// Config holds the engine configuration. Functional options on Open
// take precedence over values loaded from disk.
type Config struct {
	// Language is the default ISO 639-1 language code for new
	// indexes.
	Language string `yaml:"language"`
	// Filters is the filter pipeline applied by indexes, in order.
	Filters []string `yaml:"filters"`
	// LogLevel enables logging at the given zerolog level when set.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file or
// options override it: the standard English pipeline.
func DefaultConfig() Config {
	return Config{
		Language: "en",
		Filters:  []string{"normalizer", "stopwords", "stemmer"},
	}
}

// loadConfig reads <basedir>/nxsearch.yaml when present, filling in
// defaults for unset fields. A missing file yields the defaults.
func loadConfig(basedir string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(basedir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Filters == nil {
		cfg.Filters = DefaultConfig().Filters
	}
	return cfg, nil
}
