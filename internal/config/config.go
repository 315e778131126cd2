// Package config loads grepy settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/grepy/internal/model"
)

// FileNames are the config files looked up in the working directory, in
// order, when no path is given.
var FileNames = []string{".grepy.yaml", ".grepy.yml", ".grepy.toml"}

// Output formats.
const (
	FormatText = "text"
	FormatTOON = "toon"
	FormatJSON = "json"
)

// Config holds all configuration for grepy.
type Config struct {
	// Units are the unit kinds searched when no -f/-c flag is given.
	Units   []string      `yaml:"units" toml:"units"`
	Search  SearchConfig  `yaml:"search" toml:"search"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// SearchConfig controls which files are searched and how.
type SearchConfig struct {
	Includes    []string `yaml:"includes" toml:"includes"`
	Excludes    []string `yaml:"excludes" toml:"excludes"`
	SkipTests   bool     `yaml:"skip_tests" toml:"skip_tests"`
	Workers     int      `yaml:"workers" toml:"workers"` // 0 = GOMAXPROCS
	MaxFileSize int64    `yaml:"max_file_size" toml:"max_file_size"`

	// MatchTimeout bounds one pattern match, as a Go duration ("5s").
	// Empty or "0" means no limit.
	MatchTimeout string `yaml:"match_timeout" toml:"match_timeout"`
}

// OutputConfig controls reporting.
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"` // "text", "toon", "json"
	Color  bool   `yaml:"color" toml:"color"`
	Theme  string `yaml:"theme" toml:"theme"`
}

// CacheConfig holds result cache settings. An empty path disables caching.
type CacheConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Units: []string{string(model.Function), string(model.Class)},
		Search: SearchConfig{
			Includes:     []string{},
			Excludes:     []string{},
			SkipTests:    false,
			Workers:      0,
			MaxFileSize:  1_000_000,
			MatchTimeout: "5s",
		},
		Output: OutputConfig{
			Format: FormatText,
			Color:  false,
			Theme:  "monokai",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads the config file at path over the defaults. The format is
// chosen by extension: .toml is TOML, anything else YAML. A missing file
// is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads the first of FileNames found in dir, or the defaults
// if there is none. The returned path is "" when defaults were used.
func LoadFromDir(dir string) (*Config, string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, "", cfg.Validate()
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	for _, u := range c.Units {
		if _, err := model.ParseUnitKind(u); err != nil {
			errs = append(errs, fmt.Errorf("units: %w", err))
		}
	}
	if c.Search.Workers < 0 {
		errs = append(errs, fmt.Errorf("search.workers=%d must not be negative", c.Search.Workers))
	}
	if c.Search.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("search.max_file_size=%d must not be negative", c.Search.MaxFileSize))
	}
	if _, err := c.MatchTimeout(); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Format {
	case FormatText, FormatTOON, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output.format=%q must be one of text, toon, json", c.Output.Format))
	}

	return errors.Join(errs...)
}

// UnitKinds returns the configured units as kinds, in configured order.
// A kind named more than once is returned once.
func (c *Config) UnitKinds() []model.UnitKind {
	var kinds []model.UnitKind
	for _, u := range c.Units {
		if k, err := model.ParseUnitKind(u); err == nil && !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// MatchTimeout parses search.match_timeout. Zero means no limit.
func (c *Config) MatchTimeout() (time.Duration, error) {
	if c.Search.MatchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Search.MatchTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("search.match_timeout=%q must be a non-negative duration such as 5s", c.Search.MatchTimeout)
	}
	return d, nil
}

const fileHeader = `# grepy configuration.
# Command-line flags override these values; see "grepy --help".

`

// Marshal encodes c in the format implied by path's extension, behind a
// comment header. Both formats use # comments.
func (c *Config) Marshal(path string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

// Save writes c to path. An existing file is replaced only when overwrite
// is set.
func (c *Config) Save(path string, overwrite bool) error {
	data, err := c.Marshal(path)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"GREPY_LOG_LEVEL", func(v string) {
			if v != "" {
				cfg.Logging.Level = v
			}
		}},
		{"GREPY_CACHE", func(v string) {
			if v != "" {
				cfg.Cache.Path = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}
