// Package config loads the feature host configuration.
//
// Configuration is read from a TOML or YAML file (chosen by extension),
// layered over built-in defaults and then overridden by UTOOLS_TEMPLATE_*
// environment variables:
//
//	plugins = ["${HOME}/.config/utools-template/plugins"]
//
//	[log]
//	level = "debug"
//	file = "~/featurehost.log"
//
//	[search]
//	mode = "pinyin"
//
//	[[features]]
//	code = "hello"
//	explain = "Say hello"
//	cmds = ["hello", { type = "regex", label = "Greet", match = "/^hi/i" }]
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trentlee0/utools-template/internal/fuzzy"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
	"github.com/trentlee0/utools-template/internal/pinyin"
)

// Search modes.
const (
	SearchSubstring = "substring"
	SearchPinyin    = "pinyin"
	SearchFuzzy     = "fuzzy"
)

// Config is the complete host configuration.
type Config struct {
	Log     LogConfig     `toml:"log" yaml:"log"`
	Search  SearchConfig  `toml:"search" yaml:"search"`
	Compile CompileConfig `toml:"compile" yaml:"compile"`

	// Plugins are Lua files or plugin directories. ${VAR} references are
	// expanded.
	Plugins []string `toml:"plugins" yaml:"plugins"`

	// Features is launcher metadata for templates declared by plugins.
	Features []host.FeatureSpec `toml:"features" yaml:"features"`

	// ExecutionTimeout bounds every plugin call, e.g. "5s".
	ExecutionTimeout Duration `toml:"execution_timeout" yaml:"execution_timeout"`

	// Internal: file the configuration was read from
	path string
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	File   string `toml:"file" yaml:"file"`
	Pretty bool   `toml:"pretty" yaml:"pretty"`
}

// SearchConfig configures list filtering and keyword matching.
type SearchConfig struct {
	// Mode is "substring", "pinyin" or "fuzzy".
	Mode string `toml:"mode" yaml:"mode"`

	// Description makes every list filter consider item descriptions.
	Description bool `toml:"description" yaml:"description"`

	// Case is the pattern folding of the phonetic matcher: "lower",
	// "upper" or "sensitive".
	Case string `toml:"case" yaml:"case"`

	// CacheSize bounds memoized romanizations and fuzzy matches.
	CacheSize int `toml:"cache_size" yaml:"cache_size"`

	// MinScore drops weaker fuzzy matches.
	MinScore int `toml:"min_score" yaml:"min_score"`
}

// CompileConfig configures template compilation.
type CompileConfig struct {
	// Strict rejects duplicate feature codes.
	Strict bool `toml:"strict" yaml:"strict"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Search: SearchConfig{
			Mode:      SearchPinyin,
			Case:      "lower",
			CacheSize: pinyin.DefaultCacheSize,
		},
		ExecutionTimeout: Duration(defaultExecutionTimeout),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var problems []string

	if !logging.ValidLevel(c.Log.Level) {
		problems = append(problems, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Search.Mode {
	case SearchSubstring, SearchPinyin, SearchFuzzy:
	default:
		problems = append(problems, fmt.Sprintf("search.mode: must be %q, %q or %q, got %q",
			SearchSubstring, SearchPinyin, SearchFuzzy, c.Search.Mode))
	}
	switch strings.ToLower(c.Search.Case) {
	case "lower", "upper", "sensitive":
	default:
		problems = append(problems, fmt.Sprintf("search.case: unknown case %q", c.Search.Case))
	}
	if c.Search.MinScore < 0 {
		problems = append(problems, fmt.Sprintf("search.min_score: must not be negative, got %d", c.Search.MinScore))
	}
	if c.Search.CacheSize < 0 {
		problems = append(problems, "search.cache_size: must not be negative")
	}
	if c.ExecutionTimeout < 0 {
		problems = append(problems, "execution_timeout: must not be negative")
	}

	seen := make(map[string]bool, len(c.Features))
	for i, spec := range c.Features {
		if _, err := spec.Build(); err != nil {
			problems = append(problems, fmt.Sprintf("features[%d]: %v", i, err))
			continue
		}
		if seen[spec.Code] {
			problems = append(problems, fmt.Sprintf("features[%d]: duplicate code %q", i, spec.Code))
		}
		seen[spec.Code] = true
	}

	if len(problems) > 0 {
		return &ValidationError{Path: c.path, Problems: problems}
	}
	return nil
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// PluginPaths returns the plugin paths with environment references and a
// leading ~ expanded. Relative paths are resolved against the directory of
// the configuration file.
func (c *Config) PluginPaths() []string {
	paths := make([]string, 0, len(c.Plugins))
	for _, p := range c.Plugins {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

// LogFile returns the expanded log file path, or "" to log to stderr.
func (c *Config) LogFile() string {
	if c.Log.File == "" {
		return ""
	}
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) && c.path != "" {
		p = filepath.Join(filepath.Dir(c.path), p)
	}
	return p
}

// BuildFeatures compiles the feature metadata.
func (c *Config) BuildFeatures() ([]host.Feature, error) {
	features := make([]host.Feature, 0, len(c.Features))
	for _, spec := range c.Features {
		f, err := spec.Build()
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}

// Logging returns the logger configuration. The output is left to the
// caller.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// FuzzyOptions returns the fuzzy matcher options.
func (c *Config) FuzzyOptions() fuzzy.Options {
	return fuzzy.Options{
		CaseSensitive: pinyin.ParseCase(c.Search.Case) == pinyin.CaseSensitive,
		MinScore:      c.Search.MinScore,
		CacheSize:     c.Search.CacheSize,
	}
}

// MatchOptions returns the phonetic matcher options.
func (c *Config) MatchOptions() pinyin.Options {
	return pinyin.Options{Case: pinyin.ParseCase(c.Search.Case)}
}
