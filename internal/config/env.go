package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "UTOOLS_TEMPLATE_"

// envSetters maps override names (without prefix) to setters.
var envSetters = map[string]func(c *Config, v string) error{
	"LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"LOG_FILE": func(c *Config, v string) error {
		c.Log.File = v
		return nil
	},
	"LOG_PRETTY": func(c *Config, v string) error {
		return setBool(&c.Log.Pretty, v)
	},
	"SEARCH_MODE": func(c *Config, v string) error {
		c.Search.Mode = strings.ToLower(v)
		return nil
	},
	"SEARCH_CASE": func(c *Config, v string) error {
		c.Search.Case = v
		return nil
	},
	"SEARCH_DESCRIPTION": func(c *Config, v string) error {
		return setBool(&c.Search.Description, v)
	},
	"SEARCH_CACHE_SIZE": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Search.CacheSize = n
		return nil
	},
	"SEARCH_MIN_SCORE": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Search.MinScore = n
		return nil
	},
	"COMPILE_STRICT": func(c *Config, v string) error {
		return setBool(&c.Compile.Strict, v)
	},
	"PLUGINS": func(c *Config, v string) error {
		c.Plugins = filepath.SplitList(v)
		return nil
	},
	"EXECUTION_TIMEOUT": func(c *Config, v string) error {
		return c.ExecutionTimeout.UnmarshalText([]byte(v))
	},
}

// EnvNames returns the names of all recognized overrides.
func EnvNames() []string {
	names := make([]string, 0, len(envSetters))
	for name := range envSetters {
		names = append(names, EnvPrefix+name)
	}
	return names
}

// ApplyEnv overrides fields of cfg from UTOOLS_TEMPLATE_* variables.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	for name, set := range envSetters {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

func setBool(dst *bool, s string) error {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		*dst = true
	case "false", "no", "off", "0", "":
		*dst = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}
