// Package config loads cdcconsolidate's configuration: an optional YAML
// file plus CLI flag overrides. Unmarshal applies defaults before
// validating so a partial or empty file still produces a usable
// Config.
package config

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

const DefaultExt = "parquet"
const DefaultLogLevel = "info"

// Config is the fully resolved run configuration.
type Config struct {
	BaseDir  string `yaml:"base_dir"`
	Table    string `yaml:"table"` // "database.table", backtick-free
	Ext      string `yaml:"ext"`
	LogLevel string `yaml:"log_level"`
}

// Unmarshal parses a YAML config payload, applying defaults first so
// an empty or partial file still produces a usable Config.
func Unmarshal(raw []byte) (*Config, error) {
	cfg := &Config{
		Ext:      DefaultExt,
		LogLevel: DefaultLogLevel,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and parses a YAML config file. A missing file is not
// an error: it is treated the same as an empty one, since every field
// can be supplied instead via CLI flag overrides.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Unmarshal(nil)
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Unmarshal(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %w", path, err)
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Table != "" && strings.Count(c.Table, ".") != 1 {
		return fmt.Errorf("table %q must be in \"database.table\" form", c.Table)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unrecognized log level %q", c.LogLevel)
	}
	return nil
}

// Qualified renders Table as the backtick-quoted wire form the reader
// matches against statement headers: `` `db`.`table` ``.
func (c *Config) Qualified() string {
	parts := strings.SplitN(c.Table, ".", 2)
	if len(parts) != 2 {
		return ""
	}
	return fmt.Sprintf("`%s`.`%s`", parts[0], parts[1])
}
