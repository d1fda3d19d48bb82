package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const defaultConfig = `
base_dir: /data/cdc
table: metrics.samples
`

const badTableConfig = `
table: no_dot_here
`

const badLevelConfig = `
log_level: shouty
`

func loadOrFail(t *testing.T, raw string) *Config {
	t.Helper()
	cfg, err := Unmarshal([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestValidConfig(t *testing.T) {
	cfg := loadOrFail(t, defaultConfig)
	assert.Equal(t, "/data/cdc", cfg.BaseDir)
	assert.Equal(t, "metrics.samples", cfg.Table)
	assert.Equal(t, DefaultExt, cfg.Ext)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestEmptyConfig(t *testing.T) {
	cfg := loadOrFail(t, "")
	assert.Equal(t, "", cfg.BaseDir)
	assert.Equal(t, "", cfg.Table)
	assert.Equal(t, DefaultExt, cfg.Ext)
}

func TestBadTableRejected(t *testing.T) {
	_, err := Unmarshal([]byte(badTableConfig))
	assert.Error(t, err)
}

func TestBadLogLevelRejected(t *testing.T) {
	_, err := Unmarshal([]byte(badLevelConfig))
	assert.Error(t, err)
}

func TestQualified(t *testing.T) {
	cfg := loadOrFail(t, defaultConfig)
	assert.Equal(t, "`metrics`.`samples`", cfg.Qualified())
}

func TestQualifiedEmptyTable(t *testing.T) {
	cfg := loadOrFail(t, "")
	assert.Equal(t, "", cfg.Qualified())
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile("/nonexistent/path/to/cdcconsolidate.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, DefaultExt, cfg.Ext)
}
