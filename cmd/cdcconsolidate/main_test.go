package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/cdcconsolidate/config"
	"github.com/rcowham/cdcconsolidate/internal/report"
)

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	return l
}

func TestRunWritesDayFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{BaseDir: dir, Table: "db.metrics", Ext: "parquet"}

	input := "" +
		"INSERT INTO `db`.`metrics`\n" +
		"SET\n" +
		"@1=1\n" +
		"@3='2025-01-02 03:04:05'\n" +
		"@4=10.0\n" +
		"@6=1735787045\n"

	var out bytes.Buffer
	rep := report.New(&out)
	code := run(newTestLogger(), cfg, rep, strings.NewReader(input), false, "", time.Now())
	rep.Close()

	require.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(dir, "2025-01-02.parquet"))
	assert.Contains(t, out.String(), "updated")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{BaseDir: dir, Table: "db.metrics", Ext: "parquet"}

	input := "" +
		"INSERT INTO `db`.`metrics`\n" +
		"SET\n" +
		"@1=1\n" +
		"@3='2025-01-02 03:04:05'\n" +
		"@4=10.0\n" +
		"@6=1735787045\n"

	var out bytes.Buffer
	rep := report.New(&out)
	code := run(newTestLogger(), cfg, rep, strings.NewReader(input), true, "", time.Now())
	rep.Close()

	require.Equal(t, 0, code)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFatalParseErrorExitsOne(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{BaseDir: dir, Table: "db.metrics", Ext: "parquet"}

	input := "" +
		"INSERT INTO `db`.`metrics`\n" +
		"SET\n" +
		"@3='2025-01-02 03:04:05'\n" +
		"@4=10.0\n" +
		"@6=1735787045\n"

	var out bytes.Buffer
	rep := report.New(&out)
	code := run(newTestLogger(), cfg, rep, strings.NewReader(input), false, "", time.Now())
	rep.Close()

	assert.Equal(t, 1, code)
}
