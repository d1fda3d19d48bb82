package dayfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/cdcconsolidate/internal/rowmodel"
)

func val(f float64) *float64 { return &f }

func TestApplyNoOpWhenNothingTouched(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")
	res, err := w.Apply("2025-01-01", nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	_, statErr := os.Stat(res.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInsertThenReadBack(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")

	inserts := map[int64]rowmodel.Row{
		1: {ID: 1, DateTime: "2025-01-02 03:05:00", Value: val(11.0), Ts: "2025-01-02 05:05:00"},
	}
	res, err := w.Apply("2025-01-02", inserts, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Rows)
	assert.FileExists(t, filepath.Join(dir, "2025-01-02.parquet"))

	table, err := w.load(res.Path)
	require.NoError(t, err)
	require.Contains(t, table, int64(1))
	assert.Equal(t, "2025-01-02 03:05:00", table[1].DateTime)
	require.NotNil(t, table[1].Value)
	assert.Equal(t, 11.0, *table[1].Value)
}

func TestDeleteLastRowRemovesFile(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")

	inserts := map[int64]rowmodel.Row{
		7: {ID: 7, DateTime: "2025-01-03 10:00:00", Value: val(1.0), Ts: "2025-01-03 12:00:00"},
	}
	_, err := w.Apply("2025-01-03", inserts, nil, nil)
	require.NoError(t, err)

	res, err := w.Apply("2025-01-03", nil, nil, map[int64]struct{}{7: {}})
	require.NoError(t, err)
	assert.True(t, res.Removed)
	_, statErr := os.Stat(res.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpdateAgainstUnknownPKIsNoOp(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")

	updates := map[int64]rowmodel.Row{
		99: {ID: 99, DateTime: "2025-01-04 12:00:00", Value: val(5.0), Ts: "2025-01-04 14:00:00"},
	}
	res, err := w.Apply("2025-01-04", nil, updates, nil)
	require.NoError(t, err)
	// The update is skipped because pk 99 is not in the (empty) table,
	// so the table stays empty and Apply writes no file.
	_, statErr := os.Stat(res.Path)
	assert.True(t, os.IsNotExist(statErr), "update against an unknown pk must not create a row")
}

func TestUpsertOverwritesExistingRow(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")

	first := map[int64]rowmodel.Row{
		1: {ID: 1, DateTime: "2025-01-05 00:00:00", Value: val(1.0), Ts: "2025-01-05 02:00:00"},
	}
	_, err := w.Apply("2025-01-05", first, nil, nil)
	require.NoError(t, err)

	second := map[int64]rowmodel.Row{
		1: {ID: 1, DateTime: "2025-01-05 01:00:00", Value: val(2.0), Ts: "2025-01-05 03:00:00"},
	}
	res, err := w.Apply("2025-01-05", second, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	table, err := w.load(res.Path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *table[1].Value)
}

func TestDeleteAndInsertOfSamePKResolvesToInsert(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")

	seed := map[int64]rowmodel.Row{
		1: {ID: 1, DateTime: "2025-01-06 00:00:00", Value: val(1.0), Ts: "2025-01-06 02:00:00"},
	}
	_, err := w.Apply("2025-01-06", seed, nil, nil)
	require.NoError(t, err)

	// A pk appearing in both Deletes and Inserts after collapse resolves
	// to the insert, since deletes apply first.
	inserts := map[int64]rowmodel.Row{
		1: {ID: 1, DateTime: "2025-01-06 03:00:00", Value: val(3.0), Ts: "2025-01-06 05:00:00"},
	}
	deletes := map[int64]struct{}{1: {}}
	res, err := w.Apply("2025-01-06", inserts, nil, deletes)
	require.NoError(t, err)
	table, err := w.load(res.Path)
	require.NoError(t, err)
	require.Contains(t, table, int64(1))
	assert.Equal(t, 3.0, *table[1].Value)
}

func TestMissingFileIsEmptyTableNotError(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, dir, "parquet")
	table, err := w.load(filepath.Join(dir, "2025-09-09.parquet"))
	require.NoError(t, err)
	assert.Empty(t, table)
}
