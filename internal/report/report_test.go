package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportLines(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	require.NoError(t, r.WriteHeader("db.metrics", "/data/cdc"))
	require.NoError(t, r.WriteUpdated("/data/cdc/2025-01-02.parquet", 3))
	require.NoError(t, r.WriteRemoved("/data/cdc/2025-01-03.parquet"))
	require.NoError(t, r.WriteTotal(1500*time.Millisecond, 2))
	require.NoError(t, r.Close())

	out := buf.String()
	assert.Contains(t, out, "table=db.metrics base=/data/cdc")
	assert.Contains(t, out, "updated /data/cdc/2025-01-02.parquet rows=3")
	assert.Contains(t, out, "removed /data/cdc/2025-01-03.parquet")
	assert.Contains(t, out, "done: days=2 elapsed=1.5s")
}

func TestSetWriterRedirects(t *testing.T) {
	var first, second bytes.Buffer
	r := New(&first)
	r.SetWriter(&second)
	require.NoError(t, r.WriteUpdated("x", 1))
	require.NoError(t, r.Close())
	assert.Empty(t, first.String())
	assert.Contains(t, second.String(), "updated x rows=1")
}
