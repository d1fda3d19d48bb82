// Package dayfile is the read-modify-write layer against one calendar
// day's columnar dataset: load the existing file (if any), apply
// deletes, then updates, then inserts, and atomically replace the file
// on disk.
package dayfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	preader "github.com/xitongsys/parquet-go/reader"
	pwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/rcowham/cdcconsolidate/internal/rowmodel"
)

// rowGroupBytes targets a ~1MiB uncompressed row-group size.
const rowGroupBytes = 1024 * 1024

// parquetMagic is the 4-byte header (and footer) every well-formed
// parquet file carries; used as a cheap corruption sniff before
// trusting an existing day file's bytes.
const parquetMagic = "PAR1"

// Writer applies a day's collapsed effect set to its on-disk file.
type Writer struct {
	BaseDir string
	Ext     string
	logger  *logrus.Logger
}

func New(logger *logrus.Logger, baseDir, ext string) *Writer {
	if logger == nil {
		logger = logrus.New()
	}
	if ext == "" {
		ext = "parquet"
	}
	return &Writer{BaseDir: baseDir, Ext: ext, logger: logger}
}

func (w *Writer) path(day string) string {
	return filepath.Join(w.BaseDir, day+"."+w.Ext)
}

// Result reports what happened to one day's file, for the driver's
// summary line.
type Result struct {
	Day     string
	Path    string
	Rows    int
	Removed bool
	Changed bool
}

// Apply reconciles one day's collapsed effect set against its on-disk
// file. deletes removes by pk; updates replace only pks already in the
// table; inserts upsert by pk. The
// three maps may be nil/empty, in which case Apply is a no-op: an
// untouched day's file is never opened.
func (w *Writer) Apply(day string, inserts, updates map[int64]rowmodel.Row, deletes map[int64]struct{}) (Result, error) {
	res := Result{Day: day, Path: w.path(day)}
	if len(inserts) == 0 && len(updates) == 0 && len(deletes) == 0 {
		return res, nil
	}

	table, err := w.load(res.Path)
	if err != nil {
		return res, err
	}

	for pk := range deletes {
		delete(table, pk)
	}
	for pk, row := range updates {
		if _, exists := table[pk]; exists {
			table[pk] = row
		}
		// pk not present: an UPDATE against a row never stored in this
		// day's partition is a silent no-op.
	}
	for pk, row := range inserts {
		table[pk] = row // upsert: an insert always wins, even over an existing row
	}

	if len(table) == 0 {
		existed, err := removeIfExists(res.Path)
		if err != nil {
			return res, fmt.Errorf("removing %s: %w", res.Path, err)
		}
		res.Removed = existed
		res.Changed = existed
		return res, nil
	}

	res.Changed = true

	if err := w.writeAtomic(res.Path, table); err != nil {
		return res, err
	}
	res.Rows = len(table)
	return res, nil
}

// load reads an existing day file into a pk-keyed map. A missing file
// is not an error: it is treated as an empty table.
func (w *Writer) load(path string) (map[int64]rowmodel.Row, error) {
	table := make(map[int64]rowmodel.Row)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	head := make([]byte, 261) // filetype.Match inspects up to this many header bytes
	n, _ := f.Read(head)
	head = head[:n]
	f.Close()
	if n > 0 {
		kind, err := filetype.Match(head)
		if err != nil {
			return nil, fmt.Errorf("sniffing %s: %w", path, err)
		}
		if kind != filetype.Unknown || !hasParquetMagic(head) {
			return nil, fmt.Errorf("reading %s: does not look like a parquet file", path)
		}
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := preader.NewParquetReader(fr, new(rowmodel.Row), 4)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer pr.ReadStop()

	n64 := int(pr.GetNumRows())
	rows := make([]rowmodel.Row, n64)
	if n64 > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	for _, r := range rows {
		table[r.ID] = r
	}
	return table, nil
}

func hasParquetMagic(head []byte) bool {
	return len(head) >= 4 && string(head[:4]) == parquetMagic
}

// writeAtomic writes table to a sibling temp file, fsyncs it, and
// renames it over path, so readers elsewhere never observe a
// partially-written file: only the rename makes the new content
// visible.
func (w *Writer) writeAtomic(path string, table map[int64]rowmodel.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	pw, err := pwriter.NewParquetWriter(fw, new(rowmodel.Row), 4)
	if err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("creating parquet writer for %s: %w", tmp, err)
	}
	pw.RowGroupSize = rowGroupBytes
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range table {
		row := row
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(tmp)
			return fmt.Errorf("writing row id=%d to %s: %w", row.ID, tmp, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing %s: %w", tmp, err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := fsyncPath(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

// fsyncPath fsyncs the already-written temp file before the rename in
// writeAtomic, so the rename can never expose a torn write after a
// crash mid-batch.
func fsyncPath(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// removeIfExists removes path and reports whether it was present.
func removeIfExists(path string) (existed bool, err error) {
	err = os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
