// Package report writes the driver's per-run summary: one line per
// updated day file, one line per removed day file, and a final
// elapsed-time line. Output is buffered: it reaches its target when the
// buffer fills, and whatever remains is flushed on Close.
package report

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// Report buffers one run's summary lines before they reach w.
type Report struct {
	w   *bufio.Writer
	std io.Writer
}

// New wraps w (typically stdout) in a buffered writer.
func New(w io.Writer) *Report {
	return &Report{w: bufio.NewWriter(w), std: w}
}

// SetWriter redirects subsequent output to w, discarding any content
// buffered for the previous target.
func (r *Report) SetWriter(w io.Writer) {
	r.std = w
	r.w = bufio.NewWriter(w)
}

// WriteHeader emits the one-line run banner.
func (r *Report) WriteHeader(table, baseDir string) error {
	_, err := fmt.Fprintf(r.w, "cdcconsolidate: table=%s base=%s\n", table, baseDir)
	return err
}

// WriteUpdated reports a day file that now holds rowCount rows.
func (r *Report) WriteUpdated(path string, rowCount int) error {
	_, err := fmt.Fprintf(r.w, "updated %s rows=%d\n", path, rowCount)
	return err
}

// WriteRemoved reports a day file deleted because its table emptied
// out.
func (r *Report) WriteRemoved(path string) error {
	_, err := fmt.Fprintf(r.w, "removed %s\n", path)
	return err
}

// WriteTotal emits the final wall-clock line.
func (r *Report) WriteTotal(elapsed time.Duration, daysTouched int) error {
	_, err := fmt.Fprintf(r.w, "done: days=%d elapsed=%s\n", daysTouched, elapsed.Round(time.Millisecond))
	return err
}

// Close flushes any buffered output.
func (r *Report) Close() error {
	return r.w.Flush()
}
