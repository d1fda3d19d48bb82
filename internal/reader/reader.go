// Package reader scans the decoded, line-oriented binlog statement text
// produced by the upstream extractor and yields structured row events for
// one configured `db`.`table`.
//
// A goroutine owns the scanner, sends completed records on a buffered
// channel and closes it on EOF; the caller drains the channel and then
// checks a side error value for a fatal parse failure.
package reader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rcowham/cdcconsolidate/internal/rowmodel"
)

// Stats summarizes one run of the reader; the driver logs it at info
// level once the stream is drained.
type Stats struct {
	BlocksSeen    int
	BlocksEmitted int
	BlocksDropped int
}

// Reader scans a stream for blocks belonging to Qualified (a
// `database`.`table` pair formatted as the wire form's backtick-quoted
// header: `` `db`.`table` ``).
type Reader struct {
	Qualified string
	logger    *logrus.Logger
}

func New(logger *logrus.Logger, qualified string) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reader{Qualified: qualified, logger: logger}
}

func (r *Reader) insertHeader() string { return "INSERT INTO " + r.Qualified }
func (r *Reader) updateHeader() string { return "UPDATE " + r.Qualified }
func (r *Reader) deleteHeader() string { return "DELETE FROM " + r.Qualified }

// block accumulates assignments for one statement while it is being
// scanned.
type block struct {
	kind   rowmodel.Kind
	pk     int64
	havePK bool
	dt     string
	haveDt bool
	val    *float64
	haveVal bool
	ts     uint64
	haveTs bool
	bad    bool
}

// ParseError is a fatal input error: the batch must not write any
// partial state once one of these is encountered.
type ParseError struct {
	PK  int64
	Msg string
}

func (e *ParseError) Error() string {
	if e.PK != 0 {
		return fmt.Sprintf("pk=%d: %s", e.PK, e.Msg)
	}
	return e.Msg
}

// Run scans in from start to EOF, sending one Event per completed block
// on the returned channel. The channel is closed when the stream is
// exhausted or a fatal parse error is hit; the error (nil on a clean
// EOF) is sent to errc exactly once before the channel closes.
func (r *Reader) Run(in io.Reader) (<-chan rowmodel.Event, <-chan error, *Stats) {
	out := make(chan rowmodel.Event, 64)
	errc := make(chan error, 1)
	stats := &Stats{}

	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		var cur *block
		flush := func() error {
			if cur == nil {
				return nil
			}
			b := cur
			cur = nil
			if b.bad {
				stats.BlocksDropped++
				return nil
			}
			ev, err := finishBlock(b)
			if err != nil {
				return err
			}
			if ev == nil {
				stats.BlocksDropped++
				return nil
			}
			stats.BlocksEmitted++
			out <- *ev
			return nil
		}

		for scanner.Scan() {
			line := strings.Trim(scanner.Text(), " \t")
			if line == "" {
				continue
			}
			switch {
			case line == r.insertHeader():
				if err := flush(); err != nil {
					errc <- err
					return
				}
				stats.BlocksSeen++
				cur = &block{kind: rowmodel.Insert}
			case line == r.updateHeader():
				if err := flush(); err != nil {
					errc <- err
					return
				}
				stats.BlocksSeen++
				cur = &block{kind: rowmodel.Update}
			case line == r.deleteHeader():
				if err := flush(); err != nil {
					errc <- err
					return
				}
				stats.BlocksSeen++
				cur = &block{kind: rowmodel.Delete}
			case strings.HasPrefix(line, "INSERT INTO ") || strings.HasPrefix(line, "UPDATE ") || strings.HasPrefix(line, "DELETE FROM "):
				// Header for another table: it ends the current block, and
				// the assignments under it are not consumed.
				if err := flush(); err != nil {
					errc <- err
					return
				}
			case line == "SET" || line == "WHERE":
				// Layout marker only; assignments are read regardless of
				// which section they fall under.
			case cur != nil && strings.HasPrefix(line, "@"):
				applyAssignment(cur, line, r.logger)
			default:
				// Outside any tracked block, or an unrecognized token
				// inside one: ignored.
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("reading input: %w", err)
			return
		}
		if err := flush(); err != nil {
			errc <- err
			return
		}
		errc <- nil
	}()

	return out, errc, stats
}

// applyAssignment parses one `@<N>=<value>` line and folds it into the
// in-progress block. Unrecognized column indexes are ignored.
func applyAssignment(b *block, line string, logger *logrus.Logger) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return
	}
	key := line[1:eq] // strip leading '@'
	val := strings.TrimSpace(line[eq+1:])

	switch key {
	case "1":
		n, err := strconv.ParseUint(val, 10, 63)
		if err != nil {
			logger.Debugf("bad @1 assignment %q: %v", line, err)
			b.bad = true
			return
		}
		b.pk = int64(n)
		b.havePK = true
	case "3":
		s := unquote(val)
		if !looksLikeDateTime(s) {
			// Left unset: finishBlock reports this the same as a
			// missing @3, which is fatal for a required field.
			logger.Debugf("unparseable @3 assignment %q", line)
			return
		}
		b.dt = s
		b.haveDt = true
	case "4":
		if val == "NULL" {
			b.val = nil
			b.haveVal = true
			return
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			logger.Debugf("unparseable @4 assignment %q: %v", line, err)
			return
		}
		b.val = &f
		b.haveVal = true
	case "6":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			logger.Debugf("unparseable @6 assignment %q: %v", line, err)
			return
		}
		b.ts = n
		b.haveTs = true
	default:
		// Other column positions are not part of this table's CDC
		// contract and are ignored.
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// looksLikeDateTime checks the fixed "YYYY-MM-DD HH:MM:SS" shape without
// pulling in a full time parser, mirroring the reader's single-pass,
// allocation-light scanning style.
func looksLikeDateTime(s string) bool {
	if len(s) != 19 {
		return false
	}
	for i, c := range s {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		case 10:
			if c != ' ' {
				return false
			}
		case 13, 16:
			if c != ':' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// finishBlock validates a completed block against its per-kind
// required fields and converts it to an Event. It returns either an
// event or an error, and a non-nil error is fatal to the whole batch;
// blocks whose pk went bad are dropped by the caller before they get
// here.
func finishBlock(b *block) (*rowmodel.Event, error) {
	if !b.havePK || b.pk == 0 {
		return nil, &ParseError{Msg: fmt.Sprintf("%s block missing primary key (@1)", b.kind)}
	}
	if !b.haveDt {
		return nil, &ParseError{PK: b.pk, Msg: fmt.Sprintf("%s block missing @3 (dt)", b.kind)}
	}
	if b.kind == rowmodel.Insert || b.kind == rowmodel.Update {
		if !b.haveTs {
			return nil, &ParseError{PK: b.pk, Msg: fmt.Sprintf("%s block missing @6 (ts)", b.kind)}
		}
		if !b.haveVal {
			return nil, &ParseError{PK: b.pk, Msg: fmt.Sprintf("%s block missing or unparseable @4 (val)", b.kind)}
		}
	}
	return &rowmodel.Event{Kind: b.kind, PK: b.pk, Dt: b.dt, Val: b.val, Ts: b.ts}, nil
}
