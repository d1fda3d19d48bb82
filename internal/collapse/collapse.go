// Package collapse reduces a stream of per-row events into, for each
// calendar day touched, a minimal set of upserts and deletes keyed by
// primary key. It is pure in-memory and holds no I/O.
package collapse

import (
	"time"

	"github.com/rcowham/cdcconsolidate/internal/rowmodel"
)

// utcPlus2 is the fixed offset the ts column is stored at: no DST, no
// locale lookup, just epoch + 2h.
var utcPlus2 = time.FixedZone("UTC+2", 2*60*60)

func timeAtUTCPlus2(ts uint64) time.Time {
	return time.Unix(int64(ts), 0).In(utcPlus2)
}

// tag records which kind of event most recently produced an Upserts
// entry, since that decides how a later DELETE against it behaves.
type tag int

const (
	tagInsert tag = iota
	tagUpdate
)

type upsertEntry struct {
	row rowmodel.Row
	tag tag
}

// Day holds one calendar day's collapsed effect set.
type Day struct {
	Upserts map[int64]upsertEntry
	Deletes map[int64]struct{}
}

func newDay() *Day {
	return &Day{
		Upserts: make(map[int64]upsertEntry),
		Deletes: make(map[int64]struct{}),
	}
}

// Collapser accumulates events day by day. The zero value is not
// usable; construct with New.
type Collapser struct {
	days map[string]*Day
}

// New pre-reserves the top-level day map for the common case of a
// batch touching on the order of 100 distinct days.
func New() *Collapser {
	return &Collapser{days: make(map[string]*Day, 128)}
}

func (c *Collapser) day(d string) *Day {
	dd, ok := c.days[d]
	if !ok {
		dd = newDay()
		c.days[d] = dd
	}
	return dd
}

// Apply folds one event into the collapsed state. The day routed to is
// the event's own dt, never the day of any prior stored state for the
// same pk.
func (c *Collapser) Apply(ev rowmodel.Event) {
	d := c.day(ev.Day())
	row := rowmodel.Row{ID: ev.PK, DateTime: ev.Dt, Value: ev.Val, Ts: formatTs(ev.Ts)}

	switch ev.Kind {
	case rowmodel.Insert:
		delete(d.Deletes, ev.PK)
		d.Upserts[ev.PK] = upsertEntry{row: row, tag: tagInsert}

	case rowmodel.Update:
		if e, ok := d.Upserts[ev.PK]; ok && e.tag == tagInsert {
			d.Upserts[ev.PK] = upsertEntry{row: row, tag: tagInsert}
			break
		}
		delete(d.Deletes, ev.PK)
		d.Upserts[ev.PK] = upsertEntry{row: row, tag: tagUpdate}

	case rowmodel.Delete:
		if e, ok := d.Upserts[ev.PK]; ok {
			delete(d.Upserts, ev.PK)
			if e.tag == tagUpdate {
				d.Deletes[ev.PK] = struct{}{}
			}
			// tagInsert: insert-then-delete collapses to a no-op for
			// this day — the row never existed as far as storage is
			// concerned.
			break
		}
		d.Deletes[ev.PK] = struct{}{}
	}
}

// Days returns every calendar day touched so far, in no particular
// order; the driver iterates this set to invoke the day writer.
func (c *Collapser) Days() []string {
	out := make([]string, 0, len(c.days))
	for d := range c.days {
		out = append(out, d)
	}
	return out
}

// Effects splits one day's collapsed state into the three sets the day
// writer needs: inserts (tag=INSERT), updates (tag=UPDATE) and deletes.
func (c *Collapser) Effects(d string) (inserts, updates map[int64]rowmodel.Row, deletes map[int64]struct{}) {
	dd, ok := c.days[d]
	inserts = make(map[int64]rowmodel.Row)
	updates = make(map[int64]rowmodel.Row)
	if !ok {
		return inserts, updates, map[int64]struct{}{}
	}
	for pk, e := range dd.Upserts {
		if e.tag == tagInsert {
			inserts[pk] = e.row
		} else {
			updates[pk] = e.row
		}
	}
	return inserts, updates, dd.Deletes
}

// formatTs renders a Unix-seconds timestamp as "YYYY-MM-DD HH:MM:SS" at
// a fixed UTC+2 offset. Truncated to 19 characters to match the
// fixed-width column, though this layout never exceeds that length for
// in-range epoch values.
func formatTs(ts uint64) string {
	const layout = "2006-01-02 15:04:05"
	s := timeAtUTCPlus2(ts).Format(layout)
	if len(s) > 19 {
		s = s[:19]
	}
	return s
}
