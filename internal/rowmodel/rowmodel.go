// Package rowmodel defines the row-level types shared by the reader,
// collapser and day writer: the kind of change a binlog statement
// represents, the event it produces, and the stored row shape that ends
// up in a day's columnar file.
package rowmodel

import "fmt"

// Kind is the statement kind a decoded binlog block represents.
type Kind int

const (
	Unknown Kind = iota
	Insert
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Event is one parsed row change against the configured table.
// Val is a pointer so NULL (nil) is distinguishable from 0.0.
type Event struct {
	Kind Kind
	PK   int64
	Dt   string // "YYYY-MM-DD HH:MM:SS", @3
	Val  *float64
	Ts   uint64 // unix seconds, @6
}

// Day returns the calendar-day partition this event routes to: the
// first 10 characters of Dt. Callers must only invoke this on events
// with a populated Dt (the reader guarantees this for emitted events).
func (e Event) Day() string {
	if len(e.Dt) < 10 {
		return e.Dt
	}
	return e.Dt[:10]
}

func (e Event) String() string {
	v := "NULL"
	if e.Val != nil {
		v = fmt.Sprintf("%v", *e.Val)
	}
	return fmt.Sprintf("%s pk=%d dt=%s val=%s ts=%d", e.Kind, e.PK, e.Dt, v, e.Ts)
}

// Row is the on-disk row shape stored in a day's columnar file. Struct
// tags are the parquet-go schema: column order, nullability and type
// are fixed so every day file shares one schema regardless of which
// events produced it.
type Row struct {
	ID       int64    `parquet:"name=id, type=INT64"`
	DateTime string   `parquet:"name=date_time, type=BYTE_ARRAY, convertedtype=UTF8"`
	Value    *float64 `parquet:"name=value, type=DOUBLE, repetitiontype=OPTIONAL"`
	Ts       string   `parquet:"name=ts, type=BYTE_ARRAY, convertedtype=UTF8"`
}
