// Package features turns trip records into the ordered numeric feature
// vectors consumed by the fare model, identically for training and serving.
//
// A Frame is column-major and immutable. Stages never write into an
// existing frame; they return a new one that shares the unchanged column
// slices and appends their own.
package features

import (
	"fmt"

	"github.com/okian/farecast/internal/domain/trip"
)

// Base column names seeded from trip records.
const (
	ColPassengerCount   = "passenger_count"
	ColPickupLatitude   = "pickup_latitude"
	ColPickupLongitude  = "pickup_longitude"
	ColDropoffLatitude  = "dropoff_latitude"
	ColDropoffLongitude = "dropoff_longitude"
)

// BaseColumns lists the columns NewFrame creates, in order.
func BaseColumns() []string {
	return []string{
		ColPassengerCount,
		ColPickupLatitude,
		ColPickupLongitude,
		ColDropoffLatitude,
		ColDropoffLongitude,
	}
}

// Frame is an immutable, column-major table of float64 features.
type Frame struct {
	records []trip.Record
	names   []string
	index   map[string]int
	cols    [][]float64
	rows    int
}

// Column is a named slice of values, used when extending frames.
type Column struct {
	Name   string
	Values []float64
}

// NewFrame seeds a frame with the base columns of records.
func NewFrame(records []trip.Record) *Frame {
	n := len(records)
	pc := make([]float64, n)
	plat := make([]float64, n)
	plon := make([]float64, n)
	dlat := make([]float64, n)
	dlon := make([]float64, n)
	for i, r := range records {
		pc[i] = float64(r.PassengerCount)
		plat[i] = r.PickupLat
		plon[i] = r.PickupLon
		dlat[i] = r.DropoffLat
		dlon[i] = r.DropoffLon
	}
	f := &Frame{
		records: records,
		names:   BaseColumns(),
		cols:    [][]float64{pc, plat, plon, dlat, dlon},
		rows:    n,
	}
	f.reindex()
	return f
}

// NewFrameFromColumns builds a frame without source records. Every column
// must have the same length and names must be unique.
func NewFrameFromColumns(names []string, cols [][]float64) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%d names for %d columns: %w", len(names), len(cols), ErrShape)
	}
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	f := &Frame{names: make([]string, len(names)), cols: make([][]float64, len(cols)), rows: rows}
	copy(f.names, names)
	for i, c := range cols {
		if len(c) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", names[i], len(c), rows, ErrShape)
		}
		f.cols[i] = append([]float64(nil), c...)
	}
	f.reindex()
	if len(f.index) != len(f.names) {
		return nil, fmt.Errorf("frame columns: %w", ErrDuplicateColumn)
	}
	return f, nil
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.names))
	for i, n := range f.names {
		f.index[n] = i
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Records returns the source records, or nil for frames built from columns.
func (f *Frame) Records() []trip.Record { return f.records }

// Columns returns a copy of the ordered column names.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether name is a column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (f *Frame) Column(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Value returns a single cell.
func (f *Frame) Value(row int, name string) (float64, bool) {
	c, ok := f.Column(name)
	if !ok || row < 0 || row >= f.rows {
		return 0, false
	}
	return c[row], true
}

// Row returns row i in column order.
func (f *Frame) Row(i int) []float64 {
	out := make([]float64, len(f.cols))
	for j, c := range f.cols {
		out[j] = c[i]
	}
	return out
}

// Matrix returns the frame as row-major data.
func (f *Frame) Matrix() [][]float64 {
	out := make([][]float64, f.rows)
	for i := range out {
		out[i] = f.Row(i)
	}
	return out
}

// Feature is one entry of a Vector.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Vector is an ordered name to value mapping for a single row.
type Vector []Feature

// Vector returns row i as an ordered feature vector.
func (f *Frame) Vector(i int) Vector {
	v := make(Vector, len(f.names))
	for j, n := range f.names {
		v[j] = Feature{Name: n, Value: f.cols[j][i]}
	}
	return v
}

// Get looks up a feature by name.
func (v Vector) Get(name string) (float64, bool) {
	for _, ft := range v {
		if ft.Name == name {
			return ft.Value, true
		}
	}
	return 0, false
}

// With returns a new frame with cols appended. f is left untouched.
func (f *Frame) With(cols ...Column) (*Frame, error) {
	out := &Frame{
		records: f.records,
		names:   make([]string, len(f.names), len(f.names)+len(cols)),
		cols:    make([][]float64, len(f.cols), len(f.cols)+len(cols)),
		rows:    f.rows,
	}
	copy(out.names, f.names)
	copy(out.cols, f.cols)
	for _, c := range cols {
		if len(c.Values) != f.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name, len(c.Values), f.rows, ErrShape)
		}
		if f.Has(c.Name) {
			return nil, fmt.Errorf("column %q: %w", c.Name, ErrDuplicateColumn)
		}
		out.names = append(out.names, c.Name)
		out.cols = append(out.cols, c.Values)
	}
	out.reindex()
	if len(out.index) != len(out.names) {
		return nil, fmt.Errorf("frame columns: %w", ErrDuplicateColumn)
	}
	return out, nil
}

// Select projects the frame onto names, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{
		records: f.records,
		names:   make([]string, 0, len(names)),
		cols:    make([][]float64, 0, len(names)),
		rows:    f.rows,
	}
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok {
			return nil, fmt.Errorf("select %q: %w", n, ErrMissingColumn)
		}
		out.names = append(out.names, n)
		out.cols = append(out.cols, c)
	}
	out.reindex()
	if len(out.index) != len(out.names) {
		return nil, fmt.Errorf("select: %w", ErrDuplicateColumn)
	}
	return out, nil
}

// Concat stacks frames with identical columns, preserving row order.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("concat: %w", ErrShape)
	}
	first := frames[0]
	total := 0
	for _, fr := range frames {
		if !equalNames(fr.names, first.names) {
			return nil, fmt.Errorf("concat columns %v and %v: %w", first.names, fr.names, ErrShape)
		}
		total += fr.rows
	}
	out := &Frame{
		names: first.Columns(),
		cols:  make([][]float64, len(first.cols)),
		rows:  total,
	}
	withRecords := true
	for _, fr := range frames {
		if fr.rows > 0 && len(fr.records) != fr.rows {
			withRecords = false
		}
	}
	if withRecords {
		out.records = make([]trip.Record, 0, total)
	}
	for j := range out.cols {
		out.cols[j] = make([]float64, 0, total)
	}
	for _, fr := range frames {
		for j := range fr.cols {
			out.cols[j] = append(out.cols[j], fr.cols[j]...)
		}
		if withRecords {
			out.records = append(out.records, fr.records...)
		}
	}
	out.reindex()
	return out, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
