package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/farecast/internal/domain/trip"
)

// CSV column names.
const (
	ColPickupDatetime   = "pickup_datetime"
	ColPickupLatitude   = "pickup_latitude"
	ColPickupLongitude  = "pickup_longitude"
	ColDropoffLatitude  = "dropoff_latitude"
	ColDropoffLongitude = "dropoff_longitude"
	ColPassengerCount   = "passenger_count"
	ColFareAmount       = "fare_amount"
)

// how often Read checks ctx
const cancelCheckEvery = 4096

// Reader parses trip CSV files.
type Reader struct {
	sampler      *Sampler
	requireLabel bool
}

// ReaderOption applies a configuration option to the Reader.
type ReaderOption func(*Reader)

// WithSampler keeps only lines chosen by s.
func WithSampler(s *Sampler) ReaderOption {
	return func(r *Reader) {
		r.sampler = s
	}
}

// WithLabel requires a fare_amount column; rows without a fare are dropped.
func WithLabel(required bool) ReaderOption {
	return func(r *Reader) {
		r.requireLabel = required
	}
}

// NewReader creates a CSV reader with configuration options.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of reading a CSV source.
type Result struct {
	Records    []trip.Record
	Sampled    int // lines dropped by the sampler
	Incomplete int // lines with an empty numeric field, dropped
}

// LoadFile reads records from a CSV file.
func (r *Reader) LoadFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return r.Read(ctx, f)
}

// Read parses records from CSV with a header line. Extra columns are
// ignored. Rows with an empty numeric field are dropped and counted; any
// other malformed row, including a bad timestamp, fails the read.
func (r *Reader) Read(ctx context.Context, in io.Reader) (Result, error) {
	cr := csv.NewReader(in)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, ErrNoHeader
		}
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	if r.sampler != nil {
		r.sampler.Keep(0)
	}
	cols, err := r.locate(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for line := 1; ; line++ {
		if line%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, fmt.Errorf("read cancelled at line %d: %w", line, err)
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("line %d: %w", line, err)
		}
		if r.sampler != nil && !r.sampler.Keep(line) {
			res.Sampled++
			continue
		}
		rec, err := cols.parse(row)
		if errors.Is(err, errIncomplete) {
			res.Incomplete++
			continue
		}
		if err != nil {
			return Result{}, &LineError{Line: line, Err: err}
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

type columnIndex struct {
	datetime, plat, plon, dlat, dlon, passengers int
	fare                                         int // -1 when absent
	requireLabel                                 bool
}

func (r *Reader) locate(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	find := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
		}
		return i, nil
	}
	var ci columnIndex
	var err error
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{ColPickupDatetime, &ci.datetime},
		{ColPickupLatitude, &ci.plat},
		{ColPickupLongitude, &ci.plon},
		{ColDropoffLatitude, &ci.dlat},
		{ColDropoffLongitude, &ci.dlon},
		{ColPassengerCount, &ci.passengers},
	} {
		if *c.dst, err = find(c.name); err != nil {
			return columnIndex{}, err
		}
	}
	ci.fare = -1
	if i, ok := pos[ColFareAmount]; ok {
		ci.fare = i
	} else if r.requireLabel {
		return columnIndex{}, fmt.Errorf("column %q: %w", ColFareAmount, ErrMissingColumn)
	}
	ci.requireLabel = r.requireLabel
	return ci, nil
}

func (ci columnIndex) parse(row []string) (trip.Record, error) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	num := func(name string, i int) (float64, error) {
		s := field(i)
		if s == "" {
			return 0, errIncomplete
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	raw := trip.Raw{PickupDatetime: field(ci.datetime)}
	var err error
	if raw.PickupLatitude, err = num(ColPickupLatitude, ci.plat); err != nil {
		return trip.Record{}, err
	}
	if raw.PickupLongitude, err = num(ColPickupLongitude, ci.plon); err != nil {
		return trip.Record{}, err
	}
	if raw.DropoffLatitude, err = num(ColDropoffLatitude, ci.dlat); err != nil {
		return trip.Record{}, err
	}
	if raw.DropoffLongitude, err = num(ColDropoffLongitude, ci.dlon); err != nil {
		return trip.Record{}, err
	}
	pc, err := num(ColPassengerCount, ci.passengers)
	if err != nil {
		return trip.Record{}, err
	}
	raw.PassengerCount = int(pc)

	if ci.fare >= 0 && field(ci.fare) != "" {
		fare, err := num(ColFareAmount, ci.fare)
		if err != nil {
			return trip.Record{}, err
		}
		raw.FareAmount = &fare
	} else if ci.requireLabel {
		return trip.Record{}, errIncomplete
	}
	return raw.Record()
}
