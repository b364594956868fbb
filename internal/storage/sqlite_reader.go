package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

// ErrNoData indicates either that no visibilities exist for the given parameters,
// or that all available data has been read from the visibility reader.
var ErrNoData = fmt.Errorf("no data available")

// VisibilityReader provides an iterator-based interface for reading the
// integrations of a single baseline with optional time and frequency filtering.
type VisibilityReader interface {
	// Observation returns metadata about the observation this reader is accessing.
	Observation() *timestream.Observation

	// Frequencies returns the frequencies of the selected channels in MHz.
	Frequencies() []float64

	// Next advances the iterator and returns true if there is another integration
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current integration in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *timestream.Record

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

var _ VisibilityReader = (*SqliteVisibilityReader)(nil)

// ReaderOption configures a VisibilityReader with specific filtering criteria.
type ReaderOption func(*SqliteVisibilityReader)

// WithMinFreq excludes channels below f MHz.
func WithMinFreq(f float64) ReaderOption {
	return func(r *SqliteVisibilityReader) {
		r.minFreq = &f
	}
}

// WithMaxFreq excludes channels above f MHz.
func WithMaxFreq(f float64) ReaderOption {
	return func(r *SqliteVisibilityReader) {
		r.maxFreq = &f
	}
}

// WithFreqRange sets both minimum and maximum frequency filters.
// This is a convenience function equivalent to applying both WithMinFreq
// and WithMaxFreq.
func WithFreqRange(minFreq, maxFreq float64) ReaderOption {
	return func(r *SqliteVisibilityReader) {
		r.minFreq = &minFreq
		r.maxFreq = &maxFreq
	}
}

// WithStartTime excludes integrations that started before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteVisibilityReader) {
		r.startTime = &t
	}
}

// WithEndTime excludes integrations that started after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteVisibilityReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
// This is a convenience function equivalent to applying both WithStartTime
// and WithEndTime.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteVisibilityReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// newSqliteVisibilityReader creates a new VisibilityReader instance for reading
// one baseline from a database, applying optional filters.
func newSqliteVisibilityReader(ctx context.Context, db *sql.DB, observationID int64, bl timestream.Baseline, opts ...ReaderOption) (*SqliteVisibilityReader, error) {
	vr := &SqliteVisibilityReader{
		db:            db,
		observationID: observationID,
		baseline:      bl,
	}
	for _, opt := range opts {
		opt(vr)
	}
	if err := vr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return vr, nil
}

// SqliteVisibilityReader implements VisibilityReader for SQLite database backend.
type SqliteVisibilityReader struct {
	db *sql.DB

	observationID int64
	observation   *timestream.Observation
	baseline      timestream.Baseline

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter
	minFreq   *float64   // Optional minimum frequency filter, MHz
	maxFreq   *float64   // Optional maximum frequency filter, MHz

	freqStart int // First selected channel
	freqEnd   int // Last selected channel, inclusive

	current    *timestream.Record
	next       visibilityData // First row of the next integration
	nextExists bool
	rows       *sql.Rows
	err        error
}

func (vr *SqliteVisibilityReader) init(ctx context.Context) error {
	if vr.db == nil {
		return errors.New("database connection required")
	}
	if vr.observationID <= 0 {
		return errors.New("observation ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading observation", fn: vr.loadObservation},
		{msg: "initializing filters", fn: vr.initFilters},
		{msg: "initializing query", fn: vr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (vr *SqliteVisibilityReader) loadObservation(ctx context.Context) (err error) {
	vr.observation, err = loadObservation(ctx, vr.db, vr.observationID)
	return
}

func (vr *SqliteVisibilityReader) initFilters(context.Context) error {
	if vr.startTime != nil && vr.endTime != nil && vr.startTime.After(*vr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", vr.startTime, vr.endTime)
	}
	if vr.minFreq != nil && vr.maxFreq != nil && *vr.minFreq > *vr.maxFreq {
		return fmt.Errorf("min frequency %f is greater than max frequency %f", *vr.minFreq, *vr.maxFreq)
	}

	vr.freqStart, vr.freqEnd = -1, -1
	for i, f := range vr.observation.Frequencies {
		if vr.minFreq != nil && f < *vr.minFreq {
			continue
		}
		if vr.maxFreq != nil && f > *vr.maxFreq {
			continue
		}
		if vr.freqStart < 0 {
			vr.freqStart = i
		}
		vr.freqEnd = i
	}
	if vr.freqStart < 0 {
		return fmt.Errorf("no channels in frequency range: %w", ErrNoData)
	}
	return nil
}

func (vr *SqliteVisibilityReader) initQuery(ctx context.Context) (err error) {
	stmt, err := vr.db.PrepareContext(ctx, selectVisibilitiesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	vr.rows, err = stmt.QueryContext(
		ctx,
		vr.observationID,
		vr.baseline.Feed1,
		vr.baseline.Feed2,
		vr.baseline.Pol,
		vr.freqStart,
		vr.freqEnd,
	)
	return
}

func (vr *SqliteVisibilityReader) scanRow() (visibilityData, error) {
	var data visibilityData
	if err := vr.rows.Scan(&data.TimeIndex, &data.Timestamp, &data.FreqIndex, &data.Re, &data.Im, &data.Flagged); err != nil {
		return data, fmt.Errorf("scanning visibility: %w", err)
	}
	return data, nil
}

func (vr *SqliteVisibilityReader) inTimeRange(t time.Time) bool {
	if vr.startTime != nil && t.Before(*vr.startTime) {
		return false
	}
	if vr.endTime != nil && t.After(*vr.endTime) {
		return false
	}
	return true
}

// newRecord starts an integration with every channel missing. Channels without
// a stored row keep a NaN visibility and are flagged.
func (vr *SqliteVisibilityReader) newRecord(data visibilityData) *timestream.Record {
	n := vr.freqEnd - vr.freqStart + 1
	rec := &timestream.Record{
		Index:     data.TimeIndex,
		Timestamp: data.Timestamp,
		Vis:       make([]complex128, n),
		Flags:     make([]bool, n),
	}
	for i := range rec.Vis {
		rec.Vis[i] = complex(math.NaN(), math.NaN())
		rec.Flags[i] = true
	}
	return rec
}

func (vr *SqliteVisibilityReader) add(rec *timestream.Record, data visibilityData) {
	i := data.FreqIndex - vr.freqStart
	rec.Vis[i] = toVisibility(&data)
	rec.Flags[i] = data.Flagged
}

func (vr *SqliteVisibilityReader) Observation() *timestream.Observation {
	return vr.observation
}

func (vr *SqliteVisibilityReader) Frequencies() []float64 {
	freqs := make([]float64, vr.freqEnd-vr.freqStart+1)
	copy(freqs, vr.observation.Frequencies[vr.freqStart:vr.freqEnd+1])
	return freqs
}

func (vr *SqliteVisibilityReader) Next(ctx context.Context) bool {
	if vr.err != nil || vr.rows == nil {
		return false
	}

	vr.current = nil
	if vr.nextExists {
		vr.current = vr.newRecord(vr.next)
		vr.add(vr.current, vr.next)
		vr.nextExists = false
	}

	for {
		select {
		case <-ctx.Done():
			vr.err = ctx.Err()
			return false
		default:
		}

		if !vr.rows.Next() {
			if vr.current != nil {
				vr.err = ErrNoData
				return true
			}
			return false
		}

		var data visibilityData
		if data, vr.err = vr.scanRow(); vr.err != nil {
			return false
		}
		if !vr.inTimeRange(data.Timestamp) {
			continue
		}

		if vr.current == nil {
			vr.current = vr.newRecord(data)
			vr.add(vr.current, data)
			continue
		}

		// Time index changed - complete current integration
		if data.TimeIndex != vr.current.Index {
			vr.next = data
			vr.nextExists = true
			return true
		}

		vr.add(vr.current, data)
	}
}

func (vr *SqliteVisibilityReader) Current() *timestream.Record {
	return vr.current
}

func (vr *SqliteVisibilityReader) Error() error {
	if vr.err != nil && !errors.Is(vr.err, ErrNoData) {
		return vr.err
	}
	if vr.rows != nil {
		return vr.rows.Err()
	}
	return nil
}

func (vr *SqliteVisibilityReader) Close() error {
	if vr.rows != nil {
		err := vr.rows.Close()
		vr.current = nil
		vr.nextExists = false
		vr.rows = nil
		return err
	}
	return nil
}
