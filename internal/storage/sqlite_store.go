package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

// maxRowsPerStatement keeps multi-row INSERTs below SQLite's bound parameter limit
const maxRowsPerStatement = 3000

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a new store backed by the Sqlite database at dbPath.
// Connections are opened and the schema initialized on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		db.SetMaxOpenConns(1) // SQLite allows a single writer

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateObservation(ctx context.Context, obs *timestream.Observation, config any) (observationID int64, err error) {
	if len(obs.Frequencies) == 0 {
		err = errors.New("observation has no frequencies")
		return
	}

	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	data := toObservationData(obs, configData)
	result, err := tx.ExecContext(
		ctx,
		insertObservationSQL,
		data.Name,
		data.StartTime,
		data.IntegrationTime,
		data.Latitude,
		data.Longitude,
		data.Altitude,
		data.Config,
	)
	if err != nil {
		err = fmt.Errorf("inserting observation: %w", err)
		return
	}

	if observationID, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting observation ID: %w", err)
		return
	}

	values := make([]interface{}, 0, len(obs.Frequencies)*3)
	for i, f := range obs.Frequencies {
		values = append(values, observationID, i, f)
	}
	query := buildBatchInsert(insertFrequenciesSQL, "(?, ?, ?)", len(obs.Frequencies))
	if _, err = tx.ExecContext(ctx, query, values...); err != nil {
		err = fmt.Errorf("inserting frequencies: %w", err)
		return
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
	}
	return
}

func (s *SqliteStore) Observation(ctx context.Context, id int64) (obs *timestream.Observation, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}
	return loadObservation(ctx, db, id)
}

func loadObservation(ctx context.Context, db *sql.DB, id int64) (obs *timestream.Observation, err error) {
	stmt, err := db.PrepareContext(ctx, selectObservationSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var data observationData
	if err = stmt.QueryRowContext(ctx, id).Scan(
		&data.ID,
		&data.Name,
		&data.StartTime,
		&data.IntegrationTime,
		&data.Latitude,
		&data.Longitude,
		&data.Altitude,
		&data.Config,
	); err != nil {
		err = fmt.Errorf("scanning observation: %w", err)
		return
	}
	obs = fromObservationData(&data)

	if obs.Frequencies, err = loadFrequencies(ctx, db, id); err != nil {
		err = fmt.Errorf("loading frequencies: %w", err)
		return nil, err
	}
	return obs, nil
}

func loadFrequencies(ctx context.Context, db *sql.DB, id int64) (freqs []float64, err error) {
	rows, err := db.QueryContext(ctx, selectFrequenciesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying frequencies: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var f float64
		if err = rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scanning frequency: %w", err)
		}
		freqs = append(freqs, f)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) Observations(ctx context.Context) (observations []*timestream.Observation, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectObservationsSQL)
	if err != nil {
		err = fmt.Errorf("querying observations: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data observationData
		if err = rows.Scan(
			&data.ID,
			&data.Name,
			&data.StartTime,
			&data.IntegrationTime,
			&data.Latitude,
			&data.Longitude,
			&data.Altitude,
			&data.Config,
		); err != nil {
			err = fmt.Errorf("scanning observation: %w", err)
			return
		}
		observations = append(observations, fromObservationData(&data))
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreNoiseSource(ctx context.Context, observationID int64, times []time.Time, states []bool) (err error) {
	if len(times) != len(states) {
		return fmt.Errorf("%w: %d timestamps, %d noise source states", vis.ErrShapeMismatch, len(times), len(states))
	}
	if len(states) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	indexes := make([]int, len(states))
	for i := range indexes {
		indexes[i] = i
	}

	for batch := range slices.Chunk(indexes, maxRowsPerStatement) {
		values := make([]interface{}, 0, len(batch)*4)
		for _, i := range batch {
			values = append(values, observationID, i, times[i].UTC(), states[i])
		}

		query := buildBatchInsert(insertNoiseSourceSQL, "(?, ?, ?, ?)", len(batch))
		if _, err = tx.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("batch inserting noise source states: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) StoreVisibilities(ctx context.Context, observationID int64, bl timestream.Baseline, records []timestream.Record) (err error) {
	if len(records) == 0 {
		return
	}

	type row struct {
		rec  *timestream.Record
		freq int
	}

	var rows []row
	for i := range records {
		r := &records[i]
		if r.Flags != nil && len(r.Flags) != len(r.Vis) {
			return fmt.Errorf("%w: record %d has %d visibilities, %d flags", vis.ErrShapeMismatch, r.Index, len(r.Vis), len(r.Flags))
		}
		for f := range r.Vis {
			rows = append(rows, row{rec: r, freq: f})
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for batch := range slices.Chunk(rows, maxRowsPerStatement) {
		values := make([]interface{}, 0, len(batch)*10)
		for _, r := range batch {
			v := r.rec.Vis[r.freq]
			flagged := r.rec.Flags != nil && r.rec.Flags[r.freq]
			values = append(values,
				observationID,
				bl.Feed1,
				bl.Feed2,
				bl.Pol,
				r.rec.Index,
				r.rec.Timestamp.UTC(),
				r.freq,
				toSQLPart(real(v)),
				toSQLPart(imag(v)),
				flagged,
			)
		}

		query := buildBatchInsert(insertVisibilitySQL, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", len(batch))
		if _, err = tx.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("batch inserting visibilities: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) Baselines(ctx context.Context, observationID int64) (baselines []timestream.Baseline, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectBaselinesSQL, observationID)
	if err != nil {
		err = fmt.Errorf("querying baselines: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var bl timestream.Baseline
		if err = rows.Scan(&bl.Feed1, &bl.Feed2, &bl.Pol); err != nil {
			err = fmt.Errorf("scanning baseline: %w", err)
			return
		}
		baselines = append(baselines, bl)
	}
	err = rows.Err()
	return
}

// ReadVisibilities creates a reader over the integrations of one baseline,
// ordered by time. Options restrict the frequency channels and the time span.
//
// The returned reader must be closed after use to release database resources.
// Each reader instance should only be used from a single goroutine.
func (s *SqliteStore) ReadVisibilities(ctx context.Context, observationID int64, bl timestream.Baseline, opts ...ReaderOption) (*SqliteVisibilityReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteVisibilityReader(ctx, db, observationID, bl, opts...)
}

func (s *SqliteStore) ReadBaseline(ctx context.Context, observationID int64, bl timestream.Baseline, opts ...ReaderOption) (data *timestream.BaselineData, err error) {
	reader, err := s.ReadVisibilities(ctx, observationID, bl, opts...)
	if err != nil {
		return nil, err
	}
	defer closeWithError(reader, &err)

	var records []*timestream.Record
	for reader.Next(ctx) {
		records = append(records, reader.Current())
	}
	if err = reader.Error(); err != nil {
		return nil, fmt.Errorf("reading visibilities: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	data = &timestream.BaselineData{
		Observation: reader.Observation(),
		Baseline:    bl,
		Freqs:       reader.Frequencies(),
		Times:       make([]time.Time, len(records)),
	}

	shape := vis.Shape{Time: len(records), Freq: len(data.Freqs)}
	if data.Vis, err = vis.NewArray[complex128](shape); err != nil {
		return nil, err
	}
	if data.Mask, err = vis.NewMask(shape); err != nil {
		return nil, err
	}

	indexes := make([]int, len(records))
	for t, rec := range records {
		indexes[t] = rec.Index
		data.Times[t] = rec.Timestamp
		for f, v := range rec.Vis {
			data.Vis.Set(t, f, 0, v)
			data.Mask.Set(t, f, 0, rec.Flags[f])
		}
	}

	if data.NoiseOn, err = s.noiseSource(ctx, observationID, indexes); err != nil {
		return nil, fmt.Errorf("reading noise source: %w", err)
	}
	return data, nil
}

// noiseSource returns the noise source state at each time index, or nil if
// the observation has no states recorded for them.
func (s *SqliteStore) noiseSource(ctx context.Context, observationID int64, indexes []int) (states []bool, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectNoiseSourceSQL, observationID, indexes[0], indexes[len(indexes)-1])
	if err != nil {
		return nil, fmt.Errorf("querying noise source: %w", err)
	}
	defer closeWithError(rows, &err)

	recorded := make(map[int]bool, len(indexes))
	for rows.Next() {
		var idx int
		var on bool
		if err = rows.Scan(&idx, &on); err != nil {
			return nil, fmt.Errorf("scanning noise source: %w", err)
		}
		recorded[idx] = on
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(recorded) == 0 {
		return nil, nil
	}

	states = make([]bool, len(indexes))
	for i, idx := range indexes {
		on, ok := recorded[idx]
		if !ok {
			return nil, fmt.Errorf("no noise source state for time index %d", idx)
		}
		states[i] = on
	}
	return states, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
