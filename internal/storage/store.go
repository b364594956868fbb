package storage

import (
	"context"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

// Store provides an interface for managing interferometer observation storage.
// It handles observations, noise source states and baseline visibilities in a
// thread-safe manner. All operations that write to the database should be
// considered atomic.
type Store interface {
	// CreateObservation records a new observation together with its frequency
	// axis and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - obs: Observation metadata, obs.ID is ignored
	//   - config: Optional instrument configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - observationID: Unique identifier for the created observation
	//   - error: If creation fails or context is cancelled
	CreateObservation(ctx context.Context, obs *timestream.Observation, config any) (observationID int64, err error)

	// Observation retrieves a specific observation, including its frequencies.
	Observation(ctx context.Context, id int64) (*timestream.Observation, error)

	// Observations returns all observations ordered by start time.
	// Frequencies are not loaded.
	Observations(ctx context.Context) ([]*timestream.Observation, error)

	// StoreNoiseSource saves the noise source state of each time sample.
	// times and states must be of equal length, the first entry is time index 0.
	StoreNoiseSource(ctx context.Context, observationID int64, times []time.Time, states []bool) error

	// StoreVisibilities saves integrations of one baseline. All records are
	// stored in a single transaction.
	StoreVisibilities(ctx context.Context, observationID int64, bl timestream.Baseline, records []timestream.Record) error

	// Baselines lists the baselines that have visibilities in an observation.
	Baselines(ctx context.Context, observationID int64) ([]timestream.Baseline, error)

	// ReadVisibilities creates a reader over the integrations of one baseline.
	// The returned reader must be closed after use.
	ReadVisibilities(ctx context.Context, observationID int64, bl timestream.Baseline, opts ...ReaderOption) (*SqliteVisibilityReader, error)

	// ReadBaseline loads the complete time-frequency block of one baseline.
	// ErrNoData is returned when nothing matches the options.
	ReadBaseline(ctx context.Context, observationID int64, bl timestream.Baseline, opts ...ReaderOption) (*timestream.BaselineData, error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}
