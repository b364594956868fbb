package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roman-kulish/radio-interferometer/internal/storage"
	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

const maxBatchSize = 100

// WithMaxBatchSize sets the maximum number of integrations of a baseline to
// store within a single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.maxBatchSize = size
	}
}

// baselineResult is a batch of simulated integrations of one baseline
type baselineResult struct {
	baseline timestream.Baseline
	records  []timestream.Record
}

// Orchestrator simulates every baseline of the array concurrently and stores
// the results of all baselines through a single writer.
type Orchestrator struct {
	simulator     *Simulator
	store         storage.Store
	observationID int64
	logger        *slog.Logger

	maxBatchSize int

	wg     sync.WaitGroup
	cancel context.CancelFunc

	errMu sync.Mutex
	errs  []error
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(sim *Simulator, store storage.Store, observationID int64, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		simulator:     sim,
		store:         store,
		observationID: observationID,
		logger:        logger,
		maxBatchSize:  maxBatchSize,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run simulates and stores all baselines. The first failure cancels the
// remaining work and is returned together with any other failure.
func (o *Orchestrator) Run(ctx context.Context) error {
	baselines := o.simulator.Baselines()
	if len(baselines) == 0 {
		return fmt.Errorf("no baselines to simulate")
	}

	if err := o.store.StoreNoiseSource(ctx, o.observationID, o.simulator.Times(), o.simulator.NoiseOn()); err != nil {
		return fmt.Errorf("storing noise source states: %w", err)
	}

	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	startGate := make(chan struct{})
	results := make(chan baselineResult, len(baselines))
	handled := make(chan struct{})

	go o.handleResults(ctx, results, handled)

	for i, bl := range baselines {
		o.wg.Add(1)
		go o.simulate(ctx, bl, uint64(i), results, startGate)
	}

	close(startGate) // Start the simulation goroutines

	o.wg.Wait()
	close(results) // Signal the writer that no more results will arrive
	<-handled

	if err := ctx.Err(); err != nil && len(o.errs) == 0 {
		return err
	}
	return errors.Join(o.errs...)
}

func (o *Orchestrator) fail(err error) {
	o.errMu.Lock()
	o.errs = append(o.errs, err)
	o.errMu.Unlock()

	o.logger.Error(err.Error())
	o.cancel() // signal to other goroutines about fatal
}

func (o *Orchestrator) simulate(ctx context.Context, bl timestream.Baseline, stream uint64, results chan<- baselineResult, startGate chan struct{}) {
	defer o.wg.Done()

	<-startGate

	records, err := o.simulator.Simulate(bl, stream)
	if err != nil {
		o.fail(fmt.Errorf("simulating baseline %s: %w", bl, err))
		return
	}

	for chunk := range slices.Chunk(records, o.maxBatchSize) {
		select {
		case <-ctx.Done():
			return
		case results <- baselineResult{baseline: bl, records: chunk}:
		}
	}

	o.logger.Debug("baseline simulated", slog.String("baseline", bl.String()), slog.Int("integrations", len(records)))
}

func (o *Orchestrator) handleResults(ctx context.Context, results <-chan baselineResult, handled chan<- struct{}) {
	defer close(handled)

	for r := range results {
		if ctx.Err() != nil {
			continue // drain
		}
		if err := o.store.StoreVisibilities(ctx, o.observationID, r.baseline, r.records); err != nil {
			o.fail(fmt.Errorf("storing baseline %s: %w", r.baseline, err))
		}
	}
}
