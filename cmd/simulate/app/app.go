package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/radio-interferometer/internal/beam"
	"github.com/roman-kulish/radio-interferometer/internal/storage"
	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

const (
	storageDir = "data"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	dbPath, err := databasePath(&config.Storage, config.Observation.Start)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	store := storage.NewSqliteStore(dbPath)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(fmt.Sprintf("failed to close storage: %s", err.Error()))
		}
	}()

	constants := beam.DefaultConstants()
	model, err := beam.New(config.Array.Beam, config.Observation.Frequencies(), beam.WithConstants(constants))
	if err != nil {
		return fmt.Errorf("failed to create beam: %w", err)
	}

	sim, err := NewSimulator(config, model, constants)
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}

	observationID, err := store.CreateObservation(ctx, newObservation(config), config)
	if err != nil {
		return fmt.Errorf("failed to create observation: %w", err)
	}

	baselines := sim.Baselines()
	logger.Info("simulating observation",
		slog.String("db", dbPath),
		slog.Int64("observation", observationID),
		slog.String("beam", config.Array.Beam.Type.String()),
		slog.Int("baselines", len(baselines)),
		slog.Group("axes",
			slog.Int("times", config.Observation.NumTimes),
			slog.Int("freqs", config.Observation.NumFreqs),
		),
	)

	start := time.Now()
	orchestrator := NewOrchestrator(sim, store, observationID, logger, WithMaxBatchSize(config.Storage.MaxBatchSize))
	if err = orchestrator.Run(ctx); err != nil {
		return fmt.Errorf("failed to simulate observation: %w", err)
	}

	samples := int64(len(baselines) * config.Observation.NumTimes * config.Observation.NumFreqs)
	logger.Info("observation stored",
		slog.Int64("observation", observationID),
		slog.String("visibilities", humanize.Comma(samples)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func newObservation(config *Config) *timestream.Observation {
	o := &config.Observation
	return &timestream.Observation{
		Name:            o.Name,
		StartTime:       o.Start,
		IntegrationTime: time.Duration(o.IntegrationTime),
		Frequencies:     o.Frequencies(),
		Site: timestream.Site{
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Altitude:  o.Altitude,
		},
	}
}

func databasePath(config *StorageConfig, start time.Time) (string, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return "", fmt.Errorf("checking storage directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return filepath.Join(dir, fmt.Sprintf("observation_%s.sqlite", start.UTC().Format("20060102_150405"))), nil
}
