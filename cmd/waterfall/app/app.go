package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/radio-interferometer/internal/storage"
	"github.com/roman-kulish/radio-interferometer/internal/timestream"
	"github.com/roman-kulish/radio-interferometer/internal/vis"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(fmt.Sprintf("failed to close storage: %s", err.Error()))
		}
	}()

	return renderObservation(ctx, store, config, logger)
}

func renderObservation(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) error {
	obs, err := store.Observation(ctx, config.ObservationID)
	if err != nil {
		return fmt.Errorf("loading observation %d: %w", config.ObservationID, err)
	}

	all, err := store.Baselines(ctx, obs.ID)
	if err != nil {
		return fmt.Errorf("listing baselines: %w", err)
	}
	baselines := config.Filter.Select(all)
	if len(baselines) == 0 {
		return fmt.Errorf("none of %d baselines of observation %d pass the baseline filter", len(all), obs.ID)
	}

	opts, filters := readerOptions(config)
	logger.Info("iterator configuration", filters...)

	renderer, err := NewWaterfallRenderer(RenderConfig{
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		FlagColor:     config.FlagColor,
		PixelScale:    config.PixelScale,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating waterfall renderer: %w", err)
	}

	logger.Info("rendering observation",
		slog.Int64("observation", obs.ID),
		slog.String("name", obs.Name),
		slog.Int("baselines", len(baselines)),
		slog.Group("conditioning",
			slog.String("mode", config.Mode.String()),
			slog.Bool("interpolate", config.Interpolate),
			slog.String("part", config.Part.String()),
			slog.Bool("trim", config.Trim),
		))

	start := time.Now()
	br := &baselineRenderer{
		store:         store,
		renderer:      renderer,
		config:        config,
		observationID: obs.ID,
		opts:          opts,
		logger:        logger,
	}
	series, errs := br.renderAll(ctx, baselines)
	if err = ctx.Err(); err != nil {
		return err
	}

	if config.Plots && len(series) > 0 {
		p, err := PlotTimeSeries(series, config.Part, config.TimeZone)
		if err != nil {
			errs = append(errs, err)
		} else if err = savePlot(p, config.OutputPrefix+"_ts.png"); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("finished rendering",
		slog.Group("stats",
			slog.Int("baselines", len(baselines)),
			slog.Int("failed", len(errs)),
			slog.String("samples", humanize.Comma(br.samples.Load())),
			slog.Duration("elapsed", time.Since(start)),
		))

	return errors.Join(errs...)
}

func readerOptions(config *Config) ([]storage.ReaderOption, []any) {
	var opts []storage.ReaderOption
	var filters []any
	switch {
	case config.MinFrequency != nil && config.MaxFrequency != nil:
		opts = append(opts, storage.WithFreqRange(*config.MinFrequency, *config.MaxFrequency))

		filters = append(filters,
			slog.String("minFreq", formatFrequency(*config.MinFrequency)),
			slog.String("maxFreq", formatFrequency(*config.MaxFrequency)))

	case config.MinFrequency != nil:
		opts = append(opts, storage.WithMinFreq(*config.MinFrequency))
		filters = append(filters, slog.String("minFreq", formatFrequency(*config.MinFrequency)))

	case config.MaxFrequency != nil:
		opts = append(opts, storage.WithMaxFreq(*config.MaxFrequency))
		filters = append(filters, slog.String("maxFreq", formatFrequency(*config.MaxFrequency)))
	}

	switch {
	case config.MinTimestamp != nil && config.MaxTimestamp != nil:
		opts = append(opts, storage.WithTimeRange(config.MinTimestamp.UTC(), config.MaxTimestamp.UTC()))

		filters = append(filters,
			slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)),
			slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))

	case config.MinTimestamp != nil:
		opts = append(opts, storage.WithStartTime(config.MinTimestamp.UTC()))
		filters = append(filters, slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)))

	case config.MaxTimestamp != nil:
		opts = append(opts, storage.WithEndTime(config.MaxTimestamp.UTC()))
		filters = append(filters, slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))
	}

	return opts, filters
}

// baselineRenderer turns stored baselines into output files on a bounded
// pool of workers
type baselineRenderer struct {
	store         storage.Store
	renderer      *WaterfallRenderer
	config        *Config
	observationID int64
	opts          []storage.ReaderOption
	logger        *slog.Logger
	samples       atomic.Int64
}

// renderAll processes every baseline and returns the time series of those
// that succeeded, in the order of baselines, and the errors of those that
// failed.
func (br *baselineRenderer) renderAll(ctx context.Context, baselines []timestream.Baseline) ([]TimeSeries, []error) {
	jobs := make(chan int)
	results := make([]*TimeSeries, len(baselines))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	workers := min(br.config.Workers, len(baselines))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ts, err := br.render(ctx, baselines[i])
				if err != nil {
					br.logger.Error("failed to render baseline", slog.String("baseline", baselines[i].String()), slog.Any("error", err))

					mu.Lock()
					errs = append(errs, fmt.Errorf("baseline %s: %w", baselines[i], err))
					mu.Unlock()
					continue
				}
				results[i] = ts
			}
		}()
	}

feed:
	for i := range baselines {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var series []TimeSeries
	for _, ts := range results {
		if ts != nil {
			series = append(series, *ts)
		}
	}
	return series, errs
}

// render reads, conditions and writes the outputs of a single baseline
func (br *baselineRenderer) render(ctx context.Context, bl timestream.Baseline) (*TimeSeries, error) {
	data, err := br.store.ReadBaseline(ctx, br.observationID, bl, br.opts...)
	if err != nil {
		return nil, fmt.Errorf("reading visibilities: %w", err)
	}
	data = data.Order()

	wf, err := prepareWaterfall(data, br.config)
	if err != nil {
		return nil, err
	}
	br.samples.Add(int64(wf.Width * wf.Height))

	base := outputBase(br.config.OutputPrefix, wf.Baseline)
	path := fmt.Sprintf("%s.%s", base, br.config.Format)

	br.logger.Debug("rendering waterfall",
		slog.Group("image",
			slog.String("baseline", wf.Baseline.String()),
			slog.String("destination", path),
			slog.Int("width", wf.Width),
			slog.Int("height", wf.Height),
			slog.Float64("min", wf.Bounds.Min),
			slog.Float64("max", wf.Bounds.Max),
		))

	img, err := br.renderer.Render(wf)
	if err != nil {
		return nil, fmt.Errorf("rendering waterfall: %w", err)
	}
	if err = writeImage(path, br.config.Format, img); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}

	if br.config.FITS {
		if err = writeFITSFile(base+".fits", wf, br.observationID); err != nil {
			return nil, fmt.Errorf("writing FITS: %w", err)
		}
	}

	if !br.config.Plots {
		return nil, nil
	}

	spec, err := NewSpectrum(wf, br.config.BandpassKernel)
	if err != nil {
		return nil, err
	}
	p, err := spec.Plot(wf.Part)
	if err != nil {
		return nil, err
	}
	if err = savePlot(p, base+"_spec.png"); err != nil {
		return nil, err
	}

	ts := NewTimeSeries(wf)
	return &ts, nil
}

// prepareWaterfall applies the bad ranges, trimming and conditioning of the
// configuration and extracts the displayed part
func prepareWaterfall(data *timestream.BaselineData, config *Config) (*WaterfallData, error) {
	shape := data.Vis.Shape()

	mask := data.Mask
	if mask == nil {
		var err error
		if mask, err = vis.NewMask(shape); err != nil {
			return nil, err
		}
	} else {
		mask = mask.Clone()
	}
	if err := mask.FlagTimes(config.BadTimes...); err != nil {
		return nil, err
	}
	if err := mask.FlagFreqs(config.BadFreqs...); err != nil {
		return nil, err
	}

	block := *data
	values := data.Vis
	if config.Trim {
		times, ok := mask.GoodRange(vis.AxisTime)
		if !ok {
			return nil, vis.ErrNoValidData
		}
		freqs, _ := mask.GoodRange(vis.AxisFreq)

		var err error
		if values, err = values.Slice(times, freqs); err != nil {
			return nil, err
		}
		if mask, err = mask.Slice(times, freqs); err != nil {
			return nil, err
		}
		block.Times = data.Times[times.Start:times.End]
		block.Freqs = data.Freqs[freqs.Start:freqs.End]
		if data.NoiseOn != nil {
			block.NoiseOn = data.NoiseOn[times.Start:times.End]
		}
	}

	conditioned, err := vis.Condition(values, mask, config.Mode, block.NoiseOn, config.Interpolate)
	if err != nil {
		return nil, fmt.Errorf("conditioning: %w", err)
	}

	display, err := vis.NewMasked(vis.Component(conditioned.Values(), config.Part), conditioned.Mask())
	if err != nil {
		return nil, err
	}
	display = display.MaskInvalid()

	bounds := ValueBounds{Min: 0, Max: 1}
	hist, err := NewValueHistogram(display, defaultBinCount)
	switch {
	case errors.Is(err, vis.ErrNoValidData):
		// nothing to scale, everything is drawn in the flag color
	case err != nil:
		return nil, err
	case config.HistEqual:
		if display, err = hist.Equalize(display); err != nil {
			return nil, err
		}
	default:
		bounds = displayBounds(display, hist, config)
	}

	wf, err := NewWaterfallData(&block, config.Part, display)
	if err != nil {
		return nil, err
	}
	wf.Bounds = bounds
	return wf, nil
}

// displayBounds picks the value range of the color scale: mean ± k·std when
// rescaling, histogram percentiles otherwise. Manual values take precedence.
func displayBounds(display *vis.Masked[float64], hist *ValueHistogram, config *Config) ValueBounds {
	var bounds ValueBounds
	if config.Rescale != nil {
		lo, hi, _ := vis.RescaleBounds(display, *config.Rescale)
		mean, _, _ := vis.MeanStd(display)
		bounds = ValueBounds{Min: lo, Max: hi, Mean: mean}
	} else {
		bounds = hist.GetPercentileBounds(config.Percentile)
	}

	if config.MinValue != nil {
		bounds.Min = *config.MinValue
	}
	if config.MaxValue != nil {
		bounds.Max = *config.MaxValue
	}
	return bounds.widen()
}

func outputBase(prefix string, bl timestream.Baseline) string {
	return fmt.Sprintf("%s_%d_%d_%s", prefix, bl.Feed1, bl.Feed2, bl.Pol)
}
