package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cdtran/vnquote/database"
	"github.com/cdtran/vnquote/display"
	"github.com/cdtran/vnquote/fetch"
	"github.com/cdtran/vnquote/series"
	"github.com/cdtran/vnquote/shared"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Export kinds.
const (
	ExportRaw     = "raw"
	ExportOHLCV   = "ohlcv"
	ExportReturns = "returns"
)

// ValidExportKind reports whether the provided export kind is known.
func ValidExportKind(kind string) bool {
	switch kind {
	case ExportRaw, ExportOHLCV, ExportReturns:
		return true
	default:
		return false
	}
}

// QuoteConfig represents the configuration struct for the quote service.
type QuoteConfig struct {
	// Tickers represents the tracked tickers.
	Tickers []string
	// Industries maps tickers to industry names for the summary table.
	Industries map[string]string
	// Size is the number of most recent records fetched per ticker.
	Size int
	// Start and End bound ranged fetches. A zero start selects the size
	// based fetch, a zero end defaults to the current Vietnam time.
	Start time.Time
	End   time.Time
	// Interval is the bar interval for ranged fetches.
	Interval shared.Interval
	// Resample reduces the series to the provided coarser interval
	// before metrics are derived. The daily interval leaves the series
	// unchanged.
	Resample shared.Interval
	// NoCache disables the raw quote cache.
	NoCache bool
	// CacheDir is the cache directory.
	CacheDir string
	// CacheExpiryHours is the cache entry age limit, zero never expires.
	CacheExpiryHours int
	// QuoteURL overrides the primary source base url. Optional.
	QuoteURL string
	// HistoryURL overrides the alternate source base url. Optional.
	HistoryURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the number of fetch attempts per ticker.
	MaxRetries int
	// RetryDelay is the fixed pause between fetch attempts.
	RetryDelay time.Duration
	// Sequential fetches tickers one at a time.
	Sequential bool
	// MaxWorkers caps the number of concurrent ticker fetches.
	MaxWorkers int
	// SortBy is the summary table sort column or comma separated column
	// list.
	SortBy string
	// NoColor renders the summary table without styling.
	NoColor bool
	// VolatilityWindow is the rolling window for the volatility of the
	// one day return, zero disables the volatility stage.
	VolatilityWindow int
	// ExportPath writes a CSV export to the provided path. Optional.
	ExportPath string
	// ExportKind selects the export flavor, raw, ohlcv or returns.
	ExportKind string
	// RefreshSecs is the pause between watch mode pipeline runs.
	RefreshSecs int
	// Store persists run summaries. Optional, nil disables run history.
	Store database.RunStorer
	// Output receives the rendered summary table. Defaults to stdout.
	Output io.Writer
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *QuoteConfig) Validate() error {
	var errs error

	if len(cfg.Tickers) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no tickers provided for quote service"))
	}
	if cfg.Size <= 0 {
		errs = errors.Join(errs, fmt.Errorf("size must be a positive number"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.ExportPath != "" && !ValidExportKind(cfg.ExportKind) {
		errs = errors.Join(errs, fmt.Errorf("unknown export kind: %q", cfg.ExportKind))
	}

	return errs
}

// Quote represents the price summary service.
type Quote struct {
	cfg          *QuoteConfig
	cache        *fetch.Cache
	fetchManager *fetch.Manager
	table        *display.Table
	scheduler    gocron.Scheduler
	out          io.Writer
	logger       *zerolog.Logger
}

// NewQuote initializes a new quote service.
func NewQuote(cfg *QuoteConfig) (*Quote, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "quote").Logger()

	var cache *fetch.Cache
	if !cfg.NoCache {
		cacheLogger := logger.With().Str("component", "cache").Logger()
		cache = fetch.NewCache(&fetch.CacheConfig{
			Dir:         cfg.CacheDir,
			ExpiryHours: cfg.CacheExpiryHours,
			Logger:      &cacheLogger,
		})
	}

	quotes := fetch.NewVNDirectClient(&fetch.VNDirectConfig{
		BaseURL: cfg.QuoteURL,
		Timeout: cfg.Timeout,
	})
	history := fetch.NewTCBSClient(&fetch.TCBSConfig{
		BaseURL: cfg.HistoryURL,
		Timeout: cfg.Timeout,
	})

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Quotes:     quotes,
		History:    history,
		Cache:      cache,
		Size:       cfg.Size,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Parallel:   !cfg.Sequential,
		MaxWorkers: cfg.MaxWorkers,
		Logger:     &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	table := display.NewTable(&display.TableConfig{
		Industries: cfg.Industries,
		SortBy:     cfg.SortBy,
		NoColor:    cfg.NoColor,
	})

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating job scheduler: %w", err)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	service := &Quote{
		cfg:          cfg,
		cache:        cache,
		fetchManager: fetchMgr,
		table:        table,
		scheduler:    scheduler,
		out:          out,
		logger:       &logger,
	}

	return service, nil
}

// fetch runs the fetch stage, selecting the ranged path when a start date
// is configured.
func (s *Quote) fetch(ctx context.Context) (*fetch.Result, error) {
	if s.cfg.Start.IsZero() {
		return s.fetchManager.FetchAll(ctx, s.cfg.Tickers)
	}

	end := s.cfg.End
	if end.IsZero() {
		now, _, err := shared.VietnamTime()
		if err != nil {
			return nil, fmt.Errorf("fetching vietnam time: %v", err)
		}
		end = now
	}

	return s.fetchManager.FetchAllRange(ctx, s.cfg.Tickers, s.cfg.Start, end, s.cfg.Interval)
}

// export writes the configured export kind to the export path.
func (s *Quote) export(frame *series.Frame, res *fetch.Result) error {
	f, err := os.Create(s.cfg.ExportPath)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	switch s.cfg.ExportKind {
	case ExportRaw:
		return series.WriteRawCSV(f, res.Raw)
	case ExportOHLCV:
		return frame.WriteBarsCSV(f)
	case ExportReturns:
		return frame.WriteReturnsCSV(f)
	default:
		return fmt.Errorf("unknown export kind: %q", s.cfg.ExportKind)
	}
}

// run executes one pipeline pass, fetching records, deriving metrics and
// rendering the summary.
func (s *Quote) run(ctx context.Context) error {
	runID := uuid.New().String()
	started := time.Now()

	logger := s.logger.With().Str("run", runID).Logger()
	logger.Info().Int("tickers", len(s.cfg.Tickers)).Msg("starting pipeline run")

	hits := s.fetchManager.CacheHits()
	res, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching tickers: %w", err)
	}

	// Failed tickers are reported without aborting the successful ones.
	if len(res.Failures) > 0 {
		logger.Debug().Msg(spew.Sdump(res.Failures))
		for idx := range res.Failures {
			fmt.Fprintf(s.out, "could not retrieve data for %s: %v\n",
				res.Failures[idx].Ticker, res.Failures[idx].Err)
		}
	}

	frame, err := series.NewFrame(res.Bars)
	if err != nil {
		return err
	}

	if s.cfg.Resample != shared.Daily {
		frame, err = frame.Resample(s.cfg.Resample)
		if err != nil {
			return err
		}
	}

	if err := frame.WithReturns(); err != nil {
		return err
	}

	if s.cfg.VolatilityWindow > 0 {
		if err := frame.WithVolatility(s.cfg.VolatilityWindow); err != nil {
			return err
		}
	}

	if s.cfg.ExportPath != "" {
		if err := s.export(frame, res); err != nil {
			return err
		}

		logger.Info().Msgf("exported %s data to %s", s.cfg.ExportKind, s.cfg.ExportPath)
	}

	rows, err := s.table.Build(frame)
	if err != nil {
		return err
	}

	fmt.Fprint(s.out, s.table.Render(rows))

	if s.cfg.Store != nil {
		run := &database.Run{
			ID:        runID,
			Tickers:   strings.Join(s.cfg.Tickers, ","),
			Requested: len(s.cfg.Tickers),
			Fetched:   len(s.cfg.Tickers) - len(res.Failures),
			Failed:    len(res.Failures),
			CacheHits: s.fetchManager.CacheHits() - hits,
			Bars:      len(res.Bars),
			StartedOn: started,
			Duration:  time.Since(started),
		}

		// A run history outage does not fail an otherwise successful run.
		if err := s.cfg.Store.PersistRun(ctx, run); err != nil {
			logger.Error().Msgf("persisting run: %v", err)
		}
	}

	return nil
}

// Run executes a single pipeline pass.
func (s *Quote) Run(ctx context.Context) error {
	return s.run(ctx)
}

// Watch re-runs the pipeline on the configured refresh interval until the
// context is cancelled.
func (s *Quote) Watch(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(time.Duration(s.cfg.RefreshSecs)*time.Second),
		gocron.NewTask(func() {
			if err := s.run(ctx); err != nil {
				s.logger.Error().Msgf("running pipeline: %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling refresh job: %w", err)
	}

	s.scheduler.Start()

	<-ctx.Done()

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutting down job scheduler: %w", err)
	}

	return nil
}
