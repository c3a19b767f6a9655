package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/cdtran/vnquote/database"
	"github.com/cdtran/vnquote/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		return
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quoteCfg := service.QuoteConfig{
		Tickers:          cfg.Tickers,
		Industries:       cfg.Industries,
		Size:             cfg.Size,
		Start:            cfg.start,
		End:              cfg.end,
		Interval:         cfg.interval,
		Resample:         cfg.resample,
		NoCache:          cfg.NoCache,
		CacheDir:         cfg.CacheDir,
		CacheExpiryHours: cfg.CacheExpiryHours,
		Timeout:          time.Duration(cfg.RequestTimeoutSecs) * time.Second,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       time.Duration(cfg.RetryDelaySecs) * time.Second,
		Sequential:       cfg.Sequential,
		MaxWorkers:       cfg.MaxWorkers,
		SortBy:           cfg.SortBy,
		NoColor:          cfg.NoColor,
		VolatilityWindow: cfg.VolatilityWindow,
		ExportPath:       cfg.ExportPath,
		ExportKind:       cfg.ExportKind,
		RefreshSecs:      cfg.RefreshSecs,
		Cancel:           cancel,
	}

	if cfg.DBEndpoint != "" {
		dbLogger := log.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			log.Error().Msgf("creating run history database: %v", err)
			return
		}

		quoteCfg.Store = db
	}

	quote, err := service.NewQuote(&quoteCfg)
	if err != nil {
		log.Error().Msgf("creating quote service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)

	switch {
	case cfg.Watch:
		err = quote.Watch(ctx)
	default:
		err = quote.Run(ctx)
	}
	if err != nil {
		log.Error().Msgf("running quote service: %v", err)
	}
}
