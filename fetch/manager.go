package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cdtran/vnquote/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

const (
	// defaultMaxWorkers is the default number of concurrent fetch workers.
	defaultMaxWorkers = 5
	// defaultMaxRetries is the default number of fetch attempts per ticker.
	defaultMaxRetries = 3
	// chunkSpanYears is the span covered by a single chunked history call.
	chunkSpanYears = 1
	// chunkDelay is the pause between consecutive chunk fetches for a ticker.
	chunkDelay = time.Second
)

// Failure represents a failed fetch for a single ticker.
type Failure struct {
	// Ticker is the symbol that failed.
	Ticker string
	// Err is the terminal error for the ticker.
	Err error
}

// Result represents the outcome of a batch fetch.
type Result struct {
	// Bars are the normalized records of every ticker that succeeded,
	// sorted by symbol then date.
	Bars []shared.Bar
	// Raw holds each successful ticker's record array as received from
	// its source.
	Raw map[string]json.RawMessage
	// Failures are the tickers that could not be fetched.
	Failures []Failure
}

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Quotes is the primary quote source client.
	Quotes *VNDirectClient
	// History is the alternate history source client. Optional, nil
	// disables source fallback and range fetching.
	History *TCBSClient
	// Cache is the raw quote cache. Optional, nil disables caching.
	Cache *Cache
	// Size is the number of most recent records fetched per ticker.
	Size int
	// MaxRetries is the number of fetch attempts per ticker.
	MaxRetries int
	// RetryDelay is the fixed pause between fetch attempts.
	RetryDelay time.Duration
	// Parallel fetches tickers concurrently when set.
	Parallel bool
	// MaxWorkers caps the number of concurrent ticker fetches.
	MaxWorkers int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.Quotes == nil {
		errs = errors.Join(errs, fmt.Errorf("quote client cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}
	if cfg.Size <= 0 {
		errs = errors.Join(errs, fmt.Errorf("size must be a positive number"))
	}

	return errs
}

// Manager represents the batch fetch manager. It fans ticker fetches out
// over a bounded worker pool and isolates failures at the ticker boundary.
type Manager struct {
	cfg     *ManagerConfig
	workers chan struct{}

	fetched   atomic.Int64
	cacheHits atomic.Int64
}

// attemptFunc runs a single fetch attempt against one source and returns
// the normalized bars together with the raw record array.
type attemptFunc func(ctx context.Context) ([]shared.Bar, json.RawMessage, error)

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	mgr := &Manager{
		cfg:     cfg,
		workers: make(chan struct{}, cfg.MaxWorkers),
	}

	return mgr, nil
}

// CacheHits returns the number of tickers served from the cache since the
// manager was created.
func (m *Manager) CacheHits() int64 {
	return m.cacheHits.Load()
}

// fetchWithRetry runs the provided primary attempt until it succeeds or the
// retry budget is spent, pausing a fixed delay between attempts. A qualifying
// failure triggers a single best-effort attempt against the alternate source,
// an alternate failure falls through to the next primary attempt. An empty
// payload from the primary is terminal and never retried.
func (m *Manager) fetchWithRetry(ctx context.Context, ticker string, primary attemptFunc, fallback attemptFunc) ([]shared.Bar, json.RawMessage, error) {
	var lastErr error

	for attempt := range m.cfg.MaxRetries {
		if attempt > 0 {
			if err := sleepContext(ctx, m.cfg.RetryDelay); err != nil {
				return nil, nil, err
			}
		}

		bars, raw, err := primary(ctx)
		if err == nil {
			return bars, raw, nil
		}
		if errors.Is(err, ErrNoData) {
			return nil, nil, err
		}

		lastErr = err
		m.cfg.Logger.Warn().Str("ticker", ticker).Int("attempt", attempt+1).
			Msgf("fetch attempt failed: %v", err)

		if fallback != nil && shouldFallback(attempt, err) {
			bars, raw, fbErr := fallback(ctx)
			if fbErr == nil {
				return bars, raw, nil
			}

			m.cfg.Logger.Debug().Str("ticker", ticker).
				Msgf("alternate source failed: %v", fbErr)
		}
	}

	return nil, nil, lastErr
}

// quoteAttempt forms the primary source attempt for the provided ticker,
// fetching the most recent records and persisting them to the cache.
func (m *Manager) quoteAttempt(ticker string) attemptFunc {
	return func(ctx context.Context) ([]shared.Bar, json.RawMessage, error) {
		raw, err := m.cfg.Quotes.FetchQuotes(ctx, ticker, m.cfg.Size)
		if err != nil {
			return nil, nil, err
		}

		bars, err := NormalizeQuotes(gjson.ParseBytes(raw).Array())
		if err != nil {
			return nil, nil, err
		}

		if m.cfg.Cache != nil {
			m.cfg.Cache.Put(ticker, m.cfg.Size, raw)
		}

		return bars, raw, nil
	}
}

// historyAttempt forms the alternate source attempt for the provided ticker,
// fetching a daily range wide enough to cover the configured size and
// trimming to the most recent records.
func (m *Manager) historyAttempt(ticker string) attemptFunc {
	return func(ctx context.Context) ([]shared.Bar, json.RawMessage, error) {
		if m.cfg.History == nil {
			return nil, nil, errors.New("no alternate source configured")
		}

		end := time.Now()
		start := end.AddDate(0, 0, -m.cfg.Size*2)

		raw, err := m.cfg.History.FetchHistory(ctx, ticker, start, end, shared.Daily)
		if err != nil {
			return nil, nil, err
		}

		bars, err := NormalizeHistory(gjson.ParseBytes(raw).Array(), ticker)
		if err != nil {
			return nil, nil, err
		}

		shared.SortBars(bars)
		if len(bars) > m.cfg.Size {
			bars = bars[len(bars)-m.cfg.Size:]
		}

		return bars, raw, nil
	}
}

// fetchTicker fetches the most recent records for the provided ticker,
// serving from the cache when a valid entry exists.
func (m *Manager) fetchTicker(ctx context.Context, ticker string) ([]shared.Bar, json.RawMessage, error) {
	if m.cfg.Cache != nil {
		if raw, ok := m.cfg.Cache.Get(ticker, m.cfg.Size); ok {
			bars, err := NormalizeQuotes(gjson.ParseBytes(raw).Array())
			if err == nil {
				m.cacheHits.Inc()
				return bars, raw, nil
			}

			m.cfg.Logger.Debug().Msgf("normalizing cached records for %s: %v", ticker, err)
		}
	}

	return m.fetchWithRetry(ctx, ticker, m.quoteAttempt(ticker), m.historyAttempt(ticker))
}

// dateRange represents an inclusive date range.
type dateRange struct {
	start time.Time
	end   time.Time
}

// chunkRange splits the provided range into chunks spanning at most a year
// each, in chronological order. Chunk boundaries advance with AddDate, so a
// range starting on a leap day normalizes instead of failing.
func chunkRange(start time.Time, end time.Time) []dateRange {
	var chunks []dateRange

	for cursor := start; !cursor.After(end); {
		next := cursor.AddDate(chunkSpanYears, 0, 0)

		chunkEnd := next.AddDate(0, 0, -1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		chunks = append(chunks, dateRange{start: cursor, end: chunkEnd})
		cursor = next
	}

	return chunks
}

// historyChunkAttempt forms the alternate source attempt for a single chunk
// of the provided ticker's range.
func (m *Manager) historyChunkAttempt(ticker string, chunk dateRange, interval shared.Interval) attemptFunc {
	return func(ctx context.Context) ([]shared.Bar, json.RawMessage, error) {
		if m.cfg.History == nil {
			return nil, nil, errors.New("no history source configured")
		}

		raw, err := m.cfg.History.FetchHistory(ctx, ticker, chunk.start, chunk.end, interval)
		if err != nil {
			return nil, nil, err
		}

		bars, err := NormalizeHistory(gjson.ParseBytes(raw).Array(), ticker)
		if err != nil {
			return nil, nil, err
		}

		return bars, raw, nil
	}
}

// quoteRangeAttempt forms the primary source attempt for a single chunk of
// the provided ticker's range. Only daily records are served by the primary
// source, coarser intervals have no quote range fallback.
func (m *Manager) quoteRangeAttempt(ticker string, chunk dateRange, interval shared.Interval) attemptFunc {
	if interval != shared.Daily {
		return nil
	}

	return func(ctx context.Context) ([]shared.Bar, json.RawMessage, error) {
		raw, err := m.cfg.Quotes.FetchQuoteRange(ctx, ticker, chunk.start, chunk.end)
		if err != nil {
			return nil, nil, err
		}

		bars, err := NormalizeQuotes(gjson.ParseBytes(raw).Array())
		if err != nil {
			return nil, nil, err
		}

		return bars, raw, nil
	}
}

// fetchTickerRange fetches records for the provided ticker between start and
// end, splitting long ranges into yearly chunks fetched chronologically with
// a fixed pause between chunks. Chunk results are concatenated, deduplicated
// on (symbol, date) and sorted by date.
func (m *Manager) fetchTickerRange(ctx context.Context, ticker string, start time.Time, end time.Time, interval shared.Interval) ([]shared.Bar, json.RawMessage, error) {
	chunks := chunkRange(start, end)

	var bars []shared.Bar
	var rawRecords []string

	for idx, chunk := range chunks {
		if idx > 0 {
			if err := sleepContext(ctx, chunkDelay); err != nil {
				return nil, nil, err
			}
		}

		chunkBars, chunkRaw, err := m.fetchWithRetry(ctx, ticker,
			m.historyChunkAttempt(ticker, chunk, interval),
			m.quoteRangeAttempt(ticker, chunk, interval))
		if err != nil {
			// A ticker may not have traded for the whole range, an empty
			// chunk is only terminal when every chunk is empty.
			if errors.Is(err, ErrNoData) {
				continue
			}

			return nil, nil, fmt.Errorf("fetching chunk %s to %s: %w",
				chunk.start.Format(shared.DateLayout), chunk.end.Format(shared.DateLayout), err)
		}

		bars = append(bars, chunkBars...)
		for _, record := range gjson.ParseBytes(chunkRaw).Array() {
			rawRecords = append(rawRecords, record.Raw)
		}
	}

	if len(bars) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}

	bars = shared.DedupeBars(bars)
	raw := json.RawMessage("[" + strings.Join(rawRecords, ",") + "]")

	return bars, raw, nil
}

// fetchAll fans the provided per-ticker fetch out over the worker pool and
// combines the outcomes. The combined result is deterministic regardless of
// completion order. An error is returned only when every ticker failed.
func (m *Manager) fetchAll(ctx context.Context, tickers []string, fetchOne func(ctx context.Context, ticker string) ([]shared.Bar, json.RawMessage, error)) (*Result, error) {
	res := &Result{Raw: make(map[string]json.RawMessage)}

	var mtx sync.Mutex
	collect := func(ticker string, bars []shared.Bar, raw json.RawMessage, err error) {
		mtx.Lock()
		defer mtx.Unlock()

		if err != nil {
			m.cfg.Logger.Error().Msgf("fetching %s: %v", ticker, err)
			res.Failures = append(res.Failures, Failure{Ticker: ticker, Err: err})
			return
		}

		m.fetched.Inc()
		res.Bars = append(res.Bars, bars...)
		res.Raw[ticker] = raw
	}

	switch {
	case m.cfg.Parallel && len(tickers) > 1:
		var wg sync.WaitGroup
		for idx := range tickers {
			ticker := tickers[idx]

			m.workers <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-m.workers }()

				bars, raw, err := fetchOne(ctx, ticker)
				collect(ticker, bars, raw, err)
			}()
		}
		wg.Wait()
	default:
		for idx := range tickers {
			bars, raw, err := fetchOne(ctx, tickers[idx])
			collect(tickers[idx], bars, raw, err)
		}
	}

	shared.SortBars(res.Bars)
	slices.SortFunc(res.Failures, func(a, b Failure) int {
		return strings.Compare(a.Ticker, b.Ticker)
	})

	m.cfg.Logger.Info().Int("tickers", len(tickers)).
		Int("failures", len(res.Failures)).
		Int64("total_fetched", m.fetched.Load()).
		Int64("total_cache_hits", m.cacheHits.Load()).Msg("fetch complete")

	if len(tickers) > 0 && len(res.Failures) == len(tickers) {
		return res, fmt.Errorf("fetching %d tickers: %w", len(tickers), ErrAllTickersFailed)
	}

	return res, nil
}

// FetchAll fetches the most recent records for the provided tickers. Ticker
// failures are isolated and reported on the result, an error is returned
// only when every ticker failed.
func (m *Manager) FetchAll(ctx context.Context, tickers []string) (*Result, error) {
	return m.fetchAll(ctx, tickers, m.fetchTicker)
}

// FetchAllRange fetches records for the provided tickers between start and
// end at the provided interval, chunking long ranges per ticker.
func (m *Manager) FetchAllRange(ctx context.Context, tickers []string, start time.Time, end time.Time, interval shared.Interval) (*Result, error) {
	return m.fetchAll(ctx, tickers, func(ctx context.Context, ticker string) ([]shared.Bar, json.RawMessage, error) {
		return m.fetchTickerRange(ctx, ticker, start, end, interval)
	})
}
