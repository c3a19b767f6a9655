package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cdtran/vnquote/display"
	"github.com/cdtran/vnquote/service"
	"github.com/cdtran/vnquote/shared"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the configuration struct for the service.
type Config struct {
	// Tickers represents the tracked tickers.
	Tickers []string
	// ConfigFile is the path to an optional yaml config file.
	ConfigFile string
	// Industries maps tickers to industry names, config file only.
	Industries map[string]string
	// Size is the number of most recent records fetched per ticker.
	Size int
	// Start is the range fetch start date, empty selects the size based
	// fetch.
	Start string
	// End is the range fetch end date, empty defaults to today.
	End string
	// Interval is the bar interval code for ranged fetches.
	Interval string
	// Resample resamples the series to a coarser interval code, empty
	// disables resampling.
	Resample string
	// Verbose enables debug logging.
	Verbose bool
	// NoCache disables the raw quote cache.
	NoCache bool
	// CacheDir is the cache directory.
	CacheDir string
	// CacheExpiryHours is the cache entry age limit, zero never expires.
	CacheExpiryHours int
	// RequestTimeoutSecs is the per-request timeout.
	RequestTimeoutSecs int
	// MaxRetries is the number of fetch attempts per ticker.
	MaxRetries int
	// RetryDelaySecs is the fixed pause between fetch attempts.
	RetryDelaySecs int
	// Sequential fetches tickers one at a time.
	Sequential bool
	// MaxWorkers caps the number of concurrent ticker fetches.
	MaxWorkers int
	// SortBy is the summary table sort column or comma separated column
	// list.
	SortBy string
	// VolatilityWindow is the rolling volatility window, zero disables
	// the volatility stage.
	VolatilityWindow int
	// ExportPath writes a CSV export to the provided path.
	ExportPath string
	// ExportKind selects the export flavor, raw, ohlcv or returns.
	ExportKind string
	// Watch re-runs the pipeline periodically.
	Watch bool
	// RefreshSecs is the pause between watch mode runs.
	RefreshSecs int
	// NoColor renders the summary table without styling.
	NoColor bool
	// DBEndpoint is the run history database endpoint, empty disables
	// run history.
	DBEndpoint string
	// DBUser is the run history database user.
	DBUser string
	// DBPass is the run history database user pass.
	DBPass string

	registeredFlags map[string]bool

	// Parsed during validation.
	start    time.Time
	end      time.Time
	interval shared.Interval
	resample shared.Interval
}

// fileConfig mirrors the yaml config file shape.
type fileConfig struct {
	Tickers    []string          `yaml:"tickers"`
	Industries map[string]string `yaml:"industries"`
}

// Validate asserts the config sane inputs and parses the date and interval
// fields.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Tickers) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no tickers provided for quote service"))
	}
	for _, ticker := range cfg.Tickers {
		if len(ticker) != 3 {
			errs = errors.Join(errs, fmt.Errorf("ticker %q must be a three character symbol", ticker))
		}
	}
	if cfg.Size <= 0 {
		errs = errors.Join(errs, fmt.Errorf("size must be a positive number"))
	}
	if cfg.CacheExpiryHours < 0 {
		errs = errors.Join(errs, fmt.Errorf("cache expiry cannot be a negative number"))
	}
	if cfg.RequestTimeoutSecs <= 0 {
		errs = errors.Join(errs, fmt.Errorf("request timeout must be a positive number"))
	}
	if cfg.MaxRetries <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max retries must be a positive number"))
	}
	if cfg.RetryDelaySecs < 0 {
		errs = errors.Join(errs, fmt.Errorf("retry delay cannot be a negative number"))
	}
	if cfg.MaxWorkers <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max workers must be a positive number"))
	}
	if cfg.RefreshSecs <= 0 {
		errs = errors.Join(errs, fmt.Errorf("refresh interval must be a positive number"))
	}
	sortColumns := display.SortColumns(cfg.SortBy)
	if len(sortColumns) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no sort column provided"))
	}
	for _, column := range sortColumns {
		if !display.ValidSortColumn(column) {
			errs = errors.Join(errs, fmt.Errorf("unknown sort column: %q", column))
		}
	}
	if !service.ValidExportKind(cfg.ExportKind) {
		errs = errors.Join(errs, fmt.Errorf("unknown export kind: %q", cfg.ExportKind))
	}

	var err error
	cfg.interval, err = shared.ParseInterval(cfg.Interval)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	cfg.resample = shared.Daily
	if cfg.Resample != "" {
		cfg.resample, err = shared.ParseInterval(cfg.Resample)
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}

	if cfg.Start != "" {
		cfg.start, err = time.Parse(shared.DateLayout, cfg.Start)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing start date: %v", err))
		}
	}
	if cfg.End != "" {
		cfg.end, err = time.Parse(shared.DateLayout, cfg.End)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing end date: %v", err))
		}
	}
	if !cfg.start.IsZero() && !cfg.end.IsZero() && cfg.end.Before(cfg.start) {
		errs = errors.Join(errs, fmt.Errorf("end date cannot precede the start date"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them
// to avoid reregistration. Environment variables override the provided
// fallback default.
func (cfg *Config) registerFlag(name string, value interface{}, fallback string, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	if defValue == "" {
		defValue = fallback
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// mergeFileConfig merges the yaml config file at the provided path into the
// config. Tickers already set by flags or the environment take precedence.
func (cfg *Config) mergeFileConfig(path string) error {
	readb, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(readb, &file); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if len(cfg.Tickers) == 0 {
		cfg.Tickers = file.Tickers
	}
	cfg.Industries = file.Industries

	return nil
}

// normalizeTickers trims and uppercases the configured tickers.
func (cfg *Config) normalizeTickers() {
	for idx := range cfg.Tickers {
		cfg.Tickers[idx] = strings.ToUpper(strings.TrimSpace(cfg.Tickers[idx]))
	}
}

// loadConfig loads the configuration from the environment, command line
// flags and the optional yaml config file.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables
	// as defaults.
	for _, reg := range []struct {
		name     string
		value    interface{}
		fallback string
		usage    string
	}{
		{"tickers", &cfg.Tickers, "", "the tracked tickers"},
		{"configfile", &cfg.ConfigFile, "", "the path to the yaml config file"},
		{"size", &cfg.Size, "125", "the number of most recent records fetched per ticker"},
		{"start", &cfg.Start, "", "the range fetch start date (2006-01-02)"},
		{"end", &cfg.End, "", "the range fetch end date (2006-01-02)"},
		{"interval", &cfg.Interval, "1D", "the bar interval for ranged fetches"},
		{"resample", &cfg.Resample, "", "resample the series to a coarser interval"},
		{"verbose", &cfg.Verbose, "", "enable debug logging"},
		{"nocache", &cfg.NoCache, "", "disable the raw quote cache"},
		{"cachedir", &cfg.CacheDir, ".vnquote_cache", "the cache directory"},
		{"cacheexpiry", &cfg.CacheExpiryHours, "24", "the cache entry age limit in hours, zero never expires"},
		{"timeout", &cfg.RequestTimeoutSecs, "10", "the per-request timeout in seconds"},
		{"maxretries", &cfg.MaxRetries, "3", "the number of fetch attempts per ticker"},
		{"retrydelay", &cfg.RetryDelaySecs, "1", "the pause between fetch attempts in seconds"},
		{"sequential", &cfg.Sequential, "", "fetch tickers one at a time"},
		{"maxworkers", &cfg.MaxWorkers, "5", "the concurrent ticker fetch cap"},
		{"sortby", &cfg.SortBy, "6m%", "the summary table sort column or comma separated column list"},
		{"volwindow", &cfg.VolatilityWindow, "0", "the rolling volatility window, zero disables it"},
		{"export", &cfg.ExportPath, "", "write a CSV export to the provided path"},
		{"exportkind", &cfg.ExportKind, "ohlcv", "the export flavor, raw, ohlcv or returns"},
		{"watch", &cfg.Watch, "", "re-run the pipeline periodically"},
		{"refresh", &cfg.RefreshSecs, "900", "the pause between watch mode runs in seconds"},
		{"nocolor", &cfg.NoColor, "", "render the summary table without styling"},
		{"dbendpoint", &cfg.DBEndpoint, "", "the run history database endpoint"},
		{"dbuser", &cfg.DBUser, "", "the run history database user"},
		{"dbpass", &cfg.DBPass, "", "the run history database user pass"},
	} {
		if err := cfg.registerFlag(reg.name, reg.value, reg.fallback, reg.usage); err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.ConfigFile != "" {
		if err := cfg.mergeFileConfig(cfg.ConfigFile); err != nil {
			return err
		}
	}

	cfg.normalizeTickers()

	return cfg.Validate()
}
