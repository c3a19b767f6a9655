package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cdtran/vnquote/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunTableSQL      = "CREATE TABLE IF NOT EXISTS fetchrun (id TEXT PRIMARY KEY, tickers TEXT, requested INTEGER, fetched INTEGER, failed INTEGER, cachehits INTEGER, bars INTEGER, startedon INTEGER, durationms INTEGER)"
	createWeekStatTableSQL = "CREATE TABLE IF NOT EXISTS weekstat (id TEXT PRIMARY KEY, runs INTEGER, fetched INTEGER, failed INTEGER, createdon INTEGER)"
	persistRunSQL          = "INSERT INTO fetchrun(id, tickers, requested, fetched, failed, cachehits, bars, startedon, durationms) VALUES(?,?,?,?,?,?,?,?,?)"
	findWeekStatSQL        = "SELECT * FROM weekstat WHERE id = ?"
	updateWeekStatSQL      = "UPDATE weekstat SET runs = runs + 1, fetched = fetched + ?, failed = failed + ? WHERE id = ?"
	persistWeekStatSQL     = "INSERT INTO weekstat(id, runs, fetched, failed, createdon) VALUES(?,?,?,?,?)"
)

// Run represents the outcome summary of a single pipeline run.
type Run struct {
	// ID uniquely identifies the run.
	ID string
	// Tickers is the comma separated list of requested tickers.
	Tickers string
	// Requested is the number of tickers requested.
	Requested int
	// Fetched is the number of tickers fetched successfully.
	Fetched int
	// Failed is the number of tickers that could not be fetched.
	Failed int
	// CacheHits is the number of tickers served from the cache.
	CacheHits int64
	// Bars is the number of normalized records produced.
	Bars int
	// StartedOn is the run start time.
	StartedOn time.Time
	// Duration is the elapsed run time.
	Duration time.Duration
}

// RunStorer defines the requirements for storing pipeline runs.
type RunStorer interface {
	// PersistRun stores the provided completed pipeline run to the database.
	PersistRun(ctx context.Context, run *Run) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunStorer interface.
var _ RunStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
		{SQL: createWeekStatTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistRun stores the provided completed pipeline run to the database and
// folds its counters into the current week's aggregate.
func (db *Database) PersistRun(ctx context.Context, run *Run) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistRunSQL,
			PositionalParams: []any{run.ID, run.Tickers, run.Requested, run.Fetched,
				run.Failed, run.CacheHits, run.Bars, run.StartedOn.Unix(),
				run.Duration.Milliseconds()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}
	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting run %s: %d -> %s", run.ID, idx, errStr)
	}

	now, _, err := shared.VietnamTime()
	if err != nil {
		return err
	}

	id := shared.PeriodBucket(now, shared.Weekly)
	qresp, err := db.client.QuerySingle(ctx, findWeekStatSQL, id)
	if err != nil {
		return err
	}

	exists := len(qresp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateWeekStatSQL,
				PositionalParams: []any{run.Fetched, run.Failed, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating week stat %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistWeekStatSQL,
				PositionalParams: []any{id, 1, run.Fetched, run.Failed, now.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting week stat %s: %d -> %s", id, idx, errStr)
		}
	}

	db.cfg.Logger.Debug().Msgf("persisted run %s", run.ID)

	return nil
}
