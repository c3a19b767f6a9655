package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cdtran/vnquote/shared"
)

const (
	// defaultTCBSURL is the base url for the tcbs stock insight api.
	defaultTCBSURL = "https://apipubaws.tcbs.com.vn"
	// barsLongTermPath is the long term history bars endpoint.
	barsLongTermPath = "/stock-insight/v1/stock/bars-long-term"
)

// TCBSConfig represents the configuration for the tcbs client.
type TCBSConfig struct {
	// BaseURL is the api base url.
	BaseURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// RequestsPerSecond caps the request rate against the api.
	RequestsPerSecond int
}

// TCBSClient represents the TCBS stock insight API client, the alternate
// history source.
type TCBSClient struct {
	cfg *TCBSConfig
	restClient
}

// NewTCBSClient instantiates a new tcbs client.
func NewTCBSClient(cfg *TCBSConfig) *TCBSClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTCBSURL
	}

	return &TCBSClient{
		cfg:        cfg,
		restClient: newRESTClient("tcbs", cfg.BaseURL, cfg.Timeout, cfg.RequestsPerSecond),
	}
}

// resolution maps the provided interval to its tcbs resolution code.
func resolution(interval shared.Interval) string {
	switch interval {
	case shared.Weekly:
		return "W"
	case shared.Monthly:
		return "M"
	default:
		return "D"
	}
}

// FetchHistory fetches history bars for the provided ticker between start
// and end inclusive at the provided interval, and returns the raw record
// array.
func (c *TCBSClient) FetchHistory(ctx context.Context, ticker string, start time.Time, end time.Time, interval shared.Interval) ([]byte, error) {
	params := url.Values{}
	params.Add("ticker", ticker)
	params.Add("type", "stock")
	params.Add("resolution", resolution(interval))
	params.Add("from", strconv.FormatInt(start.Unix(), 10))
	params.Add("to", strconv.FormatInt(end.Unix(), 10))

	body, err := c.get(ctx, c.formURL(barsLongTermPath, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", ticker, err)
	}

	return dataPayload(ticker, body)
}
