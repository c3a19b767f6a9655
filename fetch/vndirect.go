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
	// defaultVNDirectURL is the base url for the vndirect finfo api.
	defaultVNDirectURL = "https://finfo-api.vndirect.com.vn/v4"
	// stockPricesPath is the daily stock price endpoint.
	stockPricesPath = "/stock_prices"
	// quoteRangeSize is the page size used for date ranged quote queries,
	// large enough to cover a full year of trading sessions.
	quoteRangeSize = 500
)

// VNDirectConfig represents the configuration for the vndirect client.
type VNDirectConfig struct {
	// BaseURL is the api base url.
	BaseURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// RequestsPerSecond caps the request rate against the api.
	RequestsPerSecond int
}

// VNDirectClient represents the VNDirect finfo API client, the primary
// quote source.
type VNDirectClient struct {
	cfg *VNDirectConfig
	restClient
}

// NewVNDirectClient instantiates a new vndirect client.
func NewVNDirectClient(cfg *VNDirectConfig) *VNDirectClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVNDirectURL
	}

	return &VNDirectClient{
		cfg:        cfg,
		restClient: newRESTClient("vndirect", cfg.BaseURL, cfg.Timeout, cfg.RequestsPerSecond),
	}
}

// FetchQuotes fetches the most recent daily quote records for the provided
// ticker, newest first, and returns the raw record array.
func (c *VNDirectClient) FetchQuotes(ctx context.Context, ticker string, size int) ([]byte, error) {
	params := url.Values{}
	params.Add("sort", "date")
	params.Add("size", strconv.Itoa(size))
	params.Add("page", "1")
	params.Add("q", fmt.Sprintf("code:%s", ticker))

	body, err := c.get(ctx, c.formURL(stockPricesPath, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching quotes for %s: %w", ticker, err)
	}

	return dataPayload(ticker, body)
}

// FetchQuoteRange fetches daily quote records for the provided ticker
// between start and end inclusive, and returns the raw record array.
func (c *VNDirectClient) FetchQuoteRange(ctx context.Context, ticker string, start time.Time, end time.Time) ([]byte, error) {
	params := url.Values{}
	params.Add("sort", "date")
	params.Add("size", strconv.Itoa(quoteRangeSize))
	params.Add("page", "1")
	params.Add("q", fmt.Sprintf("code:%s~date:gte:%s~date:lte:%s", ticker,
		start.Format(shared.DateLayout), end.Format(shared.DateLayout)))

	body, err := c.get(ctx, c.formURL(stockPricesPath, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching quote range for %s: %w", ticker, err)
	}

	return dataPayload(ticker, body)
}
