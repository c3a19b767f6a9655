package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// userAgent is sent with every request, the sources reject clients
	// without a browser agent.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// defaultTimeout is the per-request timeout used when none is configured.
	defaultTimeout = time.Second * 10
	// defaultRequestsPerSecond caps the request rate against a source when
	// none is configured.
	defaultRequestsPerSecond = 5
)

// restClient implements the http plumbing shared by the data source clients.
type restClient struct {
	source  string
	baseURL string
	httpc   http.Client
	limiter *rate.Limiter
}

// newRESTClient instantiates a rate limited rest client for a data source.
func newRESTClient(source string, baseURL string, timeout time.Duration, requestsPerSecond int) restClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}

	return restClient{
		source:  source,
		baseURL: baseURL,
		httpc:   http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// formURL creates full urls including parameters for the api.
func (c *restClient) formURL(path string, params string) string {
	var buf strings.Builder
	buf.WriteString(c.baseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// get performs a rate limited GET against the provided url and returns the
// response body. Non-success statuses are returned as api errors.
func (c *restClient) get(ctx context.Context, formedURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("awaiting rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", c.source, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Source:     c.source,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

// dataPayload extracts the raw data array from the provided response body.
// A missing or empty array is the terminal no data condition for the ticker.
func dataPayload(ticker string, body []byte) ([]byte, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || len(data.Array()) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}

	return []byte(data.Raw), nil
}
