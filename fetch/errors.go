package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoData is returned when a source responds successfully with an
	// empty payload for a ticker. It is terminal, retrying cannot help.
	ErrNoData = errors.New("no data available")
	// ErrAllTickersFailed is returned when no ticker in a batch could be
	// fetched from any source.
	ErrAllTickersFailed = errors.New("could not retrieve data for any ticker")
)

// APIError represents a non-success response from a data source api.
type APIError struct {
	// Source is the data source name.
	Source string
	// Endpoint is the request path that produced the error.
	Endpoint string
	// StatusCode is the http status code of the response.
	StatusCode int
	// Message is the response body, if any.
	Message string
}

// Error stringifies the provided api error.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s api error (http %d) on %s: %s", e.Source, e.StatusCode, e.Endpoint, msg)
}
