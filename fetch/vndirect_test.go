package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestVNDirectClientFormURL(t *testing.T) {
	client := NewVNDirectClient(&VNDirectConfig{BaseURL: "http://base"})

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")

	formedURL := client.formURL("/path", params.Encode())
	assert.Equal(t, formedURL, "http://base/path?a=bbb&b=ccc")
}

func TestVNDirectClientFetchQuotes(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"data":[{"date":"2024-01-02","code":"VIC","open":1,"high":2,"low":0.5,"close":1.5,"adClose":1.5,"nmVolume":100}],"totalElements":1}`)
	}))
	defer server.Close()

	client := NewVNDirectClient(&VNDirectConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
	})

	raw, err := client.FetchQuotes(context.Background(), "VIC", 50)
	assert.NoError(t, err)

	// Ensure the expected query parameters are sent.
	assert.Equal(t, gotQuery.Get("q"), "code:VIC")
	assert.Equal(t, gotQuery.Get("size"), "50")
	assert.Equal(t, gotQuery.Get("sort"), "date")
	assert.Equal(t, gotQuery.Get("page"), "1")

	// Ensure the raw record array is unwrapped from the response envelope.
	records := gjson.ParseBytes(raw).Array()
	assert.Equal(t, len(records), 1)
	assert.Equal(t, records[0].Get("code").String(), "VIC")
}

func TestVNDirectClientFetchQuoteRange(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"data":[{"date":"2024-01-02","code":"VIC","open":1,"high":2,"low":0.5,"close":1.5,"adClose":1.5,"nmVolume":100}]}`)
	}))
	defer server.Close()

	client := NewVNDirectClient(&VNDirectConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
	})

	start := dateFromString(t, "2024-01-01")
	end := dateFromString(t, "2024-06-30")

	_, err := client.FetchQuoteRange(context.Background(), "VIC", start, end)
	assert.NoError(t, err)

	// Ensure the range is encoded in the query filter.
	assert.Equal(t, gotQuery.Get("q"), "code:VIC~date:gte:2024-01-01~date:lte:2024-06-30")
}

func TestVNDirectClientErrors(t *testing.T) {
	// Ensure empty payloads surface the terminal no data error.
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer empty.Close()

	client := NewVNDirectClient(&VNDirectConfig{
		BaseURL:           empty.URL,
		RequestsPerSecond: 1000,
	})

	_, err := client.FetchQuotes(context.Background(), "VIC", 10)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))

	// Ensure non-success statuses surface as api errors.
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer failing.Close()

	client = NewVNDirectClient(&VNDirectConfig{
		BaseURL:           failing.URL,
		RequestsPerSecond: 1000,
	})

	_, err = client.FetchQuotes(context.Background(), "VIC", 10)
	assert.Error(t, err)

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErr.Source, "vndirect")
	assert.Equal(t, apiErr.StatusCode, http.StatusInternalServerError)
	assert.Equal(t, apiErr.Message, "upstream exploded")
}
