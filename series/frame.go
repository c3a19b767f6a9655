// Package series derives trailing return and volatility metrics from
// normalized price records and exports them for display and CSV output.
package series

import (
	"errors"
	"fmt"
	"math"

	"github.com/cdtran/vnquote/shared"
)

// errEmptyFrame signals a derived stage ran before any records were fetched.
var errEmptyFrame = errors.New("frame has no records, run a fetch first")

// Row represents a single observation of a symbol's series together with
// its derived metrics. Derived fields are NaN until their stage has run,
// and stay NaN at positions without a full lookback.
type Row struct {
	shared.Bar

	// Ret1D is the one day trailing return on the adjusted close.
	Ret1D float64
	// Ret1W is the one week (five trading day) trailing return.
	Ret1W float64
	// Ret1M is the one month (twenty trading day) trailing return.
	Ret1M float64
	// Ret6M is the six month (120 trading day) trailing return.
	Ret6M float64
	// Volatility is the rolling standard deviation of the one day return.
	Volatility float64
}

// Frame represents an ordered collection of rows, sorted by symbol then
// date and deduplicated on (symbol, date). The ordering is established on
// construction and maintained by every transform.
type Frame struct {
	rows []Row

	hasReturns    bool
	hasVolatility bool
}

// NewFrame initializes a frame from the provided bars, sorting and
// deduplicating them.
func NewFrame(bars []shared.Bar) (*Frame, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("forming frame: %w", errEmptyFrame)
	}

	deduped := shared.DedupeBars(bars)

	rows := make([]Row, len(deduped))
	for idx := range deduped {
		rows[idx] = Row{
			Bar:        deduped[idx],
			Ret1D:      math.NaN(),
			Ret1W:      math.NaN(),
			Ret1M:      math.NaN(),
			Ret6M:      math.NaN(),
			Volatility: math.NaN(),
		}
	}

	return &Frame{rows: rows}, nil
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Rows returns the frame's rows in (symbol, date) order.
func (f *Frame) Rows() []Row {
	return f.rows
}

// HasReturns reports whether the trailing returns have been computed.
func (f *Frame) HasReturns() bool {
	return f.hasReturns
}

// HasVolatility reports whether the rolling volatility has been computed.
func (f *Frame) HasVolatility() bool {
	return f.hasVolatility
}

// eachSymbol calls fn with each symbol's row group. Rows are sorted by
// symbol then date, so every group is a contiguous date ordered slice.
func (f *Frame) eachSymbol(fn func(rows []Row)) {
	for start := 0; start < len(f.rows); {
		end := start
		for end < len(f.rows) && f.rows[end].Symbol == f.rows[start].Symbol {
			end++
		}

		fn(f.rows[start:end])
		start = end
	}
}

// Symbols returns the distinct symbols of the frame in sorted order.
func (f *Frame) Symbols() []string {
	var symbols []string
	f.eachSymbol(func(rows []Row) {
		symbols = append(symbols, rows[0].Symbol)
	})

	return symbols
}

// Latest returns the most recent row of every symbol, sorted by symbol.
func (f *Frame) Latest() []Row {
	var latest []Row
	f.eachSymbol(func(rows []Row) {
		latest = append(latest, rows[len(rows)-1])
	})

	return latest
}
