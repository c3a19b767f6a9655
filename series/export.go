package series

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/cdtran/vnquote/shared"
	"github.com/tidwall/gjson"
)

// barsHeader is the header of the canonical bar export.
var barsHeader = []string{"Date", "Symbol", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// returnsHeader extends the bar header with the derived return columns.
var returnsHeader = []string{"1d%", "1w%", "1m%", "6m%"}

// formatField stringifies a value for a CSV field, leaving undefined
// values empty.
func formatField(value float64) string {
	if math.IsNaN(value) {
		return ""
	}

	return strconv.FormatFloat(value, 'f', -1, 64)
}

// barRecord forms the canonical CSV record of the provided row.
func barRecord(row *Row) []string {
	return []string{
		row.Date.Format(shared.DateLayout),
		row.Symbol,
		formatField(row.Open),
		formatField(row.High),
		formatField(row.Low),
		formatField(row.Close),
		formatField(row.AdjClose),
		formatField(row.Volume),
	}
}

// WriteBarsCSV writes the frame's canonical rows as CSV with a header row
// and no index column.
func (f *Frame) WriteBarsCSV(w io.Writer) error {
	if f.Len() == 0 {
		return fmt.Errorf("exporting bars: %w", errEmptyFrame)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(barsHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for idx := range f.rows {
		if err := cw.Write(barRecord(&f.rows[idx])); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteReturnsCSV writes the frame's rows together with their derived
// return columns, and the volatility column once it has been computed.
// Undefined values are left empty.
func (f *Frame) WriteReturnsCSV(w io.Writer) error {
	if f.Len() == 0 {
		return fmt.Errorf("exporting returns: %w", errEmptyFrame)
	}
	if !f.hasReturns {
		return fmt.Errorf("exporting returns: returns have not been computed")
	}

	header := slices.Concat(barsHeader, returnsHeader)
	if f.hasVolatility {
		header = append(header, "Volatility")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for idx := range f.rows {
		row := &f.rows[idx]

		record := append(barRecord(row),
			formatField(row.Ret1D),
			formatField(row.Ret1W),
			formatField(row.Ret1M),
			formatField(row.Ret6M))
		if f.hasVolatility {
			record = append(record, formatField(row.Volatility))
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteRawCSV writes the raw source records of every ticker as CSV. The
// header is the union of the source field names in order of first
// appearance, fields a record lacks are left empty. Tickers are written
// in sorted order.
func WriteRawCSV(w io.Writer, raw map[string]json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("exporting raw records: %w", errEmptyFrame)
	}

	tickers := make([]string, 0, len(raw))
	for ticker := range raw {
		tickers = append(tickers, ticker)
	}
	slices.Sort(tickers)

	var header []string
	seen := make(map[string]bool)
	for _, ticker := range tickers {
		for _, record := range gjson.ParseBytes(raw[ticker]).Array() {
			record.ForEach(func(key, _ gjson.Result) bool {
				if !seen[key.String()] {
					seen[key.String()] = true
					header = append(header, key.String())
				}

				return true
			})
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, ticker := range tickers {
		for _, record := range gjson.ParseBytes(raw[ticker]).Array() {
			fields := record.Map()

			out := make([]string, len(header))
			for idx, name := range header {
				if value, ok := fields[name]; ok {
					out[idx] = value.String()
				}
			}

			if err := cw.Write(out); err != nil {
				return fmt.Errorf("writing csv record: %w", err)
			}
		}
	}

	cw.Flush()

	return cw.Error()
}
