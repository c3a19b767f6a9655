package series

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// Trading day lookbacks for the displayed return periods.
	ret1DPeriod = 1
	ret1WPeriod = 5
	ret1MPeriod = 20
	ret6MPeriod = 120

	// defaultVolatilityWindow is the rolling window used for the
	// volatility of the one day return.
	defaultVolatilityWindow = 20
)

// trailingReturn computes the trailing return of the row at idx over the
// provided lookback within a date ordered symbol group. Positions without a
// full lookback, and lookbacks onto a zero adjusted close, are NaN.
func trailingReturn(rows []Row, idx int, period int) float64 {
	if idx < period {
		return math.NaN()
	}

	base := rows[idx-period].AdjClose
	if base == 0 {
		return math.NaN()
	}

	return (rows[idx].AdjClose - base) / base
}

// WithReturns computes the trailing one day, one week, one month and six
// month returns of every symbol group over the adjusted close. The row
// count is unchanged, positions before a full lookback stay NaN.
func (f *Frame) WithReturns() error {
	if f.Len() == 0 {
		return fmt.Errorf("computing returns: %w", errEmptyFrame)
	}

	f.eachSymbol(func(rows []Row) {
		for idx := range rows {
			rows[idx].Ret1D = trailingReturn(rows, idx, ret1DPeriod)
			rows[idx].Ret1W = trailingReturn(rows, idx, ret1WPeriod)
			rows[idx].Ret1M = trailingReturn(rows, idx, ret1MPeriod)
			rows[idx].Ret6M = trailingReturn(rows, idx, ret6MPeriod)
		}
	})

	f.hasReturns = true

	return nil
}

// WithVolatility computes the rolling sample standard deviation of the one
// day return over the trailing window for every symbol group. The one day
// return of the first row is undefined, so the first window rows stay NaN.
// A non-positive window selects the default.
func (f *Frame) WithVolatility(window int) error {
	if f.Len() == 0 {
		return fmt.Errorf("computing volatility: %w", errEmptyFrame)
	}

	if window <= 0 {
		window = defaultVolatilityWindow
	}

	f.eachSymbol(func(rows []Row) {
		returns := make([]float64, len(rows))
		for idx := range rows {
			if f.hasReturns {
				returns[idx] = rows[idx].Ret1D
				continue
			}

			returns[idx] = trailingReturn(rows, idx, ret1DPeriod)
		}

		for idx := range rows {
			if idx < window {
				continue
			}

			rows[idx].Volatility = stat.StdDev(returns[idx-window+1:idx+1], nil)
		}
	})

	f.hasVolatility = true

	return nil
}
