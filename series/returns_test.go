package series

import (
	"math"
	"strings"
	"testing"

	"github.com/cdtran/vnquote/shared"
	"github.com/peterldowns/testy/assert"
)

func almostEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWithReturns(t *testing.T) {
	frame, err := NewFrame([]shared.Bar{
		bar(t, "AAA", "2024-01-02", 100),
		bar(t, "AAA", "2024-01-03", 110),
		bar(t, "AAA", "2024-01-04", 121),
		bar(t, "BBB", "2024-01-03", 50),
		bar(t, "BBB", "2024-01-04", 55),
	})
	assert.NoError(t, err)

	assert.NoError(t, frame.WithReturns())

	// Ensure the row count is unchanged and the returns flag is set.
	assert.Equal(t, frame.Len(), 5)
	assert.True(t, frame.HasReturns())

	rows := frame.Rows()

	// Ensure the one day return is undefined at the first row of a group
	// and follows the adjusted close after.
	assert.True(t, math.IsNaN(rows[0].Ret1D))
	assert.True(t, almostEqual(rows[1].Ret1D, 0.10))
	assert.True(t, almostEqual(rows[2].Ret1D, 0.10))

	// Ensure return lookbacks never cross a symbol boundary.
	assert.True(t, math.IsNaN(rows[3].Ret1D))
	assert.True(t, almostEqual(rows[4].Ret1D, 0.10))

	// Ensure longer lookbacks than the group stay undefined.
	assert.True(t, math.IsNaN(rows[2].Ret1W))
	assert.True(t, math.IsNaN(rows[2].Ret1M))
	assert.True(t, math.IsNaN(rows[2].Ret6M))
}

func TestWithReturnsWeekly(t *testing.T) {
	bars := make([]shared.Bar, 0, 6)
	adjCloses := []float64{100, 101, 102, 103, 104, 110}
	dates := []string{
		"2024-01-02", "2024-01-03", "2024-01-04",
		"2024-01-05", "2024-01-08", "2024-01-09",
	}
	for idx := range adjCloses {
		bars = append(bars, bar(t, "AAA", dates[idx], adjCloses[idx]))
	}

	frame, err := NewFrame(bars)
	assert.NoError(t, err)
	assert.NoError(t, frame.WithReturns())

	rows := frame.Rows()

	// Ensure the weekly return spans five trading days.
	assert.True(t, math.IsNaN(rows[4].Ret1W))
	assert.True(t, almostEqual(rows[5].Ret1W, 0.10))
}

func TestWithReturnsEmptyFrame(t *testing.T) {
	frame := &Frame{}
	err := frame.WithReturns()

	// Ensure computing returns before a fetch errors.
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "run a fetch first"))
}

func TestWithVolatility(t *testing.T) {
	frame, err := NewFrame([]shared.Bar{
		bar(t, "AAA", "2024-01-02", 100),
		bar(t, "AAA", "2024-01-03", 110),
		bar(t, "AAA", "2024-01-04", 132),
		bar(t, "AAA", "2024-01-05", 145.2),
	})
	assert.NoError(t, err)

	assert.NoError(t, frame.WithReturns())
	assert.NoError(t, frame.WithVolatility(2))

	assert.True(t, frame.HasVolatility())

	rows := frame.Rows()

	// Ensure the window only completes once it holds two defined one day
	// returns.
	assert.True(t, math.IsNaN(rows[0].Volatility))
	assert.True(t, math.IsNaN(rows[1].Volatility))

	// Daily returns are 0.10 then 0.20, their sample deviation is
	// sqrt(0.005).
	assert.True(t, almostEqual(rows[2].Volatility, math.Sqrt(0.005)))

	// Returns 0.20 then 0.10 deviate identically.
	assert.True(t, almostEqual(rows[3].Volatility, math.Sqrt(0.005)))
}

func TestWithVolatilityComputesReturns(t *testing.T) {
	frame, err := NewFrame([]shared.Bar{
		bar(t, "AAA", "2024-01-02", 100),
		bar(t, "AAA", "2024-01-03", 110),
		bar(t, "AAA", "2024-01-04", 121),
	})
	assert.NoError(t, err)

	// Ensure volatility derives its own daily returns when the returns
	// stage has not run.
	assert.NoError(t, frame.WithVolatility(2))

	rows := frame.Rows()
	assert.True(t, almostEqual(rows[2].Volatility, 0))
	assert.False(t, frame.HasReturns())
	assert.True(t, math.IsNaN(rows[2].Ret1D))
}
