package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func dateFromString(t *testing.T, date string) time.Time {
	t.Helper()

	parsed, err := time.Parse(DateLayout, date)
	assert.NoError(t, err)

	return parsed
}

func TestSortBars(t *testing.T) {
	bars := []Bar{
		{Symbol: "VIC", Date: dateFromString(t, "2024-01-03"), Close: 44},
		{Symbol: "FPT", Date: dateFromString(t, "2024-01-03"), Close: 98},
		{Symbol: "VIC", Date: dateFromString(t, "2024-01-02"), Close: 43},
		{Symbol: "FPT", Date: dateFromString(t, "2024-01-02"), Close: 97},
	}

	SortBars(bars)

	// Ensure bars are grouped by symbol and ordered by date within each group.
	assert.Equal(t, bars[0].Symbol, "FPT")
	assert.Equal(t, bars[0].Close, float64(97))
	assert.Equal(t, bars[1].Close, float64(98))
	assert.Equal(t, bars[2].Symbol, "VIC")
	assert.Equal(t, bars[2].Close, float64(43))
	assert.Equal(t, bars[3].Close, float64(44))
}

func TestDedupeBars(t *testing.T) {
	firstDate := dateFromString(t, "2024-01-02")
	secondDate := dateFromString(t, "2024-01-03")

	bars := []Bar{
		{Symbol: "VIC", Date: firstDate, Close: 43},
		{Symbol: "VIC", Date: secondDate, Close: 44},
		{Symbol: "VIC", Date: secondDate, Close: 45},
	}

	deduped := DedupeBars(bars)

	// Ensure duplicate (symbol, date) entries collapse to the most recently
	// appended record.
	assert.Equal(t, len(deduped), 2)
	assert.Equal(t, deduped[0].Close, float64(43))
	assert.Equal(t, deduped[1].Close, float64(45))

	// Ensure deduplicating already unique bars changes nothing.
	again := DedupeBars(deduped)
	assert.Equal(t, len(again), 2)
	assert.Equal(t, again[0].Close, float64(43))
	assert.Equal(t, again[1].Close, float64(45))
}
