package shared

import (
	"slices"
	"strings"
	"time"
)

// Bar represents a normalized daily price record for a symbol.
type Bar struct {
	Symbol   string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// SortBars sorts the provided bars by symbol then date, preserving the
// original order of duplicate (symbol, date) entries.
func SortBars(bars []Bar) {
	slices.SortStableFunc(bars, func(a, b Bar) int {
		if c := strings.Compare(a.Symbol, b.Symbol); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})
}

// DedupeBars sorts the provided bars and removes duplicate (symbol, date)
// entries, keeping the most recently appended record for each key. Applying
// it to already deduplicated bars leaves them unchanged.
func DedupeBars(bars []Bar) []Bar {
	SortBars(bars)

	deduped := make([]Bar, 0, len(bars))
	for idx, bar := range bars {
		if idx+1 < len(bars) && bars[idx+1].Symbol == bar.Symbol &&
			bars[idx+1].Date.Equal(bar.Date) {
			continue
		}
		deduped = append(deduped, bar)
	}

	return deduped
}
