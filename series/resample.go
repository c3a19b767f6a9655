package series

import (
	"fmt"

	"github.com/cdtran/vnquote/shared"
)

// Resample reduces the frame to the last observation of every (symbol,
// period bucket), using ISO weeks for the weekly interval and calendar
// months for the monthly one. The result is a fresh frame, derived metrics
// are recomputed on the resampled rows by their stages.
func (f *Frame) Resample(interval shared.Interval) (*Frame, error) {
	if f.Len() == 0 {
		return nil, fmt.Errorf("resampling: %w", errEmptyFrame)
	}

	var bars []shared.Bar
	f.eachSymbol(func(rows []Row) {
		for idx := range rows {
			// Rows are date ordered, so the last row of a bucket
			// supersedes the earlier ones.
			if idx+1 < len(rows) &&
				shared.PeriodBucket(rows[idx].Date, interval) == shared.PeriodBucket(rows[idx+1].Date, interval) {
				continue
			}

			bars = append(bars, rows[idx].Bar)
		}
	})

	return NewFrame(bars)
}
