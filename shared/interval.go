package shared

import (
	"fmt"
	"time"
)

// Interval represents the time period covered by a single bar.
type Interval int

const (
	Daily Interval = iota
	Weekly
	Monthly
)

// String stringifies the provided interval.
func (i *Interval) String() string {
	switch *i {
	case Daily:
		return "1D"
	case Weekly:
		return "1W"
	case Monthly:
		return "1M"
	default:
		return "unknown"
	}
}

// ParseInterval parses an interval from its string code.
func ParseInterval(code string) (Interval, error) {
	switch code {
	case "1D":
		return Daily, nil
	case "1W":
		return Weekly, nil
	case "1M":
		return Monthly, nil
	default:
		return 0, fmt.Errorf("unknown interval: %q", code)
	}
}

// PeriodBucket returns the bucket key of the provided date at the interval.
// Weekly buckets follow the ISO week, dates in the same bucket share a key.
func PeriodBucket(date time.Time, interval Interval) string {
	switch interval {
	case Weekly:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return date.Format("2006-01")
	default:
		return date.Format(DateLayout)
	}
}
