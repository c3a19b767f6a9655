package shared

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the format layout for parsing quote dates.
	DateLayout = "2006-01-02"
	// TradingDateLayout is the format layout for parsing history trading dates.
	TradingDateLayout = "2006-01-02T15:04:05.000Z"
)

// VietnamTime returns the current time in vietnam (ICT, no daylight saving).
func VietnamTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading vietnam timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}

// ParseDate parses a date from the layouts used by the supported data sources.
func ParseDate(date string) (time.Time, error) {
	for _, layout := range []string{DateLayout, TradingDateLayout, time.RFC3339} {
		parsed, err := time.Parse(layout, date)
		if err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("parsing date %q: unsupported layout", date)
}
