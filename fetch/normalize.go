package fetch

import (
	"fmt"
	"strings"

	"github.com/cdtran/vnquote/shared"
	"github.com/tidwall/gjson"
)

// requiredQuoteFields are the fields every record from the primary source
// must carry before it can be normalized.
var requiredQuoteFields = []string{
	"date", "code", "open", "high", "low", "close", "adClose", "nmVolume",
}

// NormalizeQuotes converts raw records from the primary source into bars.
// The source schema is fixed, records missing any required field fail
// normalization with an error naming the missing set.
func NormalizeQuotes(records []gjson.Result) ([]shared.Bar, error) {
	if len(records) == 0 {
		return []shared.Bar{}, nil
	}

	var missing []string
	for _, field := range requiredQuoteFields {
		if !records[0].Get(field).Exists() {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("quote data missing required fields: %v", missing)
	}

	bars := make([]shared.Bar, 0, len(records))
	for idx := range records {
		var bar shared.Bar

		bar.Symbol = records[idx].Get("code").String()
		bar.Open = records[idx].Get("open").Float()
		bar.High = records[idx].Get("high").Float()
		bar.Low = records[idx].Get("low").Float()
		bar.Close = records[idx].Get("close").Float()
		bar.AdjClose = records[idx].Get("adClose").Float()
		bar.Volume = records[idx].Get("nmVolume").Float()

		date, err := shared.ParseDate(records[idx].Get("date").String())
		if err != nil {
			return nil, fmt.Errorf("parsing quote date: %w", err)
		}
		bar.Date = date

		bars = append(bars, bar)
	}

	return bars, nil
}

// fieldValue returns the first field of the provided record matching one of
// the names, compared case-insensitively in the order given.
func fieldValue(record gjson.Result, names ...string) (gjson.Result, bool) {
	for _, name := range names {
		var found gjson.Result
		var ok bool

		record.ForEach(func(key, value gjson.Result) bool {
			if strings.EqualFold(key.String(), name) {
				found, ok = value, true
				return false
			}
			return true
		})

		if ok {
			return found, true
		}
	}

	return gjson.Result{}, false
}

// NormalizeHistory converts raw records from the alternate source into bars.
// Field names vary between providers, so columns are matched through
// case-insensitive aliases. The adjusted close is synthesized from the first
// of adjClose, adj_close or close present.
func NormalizeHistory(records []gjson.Result, ticker string) ([]shared.Bar, error) {
	if len(records) == 0 {
		return []shared.Bar{}, nil
	}

	aliases := map[string][]string{
		"date":   {"tradingDate", "date", "time"},
		"open":   {"open"},
		"high":   {"high"},
		"low":    {"low"},
		"close":  {"close"},
		"volume": {"volume", "nmVolume"},
	}

	var missing []string
	for _, field := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := fieldValue(records[0], aliases[field]...); !ok {
			missing = append(missing, field)
		}
	}
	if _, ok := fieldValue(records[0], "adjClose", "adj_close", "close"); !ok {
		missing = append(missing, "adjClose")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("history data missing required fields: %v", missing)
	}

	bars := make([]shared.Bar, 0, len(records))
	for idx := range records {
		var bar shared.Bar

		if symbol, ok := fieldValue(records[idx], "ticker", "code", "symbol"); ok {
			bar.Symbol = symbol.String()
		} else {
			bar.Symbol = ticker
		}

		openField, _ := fieldValue(records[idx], aliases["open"]...)
		highField, _ := fieldValue(records[idx], aliases["high"]...)
		lowField, _ := fieldValue(records[idx], aliases["low"]...)
		closeField, _ := fieldValue(records[idx], aliases["close"]...)
		volumeField, _ := fieldValue(records[idx], aliases["volume"]...)
		adjCloseField, _ := fieldValue(records[idx], "adjClose", "adj_close", "close")

		bar.Open = openField.Float()
		bar.High = highField.Float()
		bar.Low = lowField.Float()
		bar.Close = closeField.Float()
		bar.Volume = volumeField.Float()
		bar.AdjClose = adjCloseField.Float()

		dateField, _ := fieldValue(records[idx], aliases["date"]...)
		date, err := shared.ParseDate(dateField.String())
		if err != nil {
			return nil, fmt.Errorf("parsing history date: %w", err)
		}
		bar.Date = date

		bars = append(bars, bar)
	}

	return bars, nil
}
