package market

import (
	"sort"
	"time"
)

// DateLayout is the broker's YYYYMMDD trading date format.
const DateLayout = "20060102"

// DailyPrice is one instrument's observation for a single trading day.
// Amounts are in won.
type DailyPrice struct {
	Date   time.Time
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
	Amount int64
}

// Day returns the calendar date as midnight UTC so that dates from
// different sources compare equal.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to its calendar date in t's own location.
func DayOf(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYYMMDD trading date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a trading date as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SortPrices orders observations by date ascending.
func SortPrices(prices []DailyPrice) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})
}

// FilterPrices keeps observations whose date lies within [start, end].
func FilterPrices(prices []DailyPrice, start, end time.Time) []DailyPrice {
	start, end = DayOf(start), DayOf(end)
	out := make([]DailyPrice, 0, len(prices))
	for _, p := range prices {
		d := DayOf(p.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}
