package market

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// SeoulTZ is the exchange time zone for KRX listings.
const SeoulTZ = "Asia/Seoul"

// TimeOfDay is a wall-clock time in the exchange's location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on day's date in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Calendar decides whether the exchange is accepting orders. Weekends are
// closed and weekdays are open within [Open, Close] inclusive.
type Calendar struct {
	Location *time.Location
	Open     TimeOfDay
	Close    TimeOfDay
}

// KRXCalendar is the regular Korea Exchange session, 09:00-15:30 Seoul time.
func KRXCalendar() Calendar {
	loc, err := time.LoadLocation(SeoulTZ)
	if err != nil {
		// tzdata is embedded, so this is unreachable.
		panic(err)
	}
	return Calendar{
		Location: loc,
		Open:     TimeOfDay{Hour: 9},
		Close:    TimeOfDay{Hour: 15, Minute: 30},
	}
}

// NewCalendar builds a calendar from a zone name and "HH:MM" bounds.
func NewCalendar(tz, open, close string) (Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Calendar{}, fmt.Errorf("load location %q: %w", tz, err)
	}
	o, err := ParseTimeOfDay(open)
	if err != nil {
		return Calendar{}, fmt.Errorf("market open: %w", err)
	}
	c, err := ParseTimeOfDay(close)
	if err != nil {
		return Calendar{}, fmt.Errorf("market close: %w", err)
	}
	if c.On(Day(2000, 1, 3), time.UTC).Before(o.On(Day(2000, 1, 3), time.UTC)) {
		return Calendar{}, fmt.Errorf("market close %s is before open %s", c, o)
	}
	return Calendar{Location: loc, Open: o, Close: c}, nil
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// In converts now to the exchange location.
func (c Calendar) In(now time.Time) time.Time {
	return now.In(c.location())
}

// ParseLocal interprets a zone-less timestamp as exchange-local time.
func (c Calendar) ParseLocal(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, c.location())
}

// IsOpen reports whether now falls inside the trading window.
func (c Calendar) IsOpen(now time.Time) bool {
	local := c.In(now)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	start := c.Open.On(local, local.Location())
	end := c.Close.On(local, local.Location())
	return !local.Before(start) && !local.After(end)
}
