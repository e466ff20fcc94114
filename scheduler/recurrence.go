package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/dca/market"
)

// Recurrence fires once a week at a wall-clock time in Location.
type Recurrence struct {
	Weekday  time.Weekday
	At       market.TimeOfDay
	Location *time.Location
}

// Next returns the first firing strictly after after.
func (r Recurrence) Next(after time.Time) time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)
	days := (int(r.Weekday) - int(local.Weekday()) + 7) % 7
	next := r.At.On(local.AddDate(0, 0, days), loc)
	if !next.After(local) {
		next = r.At.On(local.AddDate(0, 0, days+7), loc)
	}
	return next
}

func (r Recurrence) String() string {
	loc := "UTC"
	if r.Location != nil {
		loc = r.Location.String()
	}
	return fmt.Sprintf("every %s at %s %s", r.Weekday, r.At, loc)
}

// ParseWeekday accepts English day names and their three letter forms.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
