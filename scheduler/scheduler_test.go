package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/dca/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceNext(t *testing.T) {
	t.Parallel()

	r := Recurrence{Weekday: time.Tuesday, At: market.TimeOfDay{Hour: 10}, Location: cal.Location}
	at := func(y int, m time.Month, d, h, min int) time.Time {
		return time.Date(y, m, d, h, min, 0, 0, cal.Location)
	}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{"monday", at(2024, 1, 1, 12, 0), at(2024, 1, 2, 10, 0)},
		{"tuesday before", at(2024, 1, 2, 9, 59), at(2024, 1, 2, 10, 0)},
		{"tuesday exactly", at(2024, 1, 2, 10, 0), at(2024, 1, 9, 10, 0)},
		{"tuesday after", at(2024, 1, 2, 10, 1), at(2024, 1, 9, 10, 0)},
		{"sunday", at(2024, 1, 7, 23, 0), at(2024, 1, 9, 10, 0)},
		// 00:30 UTC Tuesday is 09:30 Tuesday in Seoul.
		{"utc input", time.Date(2024, 1, 2, 0, 30, 0, 0, time.UTC), at(2024, 1, 2, 10, 0)},
		// 02:00 UTC Tuesday is 11:00 Tuesday in Seoul.
		{"utc input after", time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC), at(2024, 1, 9, 10, 0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := r.Next(tt.after)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	d, err := ParseWeekday("Tuesday")
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, d)

	d, err = ParseWeekday("mon")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestSchedulerRunsOnceThenStops(t *testing.T) {
	t.Parallel()

	b := pricedBroker(1_000_000)

	// The first read is the start-up time; every later read is just after
	// the Tuesday firing.
	monday := time.Date(2024, 1, 1, 12, 0, 0, 0, cal.Location)
	due := time.Date(2024, 1, 2, 10, 0, 5, 0, cal.Location)
	var reads atomic.Int32
	tr := &Trader{
		Broker:   b,
		Calendar: cal,
		Log:      quietLog(),
		Now: func() time.Time {
			if reads.Add(1) == 1 {
				return monday
			}
			return due
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cycles []CycleResult
	s := &Scheduler{
		Trader:       tr,
		Recurrence:   Recurrence{Weekday: time.Tuesday, At: market.TimeOfDay{Hour: 10}, Location: cal.Location},
		Instruments:  basket,
		Budget:       400_000,
		PollInterval: time.Millisecond,
		OnCycle: func(res CycleResult) {
			cycles = append(cycles, res)
			cancel()
		},
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	require.Len(t, cycles, 1)
	assert.Equal(t, StatusCompleted, cycles[0].Status)
	assert.Len(t, b.submits, 3)
}

func TestSchedulerStopsWithoutFiring(t *testing.T) {
	t.Parallel()

	b := pricedBroker(1_000_000)
	monday := time.Date(2024, 1, 1, 12, 0, 0, 0, cal.Location)
	s := &Scheduler{
		Trader:       newTrader(b, nil, monday),
		Recurrence:   Recurrence{Weekday: time.Tuesday, At: market.TimeOfDay{Hour: 10}, Location: cal.Location},
		Instruments:  basket,
		Budget:       400_000,
		PollInterval: time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Zero(t, b.balanceCalls)
}
