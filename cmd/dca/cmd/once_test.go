package cmd

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/scheduler"
	"github.com/rustyeddy/dca/sim"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCycleOnceReportsOutcome(t *testing.T) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	cal := market.KRXCalendar()
	sunday := time.Date(2024, 1, 14, 10, 0, 0, 0, cal.Location)
	basket := []market.Instrument{market.NewInstrument("379800"), market.NewInstrument("379810")}

	tests := []struct {
		name  string
		force bool
		want  scheduler.Status
	}{
		{"cash below budget", true, scheduler.StatusBudgetUnavailable},
		{"market closed", false, scheduler.StatusClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := sim.NewEngine(1_000, nil)
			trader := &scheduler.Trader{
				Broker:   eng,
				Calendar: cal,
				Log:      quiet,
				Now:      func() time.Time { return sunday },
				Force:    tt.force,
			}

			c := runCycleOnce(context.Background(), trader, basket, 1_000_000)
			assert.Equal(t, tt.want, c.Status)
			assert.Empty(t, eng.Fills())

			bal, err := eng.GetAvailableBalance(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(1_000), bal)
		})
	}
}
