package backtest

import (
	"testing"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	kodexSP  = market.NewInstrument("379800")
	kodexNDQ = market.NewInstrument("379810")
)

// series builds one close per date.
func series(closes map[time.Time]int64) []market.DailyPrice {
	out := make([]market.DailyPrice, 0, len(closes))
	for d, c := range closes {
		out = append(out, market.DailyPrice{Date: d, Open: c, High: c, Low: c, Close: c})
	}
	market.SortPrices(out)
	return out
}

// weekdays returns every Monday..Friday in [start, start+days).
func weekdays(start time.Time, days int) []time.Time {
	var out []time.Time
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func flat(dates []time.Time, price int64) []market.DailyPrice {
	closes := map[time.Time]int64{}
	for _, d := range dates {
		closes[d] = price
	}
	return series(closes)
}

func TestSimulateFlatFourWeeks(t *testing.T) {
	t.Parallel()

	// 2024-01-01 is a Monday.
	dates := weekdays(market.Day(2024, 1, 1), 26)
	in := Inputs{
		Instruments: []market.Instrument{kodexSP, kodexNDQ},
		Prices: map[string][]market.DailyPrice{
			kodexSP.Code:  flat(dates, 10_000),
			kodexNDQ.Code: flat(dates, 10_000),
		},
		InitialBalance: 1_000_000,
		WeeklyBudget:   25_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)

	require.Len(t, res.Trades, 8)
	for _, tr := range res.Trades {
		assert.Equal(t, time.Monday, tr.Date.Weekday())
		assert.Equal(t, int64(1), tr.Quantity)
		assert.Equal(t, int64(10_000), tr.Amount)
		assert.Zero(t, tr.Profit)
	}
	assert.Equal(t, int64(80_000), res.TotalInvested)
	assert.Equal(t, int64(1_000_000), res.FinalBalance)
	assert.Zero(t, res.TotalProfit)
	assert.Zero(t, res.TotalReturn)

	require.Len(t, res.Snapshots, len(dates))
	last := res.Snapshots[len(res.Snapshots)-1]
	assert.Equal(t, int64(920_000), last.Cash)
	assert.Equal(t, map[string]int64{"379800": 4, "379810": 4}, last.Holdings)

	// Running balance on each trade reflects the purchases before it.
	assert.Equal(t, int64(990_000), res.Trades[0].Balance)
	assert.Equal(t, int64(980_000), res.Trades[1].Balance)
	assert.Equal(t, int64(920_000), res.Trades[7].Balance)
}

func TestSimulateBudgetUnavailable(t *testing.T) {
	t.Parallel()

	dates := weekdays(market.Day(2024, 1, 1), 14)
	in := Inputs{
		Instruments:    []market.Instrument{kodexSP, kodexNDQ},
		Prices:         map[string][]market.DailyPrice{kodexSP.Code: flat(dates, 10_000), kodexNDQ.Code: flat(dates, 10_000)},
		InitialBalance: 100,
		WeeklyBudget:   1_000_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, int64(100), res.FinalBalance)
	assert.Zero(t, res.TotalInvested)
	// Two Mondays, two instruments each.
	require.Len(t, res.Skipped, 4)
	for _, s := range res.Skipped {
		assert.NotEmpty(t, s.Instrument)
		assert.Equal(t, time.Monday, s.Date.Weekday())
		assert.ErrorIs(t, s.Err, ErrBudgetUnavailable)
	}
}

func TestSimulatePartlyFundedBuyDay(t *testing.T) {
	t.Parallel()

	dates := weekdays(market.Day(2024, 1, 1), 10)
	in := Inputs{
		Instruments:    []market.Instrument{kodexSP, kodexNDQ},
		Prices:         map[string][]market.DailyPrice{kodexSP.Code: flat(dates, 10_000), kodexNDQ.Code: flat(dates, 10_000)},
		InitialBalance: 35_000,
		WeeklyBudget:   25_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)

	// 12,500 each: both bought on the first Monday, only the first on the
	// second Monday once cash is down to 15,000.
	require.Len(t, res.Trades, 3)
	assert.Equal(t, kodexSP, res.Trades[2].Instrument)
	assert.Equal(t, int64(5_000), res.Trades[2].Balance)
	assert.Equal(t, int64(30_000), res.TotalInvested)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, kodexNDQ.Code, res.Skipped[0].Instrument)
	assert.Equal(t, market.Day(2024, 1, 8), res.Skipped[0].Date)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrBudgetUnavailable)

	last := res.Snapshots[len(res.Snapshots)-1]
	assert.Equal(t, int64(5_000), last.Cash)
	assert.Equal(t, int64(35_000), res.FinalBalance)
}

func TestSimulateIsDeterministic(t *testing.T) {
	t.Parallel()

	closesA := map[time.Time]int64{}
	closesB := map[time.Time]int64{}
	for i, d := range weekdays(market.Day(2023, 6, 5), 120) {
		closesA[d] = 10_000 + int64(i%17)*130
		closesB[d] = 14_000 - int64(i%11)*90
	}
	in := Inputs{
		Instruments:    []market.Instrument{kodexSP, kodexNDQ},
		Prices:         map[string][]market.DailyPrice{kodexSP.Code: series(closesA), kodexNDQ.Code: series(closesB)},
		InitialBalance: 10_000_000,
		WeeklyBudget:   250_000,
	}

	first, err := Simulate(in)
	require.NoError(t, err)
	second, err := Simulate(in)
	require.NoError(t, err)

	assert.Equal(t, first.Trades, second.Trades)
	assert.Equal(t, first.Snapshots, second.Snapshots)
	assert.Equal(t, first.FinalBalance, second.FinalBalance)
}

func TestSimulateMissingPrice(t *testing.T) {
	t.Parallel()

	mon1, tue1 := market.Day(2024, 1, 1), market.Day(2024, 1, 2)
	mon2 := market.Day(2024, 1, 8)
	in := Inputs{
		Instruments: []market.Instrument{kodexSP, kodexNDQ},
		Prices: map[string][]market.DailyPrice{
			kodexSP.Code:  series(map[time.Time]int64{mon1: 10_000, tue1: 11_000, mon2: 12_000}),
			kodexNDQ.Code: series(map[time.Time]int64{mon1: 20_000, mon2: 20_000}),
		},
		InitialBalance: 1_000_000,
		WeeklyBudget:   100_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)
	require.Len(t, res.Snapshots, 3)

	// Tuesday has no close for 379810; it keeps its Monday mark.
	tue := res.Snapshots[1]
	assert.Equal(t, tue1, tue.Date)
	// cash 1,000,000 - 50,000 - 40,000; 5 x 11,000 + 2 x 20,000
	assert.Equal(t, int64(910_000+55_000+40_000), tue.TotalValue)

	// Both instruments traded on both Mondays.
	assert.Len(t, res.Trades, 4)
	assert.Empty(t, res.Skipped)
}

func TestSimulateMissingPriceOnBuyDay(t *testing.T) {
	t.Parallel()

	mon1, mon2 := market.Day(2024, 1, 1), market.Day(2024, 1, 8)
	in := Inputs{
		Instruments: []market.Instrument{kodexSP, kodexNDQ},
		Prices: map[string][]market.DailyPrice{
			kodexSP.Code:  series(map[time.Time]int64{mon1: 10_000, mon2: 10_000}),
			kodexNDQ.Code: series(map[time.Time]int64{mon2: 20_000}),
		},
		InitialBalance: 1_000_000,
		WeeklyBudget:   100_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)
	assert.Len(t, res.Trades, 3)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "379810", res.Skipped[0].Instrument)
	assert.ErrorIs(t, res.Skipped[0].Err, broker.ErrDataUnavailable)
	assert.Len(t, res.Snapshots, 2)
}

func TestSimulateZeroQuantityIsSkipped(t *testing.T) {
	t.Parallel()

	mon := market.Day(2024, 1, 1)
	in := Inputs{
		Instruments: []market.Instrument{kodexSP, kodexNDQ},
		Prices: map[string][]market.DailyPrice{
			kodexSP.Code:  series(map[time.Time]int64{mon: 10_000}),
			kodexNDQ.Code: series(map[time.Time]int64{mon: 90_000}),
		},
		InitialBalance: 1_000_000,
		WeeklyBudget:   100_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, kodexSP, res.Trades[0].Instrument)
	assert.Equal(t, int64(5), res.Trades[0].Quantity)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0].Err, risk.ErrInsufficientBudget)
}

func TestSimulateProfitUsesLatestMark(t *testing.T) {
	t.Parallel()

	mon1, mon2, fri := market.Day(2024, 1, 1), market.Day(2024, 1, 8), market.Day(2024, 1, 12)
	in := Inputs{
		Instruments:    []market.Instrument{kodexSP},
		Prices:         map[string][]market.DailyPrice{kodexSP.Code: series(map[time.Time]int64{mon1: 10_000, mon2: 12_500, fri: 15_000})},
		InitialBalance: 1_000_000,
		WeeklyBudget:   50_000,
	}

	res, err := Simulate(in)
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)

	// 5 @ 10,000 and 4 @ 12,500, both marked at 15,000.
	assert.Equal(t, int64(25_000), res.Trades[0].Profit)
	assert.InDelta(t, 0.5, res.Trades[0].ProfitRate, 1e-9)
	assert.Equal(t, int64(10_000), res.Trades[1].Profit)
	assert.InDelta(t, 0.2, res.Trades[1].ProfitRate, 1e-9)

	assert.Equal(t, int64(15_000), res.Marks[kodexSP.Code])
	assert.Equal(t, int64(35_000), res.TotalProfit)

	// MarkedAt returns a copy; the receiver is unchanged.
	again := res.Trades[0].MarkedAt(9_000)
	assert.Equal(t, int64(-5_000), again.Profit)
	assert.Equal(t, int64(25_000), res.Trades[0].Profit)
}

func TestSimulateBuyOn(t *testing.T) {
	t.Parallel()

	dates := weekdays(market.Day(2024, 1, 1), 14)
	in := Inputs{
		Instruments:    []market.Instrument{kodexSP},
		Prices:         map[string][]market.DailyPrice{kodexSP.Code: flat(dates, 10_000)},
		InitialBalance: 1_000_000,
		WeeklyBudget:   10_000,
		BuyOn:          OnWeekday(time.Thursday),
	}

	res, err := Simulate(in)
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	for _, tr := range res.Trades {
		assert.Equal(t, time.Thursday, tr.Date.Weekday())
	}
}

func TestSimulateInvalidInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Inputs
	}{
		{"no instruments", Inputs{InitialBalance: 1, WeeklyBudget: 1}},
		{"zero balance", Inputs{Instruments: []market.Instrument{kodexSP}, WeeklyBudget: 1}},
		{"zero budget", Inputs{Instruments: []market.Instrument{kodexSP}, InitialBalance: 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Simulate(tt.in)
			assert.ErrorIs(t, err, ErrInvalidInputs)
		})
	}
}

func TestSimulateNoPrices(t *testing.T) {
	t.Parallel()

	res, err := Simulate(Inputs{
		Instruments:    []market.Instrument{kodexSP},
		InitialBalance: 1_000,
		WeeklyBudget:   100,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Snapshots)
	assert.Equal(t, int64(1_000), res.FinalBalance)

	_, err = Analyze(res)
	assert.ErrorIs(t, err, ErrEmptySeries)
}
