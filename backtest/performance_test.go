package backtest

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/dca/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valuesResult(initial int64, values ...int64) Result {
	res := Result{InitialBalance: initial}
	d := market.Day(2024, 1, 1)
	for _, v := range values {
		res.Snapshots = append(res.Snapshots, Snapshot{Date: d, TotalValue: v, Cash: v})
		d = d.AddDate(0, 0, 1)
	}
	return res
}

func TestAnalyzeEmptySeries(t *testing.T) {
	t.Parallel()

	_, err := Analyze(Result{InitialBalance: 1_000})
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestAnalyzeFlat(t *testing.T) {
	t.Parallel()

	s, err := Analyze(valuesResult(1_000, 1_000, 1_000, 1_000))
	require.NoError(t, err)

	assert.Zero(t, s.TotalReturn)
	assert.Zero(t, s.AnnualReturn)
	assert.Zero(t, s.Volatility)
	assert.Zero(t, s.SharpeRatio, "zero volatility gives zero Sharpe")
	assert.Zero(t, s.MaxDrawdown)
	assert.Zero(t, s.WinRate)
	assert.Equal(t, 3, s.Days)
}

func TestAnalyzeSingleSnapshot(t *testing.T) {
	t.Parallel()

	s, err := Analyze(valuesResult(1_000, 1_100))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, s.TotalReturn, 1e-12)
	assert.Zero(t, s.Volatility)
	assert.Zero(t, s.SharpeRatio)
	// One observation is 1/252 of a year.
	assert.InDelta(t, math.Pow(1.1, 252)-1, s.AnnualReturn, 1e-6*math.Pow(1.1, 252))
}

func TestAnalyzeMetrics(t *testing.T) {
	t.Parallel()

	res := valuesResult(100, 100, 110, 99, 120)
	res.Trades = []TradeRecord{{Profit: 10}, {Profit: -3}}
	s, err := Analyze(res)
	require.NoError(t, err)

	assert.Equal(t, int64(120), s.FinalBalance)
	assert.Equal(t, int64(20), s.TotalProfit)
	assert.InDelta(t, 0.2, s.TotalReturn, 1e-12)

	years := 4.0 / 252
	wantAnnual := math.Pow(1.2, 1/years) - 1
	assert.InDelta(t, wantAnnual, s.AnnualReturn, 1e-6*wantAnnual)

	// Returns: +10%, -10%, +21.2121..%
	r := []float64{0.1, -0.1, 120.0/99 - 1}
	mean := (r[0] + r[1] + r[2]) / 3
	var ss float64
	for _, x := range r {
		ss += (x - mean) * (x - mean)
	}
	wantVol := math.Sqrt(ss/2) * math.Sqrt(252)
	assert.InDelta(t, wantVol, s.Volatility, 1e-9)
	assert.InDelta(t, (wantAnnual-DefaultRiskFreeRate)/wantVol, s.SharpeRatio, 1e-6*math.Abs(s.SharpeRatio))

	// Peak 110, trough 99.
	assert.InDelta(t, -0.1, s.MaxDrawdown, 1e-12)

	assert.Equal(t, 2, s.Trades)
	assert.Equal(t, 1, s.Profitable)
	assert.Equal(t, 1.0, s.WinRate)
}

func TestAnalyzerRiskFreeRate(t *testing.T) {
	t.Parallel()

	res := valuesResult(100, 100, 110, 99, 120)
	base, err := Analyzer{}.Analyze(res)
	require.NoError(t, err)
	def, err := NewAnalyzer().Analyze(res)
	require.NoError(t, err)

	assert.Equal(t, base.Volatility, def.Volatility)
	assert.InDelta(t, DefaultRiskFreeRate/def.Volatility, base.SharpeRatio-def.SharpeRatio, 1e-9)
}

func TestAnalyzeDrawdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []int64
		want   float64
	}{
		{"peak on first step", []int64{200, 200, 150, 100, 180}, -0.5},
		{"first value is not a peak", []int64{100, 90, 95}, 0},
		{"fall after first period", []int64{100, 90, 95, 76}, -0.2},
		{"single snapshot", []int64{100}, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Analyze(valuesResult(100, tt.values...))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, s.MaxDrawdown, 1e-12)
		})
	}
}

func TestSummaryRender(t *testing.T) {
	t.Parallel()

	dates := weekdays(market.Day(2024, 1, 1), 26)
	res, err := Simulate(Inputs{
		Instruments: []market.Instrument{kodexSP, kodexNDQ},
		Prices: map[string][]market.DailyPrice{
			kodexSP.Code:  flat(dates, 10_000),
			kodexNDQ.Code: flat(dates, 10_000),
		},
		InitialBalance: 1_000_000,
		WeeklyBudget:   25_000,
	})
	require.NoError(t, err)
	s, err := Analyze(res)
	require.NoError(t, err)

	var buf bytes.Buffer
	s.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "1,000,000 KRW")
	assert.Contains(t, out, "80,000 KRW")
	assert.Contains(t, out, "20240101 - 20240126 (20 days)")
	assert.Contains(t, out, "8 (0 profitable)")
	assert.Contains(t, out, "100.00%")

	// Same input renders the same bytes.
	var again bytes.Buffer
	s.Render(&again)
	assert.Equal(t, out, again.String())
	assert.Equal(t, time.Monday, s.Start.Weekday())
}
