package backtest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/rustyeddy/dca/market"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// TradingDaysPerYear annualizes daily figures.
	TradingDaysPerYear = 252
	// DefaultRiskFreeRate is the annual rate the Sharpe ratio is measured against.
	DefaultRiskFreeRate = 0.03
)

// ErrEmptySeries is returned when there are no snapshots to analyze.
var ErrEmptySeries = errors.New("backtest: empty snapshot series")

// Summary holds the statistics derived from one simulation.
type Summary struct {
	Start, End     time.Time
	Days           int
	InitialBalance int64
	FinalBalance   int64
	TotalInvested  int64
	TotalProfit    int64
	TotalReturn    float64
	AnnualReturn   float64
	Volatility     float64
	SharpeRatio    float64
	MaxDrawdown    float64

	Trades     int
	Profitable int
	// WinRate is 1 when any trade was made. There is no sell path, so no
	// trade is ever closed at a loss.
	WinRate float64
}

// Analyzer computes a Summary. The zero value uses no risk-free rate; use
// NewAnalyzer for the defaults.
type Analyzer struct {
	RiskFreeRate float64
}

func NewAnalyzer() Analyzer {
	return Analyzer{RiskFreeRate: DefaultRiskFreeRate}
}

// Analyze summarizes res with the default analyzer.
func Analyze(res Result) (Summary, error) {
	return NewAnalyzer().Analyze(res)
}

func (a Analyzer) Analyze(res Result) (Summary, error) {
	snaps := res.Snapshots
	if len(snaps) == 0 {
		return Summary{}, ErrEmptySeries
	}

	s := Summary{
		Start:          snaps[0].Date,
		End:            snaps[len(snaps)-1].Date,
		Days:           len(snaps),
		InitialBalance: res.InitialBalance,
		FinalBalance:   snaps[len(snaps)-1].TotalValue,
		TotalInvested:  res.TotalInvested,
		Trades:         len(res.Trades),
	}
	s.TotalProfit = s.FinalBalance - s.InitialBalance
	if s.InitialBalance != 0 {
		s.TotalReturn = float64(s.FinalBalance)/float64(s.InitialBalance) - 1
	}

	years := float64(len(snaps)) / TradingDaysPerYear
	s.AnnualReturn = math.Pow(1+s.TotalReturn, 1/years) - 1

	returns := periodReturns(snaps)
	if len(returns) > 1 {
		sd, err := stats.StandardDeviationSample(returns)
		if err != nil {
			return Summary{}, fmt.Errorf("volatility: %w", err)
		}
		s.Volatility = sd * math.Sqrt(TradingDaysPerYear)
	}
	if s.Volatility > 0 {
		s.SharpeRatio = (s.AnnualReturn - a.RiskFreeRate) / s.Volatility
	}

	s.MaxDrawdown = maxDrawdown(returns)

	for _, t := range res.Trades {
		if t.Profit > 0 {
			s.Profitable++
		}
	}
	if s.Trades > 0 {
		s.WinRate = 1
	}
	return s, nil
}

// periodReturns is the simple change between consecutive values. Steps
// from a zero value are dropped.
func periodReturns(snaps []Snapshot) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(snaps))
	for i := 1; i < len(snaps); i++ {
		prev := snaps[i-1].TotalValue
		if prev == 0 {
			continue
		}
		out = append(out, float64(snaps[i].TotalValue)/float64(prev)-1)
	}
	return out
}

// maxDrawdown is the lowest growth/peak - 1 along the cumulative product of
// returns, so it is zero or negative. The running peak starts at the growth
// after the first period; the starting value is never a peak.
func maxDrawdown(returns stats.Float64Data) float64 {
	growth, peak, worst := 1.0, 0.0, 0.0
	for i, r := range returns {
		growth *= 1 + r
		if i == 0 || growth > peak {
			peak = growth
		}
		if peak <= 0 {
			continue
		}
		if dd := growth/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// Render writes the summary as a two column table.
func (s Summary) Render(w io.Writer) {
	p := message.NewPrinter(language.English)
	won := func(v int64) string { return p.Sprintf("%d KRW", v) }
	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	table.AppendBulk([][]string{
		{"Period", fmt.Sprintf("%s - %s (%d days)", market.FormatDate(s.Start), market.FormatDate(s.End), s.Days)},
		{"Initial balance", won(s.InitialBalance)},
		{"Final balance", won(s.FinalBalance)},
		{"Total invested", won(s.TotalInvested)},
		{"Total profit", won(s.TotalProfit)},
		{"Total return", pct(s.TotalReturn)},
		{"Annual return", pct(s.AnnualReturn)},
		{"Volatility", pct(s.Volatility)},
		{"Sharpe ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
		{"Max drawdown", pct(s.MaxDrawdown)},
		{"Trades", fmt.Sprintf("%d (%d profitable)", s.Trades, s.Profitable)},
		{"Win rate", pct(s.WinRate)},
	})
	table.Render()
}
