package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/risk"
)

// ErrBudgetUnavailable marks an order skipped because cash did not cover the
// instrument's share of the weekly budget.
var ErrBudgetUnavailable = risk.ErrBudgetUnavailable

// ErrInvalidInputs is returned by Simulate for inputs it cannot run.
var ErrInvalidInputs = errors.New("backtest: invalid inputs")

// Inputs describe one simulation. Prices are keyed by instrument code.
type Inputs struct {
	Instruments    []market.Instrument
	Prices         map[string][]market.DailyPrice
	InitialBalance int64
	WeeklyBudget   int64

	// BuyOn decides which dates place orders. Nil means every Monday.
	BuyOn func(date time.Time) bool
}

// OnWeekday buys on every date falling on d.
func OnWeekday(d time.Weekday) func(time.Time) bool {
	return func(t time.Time) bool { return t.Weekday() == d }
}

func (in Inputs) validate() error {
	switch {
	case len(in.Instruments) == 0:
		return fmt.Errorf("%w: no instruments", ErrInvalidInputs)
	case in.InitialBalance <= 0:
		return fmt.Errorf("%w: initial balance must be positive, got %d", ErrInvalidInputs, in.InitialBalance)
	case in.WeeklyBudget <= 0:
		return fmt.Errorf("%w: weekly budget must be positive, got %d", ErrInvalidInputs, in.WeeklyBudget)
	}
	return nil
}

// TradeRecord is one simulated purchase. Profit and ProfitRate are filled in
// from the final mark when the simulation ends; use MarkedAt to revalue a
// record at any other price.
type TradeRecord struct {
	Date       time.Time
	Instrument market.Instrument
	Quantity   int64
	Price      int64
	Amount     int64
	Balance    int64 // cash after the purchase
	Profit     int64
	ProfitRate float64
}

// MarkedAt returns a copy of t valued at price.
func (t TradeRecord) MarkedAt(price int64) TradeRecord {
	t.Profit = t.Quantity*price - t.Amount
	t.ProfitRate = 0
	if t.Amount != 0 {
		t.ProfitRate = float64(t.Profit) / float64(t.Amount)
	}
	return t
}

// Snapshot is the portfolio at the close of one date.
type Snapshot struct {
	Date       time.Time
	Cash       int64
	TotalValue int64
	Holdings   map[string]int64
}

// Skip records an order the simulation did not place.
type Skip struct {
	Date       time.Time
	Instrument string
	Err        error
}

// Result is the output of Simulate.
type Result struct {
	Start, End     time.Time
	InitialBalance int64
	FinalBalance   int64
	TotalInvested  int64
	TotalProfit    int64
	TotalReturn    float64

	Trades    []TradeRecord
	Snapshots []Snapshot
	Skipped   []Skip

	// Marks holds the last close seen for every instrument that had one.
	Marks map[string]int64
}

// Simulate replays the weekly purchase over the price history. It is a pure
// function of in: dates are walked in ascending order and every date that
// appears in any instrument's series produces exactly one snapshot.
func Simulate(in Inputs) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	buyOn := in.BuyOn
	if buyOn == nil {
		buyOn = OnWeekday(time.Monday)
	}

	closes := indexCloses(in)
	dates := tradingDates(closes)

	res := Result{
		InitialBalance: in.InitialBalance,
		FinalBalance:   in.InitialBalance,
		Marks:          map[string]int64{},
	}
	if len(dates) > 0 {
		res.Start, res.End = dates[0], dates[len(dates)-1]
	}

	cash := in.InitialBalance
	holdings := map[string]int64{}
	each := risk.SplitBudget(in.WeeklyBudget, len(in.Instruments))

	for _, day := range dates {
		if buyOn(day) {
			for _, inst := range in.Instruments {
				price, ok := closes[inst.Code][day]
				if !ok {
					res.Skipped = append(res.Skipped, Skip{Date: day, Instrument: inst.Code,
						Err: fmt.Errorf("%w: no close for %s on %s", broker.ErrDataUnavailable, inst, market.FormatDate(day))})
					continue
				}
				if err := risk.CheckBudget(cash, each); err != nil {
					res.Skipped = append(res.Skipped, Skip{Date: day, Instrument: inst.Code, Err: err})
					continue
				}
				qty, err := risk.SizeOrder(each, price)
				if err != nil {
					res.Skipped = append(res.Skipped, Skip{Date: day, Instrument: inst.Code, Err: err})
					continue
				}
				amount := qty * price
				cash -= amount
				holdings[inst.Code] += qty
				res.TotalInvested += amount
				res.Trades = append(res.Trades, TradeRecord{
					Date:       day,
					Instrument: inst,
					Quantity:   qty,
					Price:      price,
					Amount:     amount,
					Balance:    cash,
				})
			}
		}

		for code, byDay := range closes {
			if p, ok := byDay[day]; ok {
				res.Marks[code] = p
			}
		}
		res.Snapshots = append(res.Snapshots, snapshot(day, cash, holdings, res.Marks))
	}

	for i, t := range res.Trades {
		res.Trades[i] = t.MarkedAt(res.Marks[t.Instrument.Code])
	}

	if n := len(res.Snapshots); n > 0 {
		res.FinalBalance = res.Snapshots[n-1].TotalValue
	}
	res.TotalProfit = res.FinalBalance - res.InitialBalance
	res.TotalReturn = float64(res.FinalBalance)/float64(res.InitialBalance) - 1
	return res, nil
}

func snapshot(day time.Time, cash int64, holdings, marks map[string]int64) Snapshot {
	s := Snapshot{Date: day, Cash: cash, TotalValue: cash, Holdings: make(map[string]int64, len(holdings))}
	for code, qty := range holdings {
		s.Holdings[code] = qty
		s.TotalValue += qty * marks[code]
	}
	return s
}

// indexCloses maps code -> day -> close for the simulated instruments.
func indexCloses(in Inputs) map[string]map[time.Time]int64 {
	out := make(map[string]map[time.Time]int64, len(in.Instruments))
	for _, inst := range in.Instruments {
		if _, done := out[inst.Code]; done {
			continue
		}
		byDay := map[time.Time]int64{}
		for _, p := range in.Prices[inst.Code] {
			byDay[market.DayOf(p.Date)] = p.Close
		}
		out[inst.Code] = byDay
	}
	return out
}

func tradingDates(closes map[string]map[time.Time]int64) []time.Time {
	seen := map[time.Time]struct{}{}
	for _, byDay := range closes {
		for d := range byDay {
			seen[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
