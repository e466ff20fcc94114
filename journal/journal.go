// journal/journal.go
package journal

import "time"

// Order outcomes recorded per instrument per live cycle.
const (
	StatusFilled  = "filled"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// OrderRecord is one instrument's outcome in a live purchase cycle. It is
// written as soon as that instrument finishes.
type OrderRecord struct {
	CycleID    string    `csv:"cycle_id"`
	Time       time.Time `csv:"time"`
	Instrument string    `csv:"instrument"`
	Budget     int64     `csv:"budget"`
	Price      int64     `csv:"price"`
	Quantity   int64     `csv:"quantity"`
	OrderID    string    `csv:"order_id"`
	Status     string    `csv:"status"`
	Error      string    `csv:"error"`
}

// RunRecord summarises one backtest run.
type RunRecord struct {
	RunID          string    `csv:"run_id"`
	Created        time.Time `csv:"created"`
	Instruments    string    `csv:"instruments"`
	Start          time.Time `csv:"start"`
	End            time.Time `csv:"end"`
	InitialBalance int64     `csv:"initial_balance"`
	WeeklyBudget   int64     `csv:"weekly_budget"`
	FinalBalance   int64     `csv:"final_balance"`
	TotalInvested  int64     `csv:"total_invested"`
	TotalProfit    int64     `csv:"total_profit"`
	TotalReturn    float64   `csv:"total_return"`
	AnnualReturn   float64   `csv:"annual_return"`
	Volatility     float64   `csv:"volatility"`
	SharpeRatio    float64   `csv:"sharpe_ratio"`
	MaxDrawdown    float64   `csv:"max_drawdown"`
	WinRate        float64   `csv:"win_rate"`
	Trades         int       `csv:"trades"`
}

// TradeRecord is a simulated purchase with its profit marked at the end of
// the run.
type TradeRecord struct {
	RunID      string    `csv:"run_id"`
	Date       time.Time `csv:"date"`
	Instrument string    `csv:"instrument"`
	Quantity   int64     `csv:"quantity"`
	Price      int64     `csv:"price"`
	Amount     int64     `csv:"amount"`
	Balance    int64     `csv:"balance"`
	Profit     int64     `csv:"profit"`
	ProfitRate float64   `csv:"profit_rate"`
}

// EquitySnapshot is the simulated portfolio value at the close of a day.
type EquitySnapshot struct {
	RunID      string    `csv:"run_id"`
	Date       time.Time `csv:"date"`
	Cash       int64     `csv:"cash"`
	TotalValue int64     `csv:"total_value"`
}

type Journal interface {
	RecordOrder(OrderRecord) error
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Open returns a journal of the given kind ("csv" or "sqlite") at path.
// For csv, path is a directory.
func Open(kind, path string) (Journal, error) {
	switch kind {
	case "csv":
		return NewCSV(path)
	case "sqlite":
		return NewSQLite(path)
	}
	return nil, &UnknownKindError{Kind: kind}
}

type UnknownKindError struct{ Kind string }

func (e *UnknownKindError) Error() string {
	return "journal: unknown type " + e.Kind + " (want csv or sqlite)"
}

// Tee writes every record to each journal in turn and reports the first
// error after trying them all.
func Tee(js ...Journal) Journal { return tee(js) }

type tee []Journal

func (t tee) each(fn func(Journal) error) error {
	var first error
	for _, j := range t {
		if err := fn(j); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) RecordOrder(o OrderRecord) error {
	return t.each(func(j Journal) error { return j.RecordOrder(o) })
}

func (t tee) RecordRun(r RunRecord) error {
	return t.each(func(j Journal) error { return j.RecordRun(r) })
}

func (t tee) RecordTrade(tr TradeRecord) error {
	return t.each(func(j Journal) error { return j.RecordTrade(tr) })
}

func (t tee) RecordEquity(e EquitySnapshot) error {
	return t.each(func(j Journal) error { return j.RecordEquity(e) })
}

func (t tee) Close() error {
	return t.each(func(j Journal) error { return j.Close() })
}
