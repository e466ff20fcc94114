package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(cycle_id, time, instrument, budget, price, quantity, order_id, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.CycleID, o.Time.UTC(), o.Instrument, o.Budget, o.Price,
		o.Quantity, o.OrderID, o.Status, o.Error,
	)
	return err
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, instruments, start_date, end_date, initial_balance, weekly_budget,
		 final_balance, total_invested, total_profit, total_return, annual_return,
		 volatility, sharpe_ratio, max_drawdown, win_rate, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Instruments, r.Start.UTC(), r.End.UTC(),
		r.InitialBalance, r.WeeklyBudget, r.FinalBalance, r.TotalInvested, r.TotalProfit,
		r.TotalReturn, r.AnnualReturn, r.Volatility, r.SharpeRatio, r.MaxDrawdown,
		r.WinRate, r.Trades,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, date, instrument, quantity, price, amount, balance, profit, profit_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Date.UTC(), t.Instrument, t.Quantity, t.Price,
		t.Amount, t.Balance, t.Profit, t.ProfitRate,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, date, cash, total_value)
		VALUES (?, ?, ?, ?)`,
		e.RunID, e.Date.UTC(), e.Cash, e.TotalValue,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
