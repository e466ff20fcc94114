// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	cycle_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	budget INTEGER NOT NULL,
	price INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	order_id TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_time ON orders(time);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	instruments TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	initial_balance INTEGER NOT NULL,
	weekly_budget INTEGER NOT NULL,
	final_balance INTEGER NOT NULL,
	total_invested INTEGER NOT NULL,
	total_profit INTEGER NOT NULL,
	total_return REAL NOT NULL,
	annual_return REAL NOT NULL,
	volatility REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	win_rate REAL NOT NULL,
	trades INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price INTEGER NOT NULL,
	amount INTEGER NOT NULL,
	balance INTEGER NOT NULL,
	profit INTEGER NOT NULL,
	profit_rate REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, date);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	cash INTEGER NOT NULL,
	total_value INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, date);
`
