package pricestore

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/dca/market"
	"github.com/shopspring/decimal"
)

const createDailyPrices = `
CREATE TABLE IF NOT EXISTS daily_prices (
	code       TEXT    NOT NULL,
	trade_date DATE    NOT NULL,
	open       NUMERIC NOT NULL,
	high       NUMERIC NOT NULL,
	low        NUMERIC NOT NULL,
	close      NUMERIC NOT NULL,
	volume     NUMERIC NOT NULL,
	amount     NUMERIC NOT NULL,
	PRIMARY KEY (code, trade_date)
)`

const selectDailyPrices = `
SELECT trade_date, open, high, low, close, volume, amount
FROM daily_prices
WHERE code = $1 AND trade_date BETWEEN $2 AND $3
ORDER BY trade_date`

const upsertDailyPrice = `
INSERT INTO daily_prices (code, trade_date, open, high, low, close, volume, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (code, trade_date) DO UPDATE SET
	open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
	close = EXCLUDED.close, volume = EXCLUDED.volume, amount = EXCLUDED.amount`

// dailyRow mirrors a daily_prices row.
type dailyRow struct {
	Code   string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Amount decimal.Decimal
}

type priceQueries interface {
	CreateSchema(ctx context.Context) error
	SelectDailyPrices(ctx context.Context, code string, start, end time.Time) ([]dailyRow, error)
	UpsertDailyPrices(ctx context.Context, rows []dailyRow) error
}

// Postgres keeps prices in the daily_prices table.
type Postgres struct {
	queries priceQueries
	pool    *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to dsn and verifies connectivity.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{queries: pgQueries{pool: pool}, pool: pool}, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates daily_prices if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return p.queries.CreateSchema(ctx)
}

// GetDailyPrices returns the stored rows in [start, end]. An instrument
// with no rows yields an empty slice and no error.
func (p *Postgres) GetDailyPrices(ctx context.Context, inst market.Instrument, start, end time.Time) ([]market.DailyPrice, error) {
	rows, err := p.queries.SelectDailyPrices(ctx, inst.Code, market.DayOf(start), market.DayOf(end))
	if err != nil {
		return nil, fmt.Errorf("select prices %s: %w", inst, err)
	}
	prices := make([]market.DailyPrice, 0, len(rows))
	for _, r := range rows {
		prices = append(prices, market.DailyPrice{
			Date:   market.DayOf(r.Date),
			Open:   r.Open.IntPart(),
			High:   r.High.IntPart(),
			Low:    r.Low.IntPart(),
			Close:  r.Close.IntPart(),
			Volume: r.Volume.IntPart(),
			Amount: r.Amount.IntPart(),
		})
	}
	return prices, nil
}

// SavePrices upserts prices for inst.
func (p *Postgres) SavePrices(ctx context.Context, inst market.Instrument, prices []market.DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}
	rows := make([]dailyRow, 0, len(prices))
	for _, dp := range prices {
		rows = append(rows, dailyRow{
			Code:   inst.Code,
			Date:   market.DayOf(dp.Date),
			Open:   decimal.NewFromInt(dp.Open),
			High:   decimal.NewFromInt(dp.High),
			Low:    decimal.NewFromInt(dp.Low),
			Close:  decimal.NewFromInt(dp.Close),
			Volume: decimal.NewFromInt(dp.Volume),
			Amount: decimal.NewFromInt(dp.Amount),
		})
	}
	if err := p.queries.UpsertDailyPrices(ctx, rows); err != nil {
		return fmt.Errorf("save prices %s: %w", inst, err)
	}
	return nil
}

// pgQueries runs the statements above on a pool.
type pgQueries struct {
	pool *pgxpool.Pool
}

func (q pgQueries) CreateSchema(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, createDailyPrices)
	return err
}

func (q pgQueries) SelectDailyPrices(ctx context.Context, code string, start, end time.Time) ([]dailyRow, error) {
	rows, err := q.pool.Query(ctx, selectDailyPrices, code, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dailyRow
	for rows.Next() {
		r := dailyRow{Code: code}
		if err := rows.Scan(&r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.Amount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q pgQueries) UpsertDailyPrices(ctx context.Context, rows []dailyRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertDailyPrice, r.Code, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume, r.Amount)
	}
	return q.pool.SendBatch(ctx, batch).Close()
}
