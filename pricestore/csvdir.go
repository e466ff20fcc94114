package pricestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
)

// priceRow is one line of a price file:
//
//	date,open,high,low,close,volume,amount
//	20240102,15020,15100,14980,15065,120345,1812345678
type priceRow struct {
	Date   string `csv:"date"`
	Open   int64  `csv:"open"`
	High   int64  `csv:"high"`
	Low    int64  `csv:"low"`
	Close  int64  `csv:"close"`
	Volume int64  `csv:"volume"`
	Amount int64  `csv:"amount"`
}

// CSVDir stores one <code>.csv file per instrument in Dir.
type CSVDir struct {
	Dir string
}

var _ Store = CSVDir{}

func (c CSVDir) path(inst market.Instrument) string {
	return filepath.Join(c.Dir, inst.Code+".csv")
}

// GetDailyPrices reads the instrument's file and keeps rows in [start, end].
func (c CSVDir) GetDailyPrices(ctx context.Context, inst market.Instrument, start, end time.Time) ([]market.DailyPrice, error) {
	all, err := c.load(inst)
	if err != nil {
		return nil, err
	}
	return market.FilterPrices(all, start, end), nil
}

func (c CSVDir) load(inst market.Instrument) ([]market.DailyPrice, error) {
	f, err := os.Open(c.path(inst))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no price file for %s", broker.ErrDataUnavailable, inst)
		}
		return nil, err
	}
	defer f.Close()

	var rows []priceRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", broker.ErrDataUnavailable, f.Name(), err)
	}

	prices := make([]market.DailyPrice, 0, len(rows))
	for i, r := range rows {
		d, err := market.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", broker.ErrDataUnavailable, f.Name(), i+2, err)
		}
		prices = append(prices, market.DailyPrice{
			Date: d, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume: r.Volume, Amount: r.Amount,
		})
	}
	market.SortPrices(prices)
	return prices, nil
}

// SavePrices merges prices into the instrument's file. A date already in
// the file is replaced.
func (c CSVDir) SavePrices(ctx context.Context, inst market.Instrument, prices []market.DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}

	existing, err := c.load(inst)
	if err != nil && !errors.Is(err, broker.ErrDataUnavailable) {
		return err
	}
	byDate := make(map[time.Time]market.DailyPrice, len(existing)+len(prices))
	for _, p := range existing {
		byDate[market.DayOf(p.Date)] = p
	}
	for _, p := range prices {
		byDate[market.DayOf(p.Date)] = p
	}

	merged := make([]market.DailyPrice, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	market.SortPrices(merged)

	rows := make([]priceRow, 0, len(merged))
	for _, p := range merged {
		rows = append(rows, priceRow{
			Date: market.FormatDate(p.Date), Open: p.Open, High: p.High, Low: p.Low,
			Close: p.Close, Volume: p.Volume, Amount: p.Amount,
		})
	}

	tmp := c.path(inst) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(inst))
}
