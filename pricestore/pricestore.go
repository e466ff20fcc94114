// Package pricestore keeps daily price history for backtests so that a run
// does not have to download it from the broker every time.
package pricestore

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
	"github.com/sirupsen/logrus"
)

// Store is a readable and writable price history.
type Store interface {
	broker.HistoricalPrices
	SavePrices(ctx context.Context, inst market.Instrument, prices []market.DailyPrice) error
}

// ReadThrough serves from Store and falls back to Source when the store has
// nothing for the requested range. Rows fetched from Source are saved.
type ReadThrough struct {
	Store  Store
	Source broker.HistoricalPrices
	Log    logrus.FieldLogger
}

var _ broker.HistoricalPrices = (*ReadThrough)(nil)

func (r *ReadThrough) GetDailyPrices(ctx context.Context, inst market.Instrument, start, end time.Time) ([]market.DailyPrice, error) {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("instrument", inst.String())

	prices, err := r.Store.GetDailyPrices(ctx, inst, start, end)
	if err != nil {
		log.WithError(err).Warn("price store read failed, using source")
	} else if len(prices) > 0 {
		log.WithField("rows", len(prices)).Debug("prices served from store")
		return prices, nil
	}

	if r.Source == nil {
		return nil, fmt.Errorf("%w: %s not in store", broker.ErrDataUnavailable, inst)
	}
	prices, err = r.Source.GetDailyPrices(ctx, inst, start, end)
	if err != nil {
		return nil, err
	}
	if err := r.Store.SavePrices(ctx, inst, prices); err != nil {
		log.WithError(err).Warn("saving prices to store failed")
	}
	return prices, nil
}
