package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/dca/market"
)

// Broker is the execution boundary the scheduler trades through.
type Broker interface {
	Quoter
	GetAvailableBalance(ctx context.Context) (int64, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (Confirmation, error)

	// Reauthenticate replaces the session used by the calls above. It is
	// safe to call more than once.
	Reauthenticate(ctx context.Context) error
}

// Quoter returns the current price of an instrument in won.
type Quoter interface {
	GetQuote(ctx context.Context, inst market.Instrument) (int64, error)
}

// HistoricalPrices returns daily observations ordered by date ascending.
type HistoricalPrices interface {
	GetDailyPrices(ctx context.Context, inst market.Instrument, start, end time.Time) ([]market.DailyPrice, error)
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type OrderType string

const (
	MarketOrder OrderType = "market"
	LimitOrder  OrderType = "limit"
)

type OrderRequest struct {
	Instrument market.Instrument
	Quantity   int64
	Side       Side
	Type       OrderType
	Price      *int64 // limit orders only
}

// NewMarketBuy is the only order shape the recurring purchase uses.
func NewMarketBuy(inst market.Instrument, qty int64) OrderRequest {
	return OrderRequest{Instrument: inst, Quantity: qty, Side: Buy, Type: MarketOrder}
}

func (r OrderRequest) Validate() error {
	if r.Instrument.Code == "" {
		return fmt.Errorf("order: instrument is required")
	}
	if r.Quantity < 1 {
		return fmt.Errorf("order: quantity must be at least 1, got %d", r.Quantity)
	}
	if r.Side != Buy && r.Side != Sell {
		return fmt.Errorf("order: unknown side %q", r.Side)
	}
	switch r.Type {
	case MarketOrder:
	case LimitOrder:
		if r.Price == nil || *r.Price <= 0 {
			return fmt.Errorf("order: limit order requires a positive price")
		}
	default:
		return fmt.Errorf("order: unknown type %q", r.Type)
	}
	return nil
}

// Confirmation is the broker's acknowledgement of an accepted order.
type Confirmation struct {
	OrderID    string
	Instrument market.Instrument
	Quantity   int64
	Price      int64 // fill or limit price when known, else 0
	Time       time.Time
}
