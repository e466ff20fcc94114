package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/pkg/id"
)

// Engine is an in-memory broker used for dry runs. Orders fill immediately
// against a local cash balance; nothing is sent upstream.
type Engine struct {
	mu       sync.Mutex
	cash     int64
	holdings map[string]*Position
	prices   *PriceStore
	upstream broker.Quoter
	fills    []broker.Confirmation
	now      func() time.Time
}

var _ broker.Broker = (*Engine)(nil)

// NewEngine starts with cash won. Quotes come from the engine's PriceStore
// first and then from upstream, which may be nil.
func NewEngine(cash int64, upstream broker.Quoter) *Engine {
	return &Engine{
		cash:     cash,
		holdings: make(map[string]*Position),
		prices:   NewPriceStore(),
		upstream: upstream,
		now:      time.Now,
	}
}

func (e *Engine) Prices() *PriceStore { return e.prices }

func (e *Engine) GetAvailableBalance(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash, nil
}

func (e *Engine) GetQuote(ctx context.Context, inst market.Instrument) (int64, error) {
	if p, err := e.prices.Get(inst); err == nil {
		if p <= 0 {
			return 0, fmt.Errorf("%w: price for %s is 0", broker.ErrQuoteUnavailable, inst)
		}
		return p, nil
	}
	if e.upstream == nil {
		return 0, fmt.Errorf("%w: no price for %s", broker.ErrQuoteUnavailable, inst)
	}
	return e.upstream.GetQuote(ctx, inst)
}

// SubmitOrder fills market orders at the current quote and limit orders at
// their limit price.
func (e *Engine) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Confirmation, error) {
	if err := req.Validate(); err != nil {
		return broker.Confirmation{}, fmt.Errorf("%w: %w", broker.ErrOrderRejected, err)
	}

	var price int64
	if req.Type == broker.LimitOrder {
		price = *req.Price
	} else {
		p, err := e.GetQuote(ctx, req.Instrument)
		if err != nil {
			return broker.Confirmation{}, fmt.Errorf("%w: %w", broker.ErrOrderRejected, err)
		}
		price = p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	amount := price * req.Quantity
	switch req.Side {
	case broker.Buy:
		if amount > e.cash {
			return broker.Confirmation{}, fmt.Errorf("%w: %s x%d costs %d, cash %d",
				broker.ErrOrderRejected, req.Instrument, req.Quantity, amount, e.cash)
		}
		e.cash -= amount
		e.position(req.Instrument).buy(req.Quantity, price)
	case broker.Sell:
		pos, ok := e.holdings[req.Instrument.Code]
		if !ok || pos.Quantity < req.Quantity {
			var held int64
			if ok {
				held = pos.Quantity
			}
			return broker.Confirmation{}, fmt.Errorf("%w: selling %d of %s, holding %d",
				broker.ErrOrderRejected, req.Quantity, req.Instrument, held)
		}
		e.cash += amount
		pos.sell(req.Quantity)
	}

	conf := broker.Confirmation{
		OrderID:    id.New(),
		Instrument: req.Instrument,
		Quantity:   req.Quantity,
		Price:      price,
		Time:       e.now(),
	}
	e.fills = append(e.fills, conf)
	return conf, nil
}

// Reauthenticate refreshes the upstream session when there is one.
func (e *Engine) Reauthenticate(ctx context.Context) error {
	if r, ok := e.upstream.(interface {
		Reauthenticate(context.Context) error
	}); ok {
		return r.Reauthenticate(ctx)
	}
	return nil
}

// Holding returns the quantity held of inst.
func (e *Engine) Holding(inst market.Instrument) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.holdings[inst.Code]; ok {
		return p.Quantity
	}
	return 0
}

// position returns the holding for inst, creating it. Callers hold e.mu.
func (e *Engine) position(inst market.Instrument) *Position {
	p, ok := e.holdings[inst.Code]
	if !ok {
		p = &Position{Instrument: inst}
		e.holdings[inst.Code] = p
	}
	return p
}

// Fills returns a copy of every accepted order, oldest first.
func (e *Engine) Fills() []broker.Confirmation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]broker.Confirmation, len(e.fills))
	copy(out, e.fills)
	return out
}
