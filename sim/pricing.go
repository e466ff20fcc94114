package sim

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
)

// PriceStore holds fixed quotes keyed by instrument code.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]int64
}

func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]int64)}
}

func (ps *PriceStore) Set(inst market.Instrument, price int64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.prices[inst.Code] = price
}

func (ps *PriceStore) Get(inst market.Instrument) (int64, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.prices[inst.Code]
	if !ok {
		return 0, fmt.Errorf("%w: no price for %s", broker.ErrQuoteUnavailable, inst)
	}
	return p, nil
}
