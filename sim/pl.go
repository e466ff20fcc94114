package sim

import (
	"context"
	"sort"
)

// UnrealizedPL is the gain on p if it were sold at price.
func UnrealizedPL(p Position, price int64) int64 {
	return p.Quantity*price - p.Cost
}

// Positions returns every non-empty holding ordered by code.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, len(e.holdings))
	for _, p := range e.holdings {
		if p.Quantity > 0 {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument.Code < out[j].Instrument.Code })
	return out
}

// Equity is cash plus every position marked at its current quote. A
// position without a quote is valued at cost.
func (e *Engine) Equity(ctx context.Context) (int64, error) {
	total, err := e.GetAvailableBalance(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range e.Positions() {
		price, err := e.GetQuote(ctx, p.Instrument)
		if err != nil {
			total += p.Cost
			continue
		}
		total += p.Quantity * price
	}
	return total, nil
}
