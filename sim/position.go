package sim

import "github.com/rustyeddy/dca/market"

// Position is a holding and the won paid for it.
type Position struct {
	Instrument market.Instrument
	Quantity   int64
	Cost       int64
}

// AvgPrice is the average cost per unit, 0 for an empty position.
func (p Position) AvgPrice() int64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.Cost / p.Quantity
}

func (p *Position) buy(qty, price int64) {
	p.Quantity += qty
	p.Cost += qty * price
}

// sell removes qty at average cost. Callers check qty <= Quantity.
func (p *Position) sell(qty int64) {
	if qty >= p.Quantity {
		p.Quantity, p.Cost = 0, 0
		return
	}
	p.Cost -= p.Cost * qty / p.Quantity
	p.Quantity -= qty
}
