package sim

import (
	"context"
	"testing"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedQuoter struct {
	price   int64
	reauths int
}

func (q *fixedQuoter) GetQuote(ctx context.Context, inst market.Instrument) (int64, error) {
	return q.price, nil
}

func (q *fixedQuoter) Reauthenticate(ctx context.Context) error {
	q.reauths++
	return nil
}

func TestEngineMarketBuy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inst := market.NewInstrument("379800")
	e := NewEngine(100_000, nil)
	e.Prices().Set(inst, 12_000)

	conf, err := e.SubmitOrder(ctx, broker.NewMarketBuy(inst, 5))
	require.NoError(t, err)
	assert.NotEmpty(t, conf.OrderID)
	assert.Equal(t, int64(12_000), conf.Price)
	assert.Equal(t, int64(5), e.Holding(inst))

	bal, err := e.GetAvailableBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40_000), bal)

	_, err = e.SubmitOrder(ctx, broker.NewMarketBuy(inst, 4))
	assert.ErrorIs(t, err, broker.ErrOrderRejected)
	assert.Equal(t, int64(5), e.Holding(inst))
	assert.Len(t, e.Fills(), 1)
}

func TestEngineSellAndLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inst := market.NewInstrument("379800")
	e := NewEngine(50_000, nil)

	price := int64(10_000)
	_, err := e.SubmitOrder(ctx, broker.OrderRequest{Instrument: inst, Quantity: 3, Side: broker.Buy, Type: broker.LimitOrder, Price: &price})
	require.NoError(t, err)

	sell := int64(11_000)
	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Instrument: inst, Quantity: 2, Side: broker.Sell, Type: broker.LimitOrder, Price: &sell})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Holding(inst))

	bal, _ := e.GetAvailableBalance(ctx)
	assert.Equal(t, int64(42_000), bal)

	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Instrument: inst, Quantity: 2, Side: broker.Sell, Type: broker.LimitOrder, Price: &sell})
	assert.ErrorIs(t, err, broker.ErrOrderRejected)
}

func TestEngineSellUnheldLeavesNoHolding(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inst := market.NewInstrument("379810")
	e := NewEngine(50_000, nil)

	price := int64(10_000)
	_, err := e.SubmitOrder(ctx, broker.OrderRequest{Instrument: inst, Quantity: 1, Side: broker.Sell, Type: broker.LimitOrder, Price: &price})
	require.ErrorIs(t, err, broker.ErrOrderRejected)
	assert.Contains(t, err.Error(), "holding 0")

	_, ok := e.holdings[inst.Code]
	assert.False(t, ok)
	assert.Empty(t, e.Positions())
	assert.Empty(t, e.Fills())

	bal, err := e.GetAvailableBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), bal)
}

func TestEngineUpstreamQuotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	up := &fixedQuoter{price: 9_000}
	e := NewEngine(10_000, up)

	p, err := e.GetQuote(ctx, market.NewInstrument("379800"))
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), p)

	require.NoError(t, e.Reauthenticate(ctx))
	assert.Equal(t, 1, up.reauths)

	_, err = NewEngine(0, nil).GetQuote(ctx, market.NewInstrument("379800"))
	assert.ErrorIs(t, err, broker.ErrQuoteUnavailable)

	z := NewEngine(0, nil)
	z.Prices().Set(market.NewInstrument("379800"), 0)
	_, err = z.GetQuote(ctx, market.NewInstrument("379800"))
	assert.ErrorIs(t, err, broker.ErrQuoteUnavailable)
}
