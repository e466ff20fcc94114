package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/rustyeddy/dca/market"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestIsAuthExpired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrAuthExpired, true},
		{"wrapped sentinel", fmt.Errorf("balance: %w", ErrAuthExpired), true},
		{"gateway code", errors.New("rt_cd 1 msg_cd EGW00123 msg1 기간이 만료된 token 입니다"), true},
		{"korean phrase only", errors.New("만료된 token 입니다"), true},
		{"rejected", ErrOrderRejected, false},
		{"transport", fmt.Errorf("%w: dial tcp: refused", ErrTransport), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsAuthExpired(tt.err))
		})
	}
}

type countingAction struct {
	errs  []error
	calls int
}

func (a *countingAction) run(ctx context.Context) (string, error) {
	i := a.calls
	a.calls++
	if i < len(a.errs) && a.errs[i] != nil {
		return "", a.errs[i]
	}
	return "ok", nil
}

func TestWithReauth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		errs        []error
		reauthErr   error
		wantErr     error
		wantCalls   int
		wantReauths int
	}{
		{"success first try", nil, nil, nil, 1, 0},
		{"expired then success", []error{ErrAuthExpired}, nil, nil, 2, 1},
		{"expired twice", []error{ErrAuthExpired, ErrAuthExpired}, nil, ErrAuthExpired, 2, 1},
		{"expired then rejected", []error{ErrAuthExpired, ErrOrderRejected}, nil, ErrOrderRejected, 2, 1},
		{"non auth error not retried", []error{ErrOrderRejected}, nil, ErrOrderRejected, 1, 0},
		{"transport not retried", []error{ErrTransport}, nil, ErrTransport, 1, 0},
		{"reauth fails", []error{ErrAuthExpired}, ErrTransport, ErrTransport, 1, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			action := &countingAction{errs: tt.errs}
			reauths := 0
			p := ReauthPolicy{
				Reauthenticate: func(context.Context) error {
					reauths++
					return tt.reauthErr
				},
				Log: quietLog(),
			}

			got, err := WithReauth(context.Background(), p, "test", action.run)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ok", got)
			}
			assert.Equal(t, tt.wantCalls, action.calls)
			assert.Equal(t, tt.wantReauths, reauths)
		})
	}
}

func TestWithReauthSubstringContract(t *testing.T) {
	t.Parallel()

	action := &countingAction{errs: []error{errors.New("API error: EGW00123")}}
	reauths := 0
	p := ReauthPolicy{
		Reauthenticate: func(context.Context) error { reauths++; return nil },
		Log:            quietLog(),
	}

	got, err := WithReauth(context.Background(), p, "balance", action.run)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, reauths)
}

func TestOrderRequestValidate(t *testing.T) {
	t.Parallel()

	inst := market.NewInstrument("379800")
	price := int64(10_000)
	zero := int64(0)

	tests := []struct {
		name    string
		req     OrderRequest
		wantErr string
	}{
		{"market buy", NewMarketBuy(inst, 3), ""},
		{"limit buy", OrderRequest{Instrument: inst, Quantity: 1, Side: Buy, Type: LimitOrder, Price: &price}, ""},
		{"zero quantity", NewMarketBuy(inst, 0), "quantity must be at least 1"},
		{"no instrument", NewMarketBuy(market.Instrument{}, 1), "instrument is required"},
		{"limit without price", OrderRequest{Instrument: inst, Quantity: 1, Side: Buy, Type: LimitOrder}, "positive price"},
		{"limit zero price", OrderRequest{Instrument: inst, Quantity: 1, Side: Buy, Type: LimitOrder, Price: &zero}, "positive price"},
		{"bad side", OrderRequest{Instrument: inst, Quantity: 1, Side: "hold", Type: MarketOrder}, "unknown side"},
		{"bad type", OrderRequest{Instrument: inst, Quantity: 1, Side: Buy, Type: "stop"}, "unknown type"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
