package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ReauthPolicy runs a broker call and, if the session has expired,
// reauthenticates once and retries once. Any other failure, and any
// failure on the retry, is returned as is.
type ReauthPolicy struct {
	Reauthenticate func(ctx context.Context) error
	Log            logrus.FieldLogger
}

// NewReauthPolicy wires the policy to b.Reauthenticate.
func NewReauthPolicy(b Broker, log logrus.FieldLogger) ReauthPolicy {
	return ReauthPolicy{Reauthenticate: b.Reauthenticate, Log: log}
}

// WithReauth applies p to action. op names the call in logs and errors.
func WithReauth[T any](ctx context.Context, p ReauthPolicy, op string, action func(ctx context.Context) (T, error)) (T, error) {
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	v, err := action(ctx)
	if err == nil || !IsAuthExpired(err) {
		return v, err
	}

	var zero T
	if p.Reauthenticate == nil {
		return zero, err
	}

	log.WithField("op", op).WithError(err).Warn("session expired, reauthenticating")
	if rerr := p.Reauthenticate(ctx); rerr != nil {
		return zero, errors.Join(err, fmt.Errorf("%s: reauthenticate: %w", op, rerr))
	}

	v, err = action(ctx)
	if err != nil {
		log.WithField("op", op).WithError(err).Error("retry after reauthentication failed")
		return zero, err
	}
	return v, nil
}

// RetryOrder submits req through p.
func RetryOrder(ctx context.Context, p ReauthPolicy, b Broker, req OrderRequest) (Confirmation, error) {
	return WithReauth(ctx, p, "submit order "+req.Instrument.String(), func(ctx context.Context) (Confirmation, error) {
		return b.SubmitOrder(ctx, req)
	})
}
