package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/journal"
	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/pkg/id"
	"github.com/rustyeddy/dca/risk"
	"github.com/sirupsen/logrus"
)

// ErrBudgetUnavailable is the cycle error when cash does not cover the
// weekly budget.
var ErrBudgetUnavailable = risk.ErrBudgetUnavailable

// Status is the outcome of a whole cycle.
type Status string

const (
	// StatusClosed means the market was closed and nothing was attempted.
	StatusClosed Status = "closed"
	// StatusBalanceFailed means the balance could not be read.
	StatusBalanceFailed Status = "balance_failed"
	// StatusBudgetUnavailable means cash did not cover the whole budget.
	StatusBudgetUnavailable Status = "budget_unavailable"
	// StatusCompleted means every instrument was attempted.
	StatusCompleted Status = "completed"
)

// InstrumentResult is one instrument's outcome within a cycle.
type InstrumentResult struct {
	Instrument   market.Instrument
	Budget       int64
	Price        int64
	Quantity     int64
	Confirmation broker.Confirmation
	Err          error
}

func (r InstrumentResult) OK() bool { return r.Err == nil }

// CycleResult aggregates a cycle.
type CycleResult struct {
	CycleID   string
	Time      time.Time
	Status    Status
	Available int64
	Budget    int64
	Err       error
	Results   []InstrumentResult
}

// Filled counts instruments whose order was accepted.
func (c CycleResult) Filled() int {
	n := 0
	for _, r := range c.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Trader runs purchase cycles against a broker.
type Trader struct {
	Broker   broker.Broker
	Calendar market.Calendar
	Journal  journal.Journal // optional
	Log      logrus.FieldLogger
	Now      func() time.Time

	// Force skips the market calendar check.
	Force bool
}

func (t *Trader) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Trader) log() logrus.FieldLogger {
	if t.Log != nil {
		return t.Log
	}
	return logrus.StandardLogger()
}

// RunCycle buys budget worth of instruments, split evenly. It never returns
// early because one instrument failed; only a closed market, an unreadable
// balance or insufficient cash stop the whole cycle, and those stop it
// before any order is sent.
func (t *Trader) RunCycle(ctx context.Context, instruments []market.Instrument, budget int64) CycleResult {
	now := t.now()
	res := CycleResult{CycleID: id.NewAt(now), Time: now, Budget: budget}
	log := t.log().WithField("cycle", res.CycleID)

	if !t.Force && !t.Calendar.IsOpen(now) {
		res.Status = StatusClosed
		log.WithField("local", t.Calendar.In(now).Format(time.DateTime)).Warn("market closed, skipping cycle")
		return res
	}

	policy := broker.NewReauthPolicy(t.Broker, log)

	available, err := broker.WithReauth(ctx, policy, "balance", t.Broker.GetAvailableBalance)
	if err != nil {
		res.Status = StatusBalanceFailed
		res.Err = fmt.Errorf("balance: %w", err)
		log.WithError(err).Error("balance query failed, skipping cycle")
		return res
	}
	res.Available = available
	log.WithField("available", available).Info("balance checked")

	if err := risk.CheckBudget(available, budget); err != nil {
		res.Status = StatusBudgetUnavailable
		res.Err = err
		log.WithField("available", available).WithField("required", budget).Warn("insufficient cash, no orders placed")
		return res
	}

	each := risk.SplitBudget(budget, len(instruments))
	for _, inst := range instruments {
		r := t.buy(ctx, policy, inst, each)
		res.Results = append(res.Results, r)
		t.record(log, res.CycleID, r)
	}
	res.Status = StatusCompleted

	log.WithField("filled", res.Filled()).WithField("instruments", len(instruments)).Info("cycle complete")
	return res
}

// buy quotes, sizes and submits one instrument.
func (t *Trader) buy(ctx context.Context, policy broker.ReauthPolicy, inst market.Instrument, budget int64) InstrumentResult {
	r := InstrumentResult{Instrument: inst, Budget: budget}
	log := policy.Log.WithField("instrument", inst.String()).WithField("budget", budget)

	price, err := broker.WithReauth(ctx, policy, "quote "+inst.String(), func(ctx context.Context) (int64, error) {
		return t.Broker.GetQuote(ctx, inst)
	})
	if err != nil {
		r.Err = err
		log.WithError(err).Error("quote failed")
		return r
	}
	r.Price = price

	qty, err := risk.SizeOrder(budget, price)
	if err != nil {
		r.Err = err
		log.WithField("price", price).WithError(err).Warn("budget too small for one unit")
		return r
	}
	r.Quantity = qty

	conf, err := broker.RetryOrder(ctx, policy, t.Broker, broker.NewMarketBuy(inst, qty))
	if err != nil {
		r.Err = err
		log.WithField("quantity", qty).WithError(err).Error("order failed")
		return r
	}
	r.Confirmation = conf

	log.WithField("quantity", qty).WithField("price", price).
		WithField("order_id", conf.OrderID).Info("order placed")
	return r
}

func (t *Trader) record(log logrus.FieldLogger, cycleID string, r InstrumentResult) {
	if t.Journal == nil {
		return
	}
	rec := journal.OrderRecord{
		CycleID:    cycleID,
		Time:       t.now(),
		Instrument: r.Instrument.String(),
		Budget:     r.Budget,
		Price:      r.Price,
		Quantity:   r.Quantity,
		OrderID:    r.Confirmation.OrderID,
		Status:     journal.StatusFilled,
	}
	if r.Err != nil {
		rec.Status = journal.StatusFailed
		rec.Error = r.Err.Error()
		if errors.Is(r.Err, risk.ErrInsufficientBudget) {
			rec.Status = journal.StatusSkipped
		}
	}
	if err := t.Journal.RecordOrder(rec); err != nil {
		log.WithField("instrument", r.Instrument.String()).WithError(err).Error("journal write failed")
	}
}
