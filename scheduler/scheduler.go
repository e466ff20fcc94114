package scheduler

import (
	"context"
	"time"

	"github.com/rustyeddy/dca/market"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often the loop checks whether a run is due.
const DefaultPollInterval = time.Second

// Scheduler invokes the trader once per recurrence. Cycles never overlap:
// the loop only polls again after a cycle returns.
type Scheduler struct {
	Trader       *Trader
	Recurrence   Recurrence
	Instruments  []market.Instrument
	Budget       int64
	PollInterval time.Duration

	// OnCycle, if set, receives every cycle result.
	OnCycle func(CycleResult)
}

// Run polls until ctx is cancelled. Cancellation is only observed between
// polls, so a cycle that has started always finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	poll := s.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	log := s.Trader.log()

	now := s.Trader.now()
	next := s.Recurrence.Next(now)
	log.WithFields(logrus.Fields{
		"utc":         now.UTC().Format(time.DateTime),
		"local":       s.Trader.Calendar.In(now).Format(time.DateTime),
		"schedule":    s.Recurrence.String(),
		"next_run":    next.Format(time.RFC3339),
		"instruments": len(s.Instruments),
		"budget":      s.Budget,
	}).Info("scheduler started")

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}

		now := s.Trader.now()
		if now.Before(next) {
			continue
		}

		res := s.Trader.RunCycle(context.WithoutCancel(ctx), s.Instruments, s.Budget)
		if s.OnCycle != nil {
			s.OnCycle(res)
		}

		next = s.Recurrence.Next(s.Trader.now())
		log.WithField("next_run", next.Format(time.RFC3339)).Info("next run scheduled")
	}
}
