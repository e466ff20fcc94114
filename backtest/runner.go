package backtest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/journal"
	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/pkg/id"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Request is one backtest as asked for on the command line.
type Request struct {
	Instruments    []market.Instrument
	Start, End     time.Time
	InitialBalance int64
	WeeklyBudget   int64
	BuyDay         time.Weekday
}

// Report is a finished run.
type Report struct {
	RunID   string
	Result  Result
	Summary Summary
	// Unavailable lists instruments whose history could not be loaded.
	Unavailable []market.Instrument
}

// Runner loads history, simulates and journals a run.
type Runner struct {
	Source   broker.HistoricalPrices
	Journal  journal.Journal // optional
	Analyzer Analyzer
	Log      logrus.FieldLogger
	Progress io.Writer // optional progress bar output
	Now      func() time.Time
}

// Run executes the backtest:
//  1. load each instrument's daily prices from Source
//  2. Simulate
//  3. Analyze and record the run, its trades and its equity curve
//
// An instrument whose history cannot be loaded is left out of the run.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	if r.Source == nil {
		return Report{}, fmt.Errorf("backtest: Source is required")
	}
	if len(req.Instruments) == 0 {
		return Report{}, fmt.Errorf("backtest: at least one instrument is required")
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	rep := Report{RunID: id.NewAt(now())}
	log = log.WithField("run", rep.RunID)

	prices := make(map[string][]market.DailyPrice, len(req.Instruments))
	bar := newProgressBar(r.Progress, len(req.Instruments))
	for _, inst := range req.Instruments {
		series, err := r.Source.GetDailyPrices(ctx, inst, req.Start, req.End)
		_ = bar.Add(1)
		if err != nil {
			log.WithField("instrument", inst.String()).WithError(err).Error("price history unavailable")
			rep.Unavailable = append(rep.Unavailable, inst)
			continue
		}
		prices[inst.Code] = market.FilterPrices(series, req.Start, req.End)
		log.WithField("instrument", inst.String()).WithField("rows", len(prices[inst.Code])).Debug("prices loaded")
	}
	_ = bar.Finish()

	res, err := Simulate(Inputs{
		Instruments:    req.Instruments,
		Prices:         prices,
		InitialBalance: req.InitialBalance,
		WeeklyBudget:   req.WeeklyBudget,
		BuyOn:          OnWeekday(req.BuyDay),
	})
	if err != nil {
		return Report{}, err
	}
	rep.Result = res
	for _, s := range res.Skipped {
		log.WithField("date", market.FormatDate(s.Date)).WithField("instrument", s.Instrument).
			WithError(s.Err).Debug("order skipped")
	}

	sum, err := r.Analyzer.Analyze(res)
	if err != nil {
		return rep, err
	}
	rep.Summary = sum

	log.WithFields(logrus.Fields{
		"trades":        sum.Trades,
		"final_balance": sum.FinalBalance,
		"total_return":  sum.TotalReturn,
	}).Info("backtest complete")

	if r.Journal != nil {
		if err := r.record(rep, req, now()); err != nil {
			return rep, fmt.Errorf("journal: %w", err)
		}
	}
	return rep, nil
}

// RunRecord is the journal row for rep.
func (rep Report) RunRecord(req Request, created time.Time) journal.RunRecord {
	codes := make([]string, len(req.Instruments))
	for i, inst := range req.Instruments {
		codes[i] = inst.String()
	}
	s := rep.Summary
	return journal.RunRecord{
		RunID:          rep.RunID,
		Created:        created,
		Instruments:    strings.Join(codes, ","),
		Start:          req.Start,
		End:            req.End,
		InitialBalance: s.InitialBalance,
		WeeklyBudget:   req.WeeklyBudget,
		FinalBalance:   s.FinalBalance,
		TotalInvested:  s.TotalInvested,
		TotalProfit:    s.TotalProfit,
		TotalReturn:    s.TotalReturn,
		AnnualReturn:   s.AnnualReturn,
		Volatility:     s.Volatility,
		SharpeRatio:    s.SharpeRatio,
		MaxDrawdown:    s.MaxDrawdown,
		WinRate:        s.WinRate,
		Trades:         s.Trades,
	}
}

func (r *Runner) record(rep Report, req Request, created time.Time) error {
	if err := r.Journal.RecordRun(rep.RunRecord(req, created)); err != nil {
		return err
	}
	for _, t := range rep.Result.Trades {
		if err := r.Journal.RecordTrade(journal.TradeRecord{
			RunID:      rep.RunID,
			Date:       t.Date,
			Instrument: t.Instrument.String(),
			Quantity:   t.Quantity,
			Price:      t.Price,
			Amount:     t.Amount,
			Balance:    t.Balance,
			Profit:     t.Profit,
			ProfitRate: t.ProfitRate,
		}); err != nil {
			return err
		}
	}
	for _, snap := range rep.Result.Snapshots {
		if err := r.Journal.RecordEquity(journal.EquitySnapshot{
			RunID:      rep.RunID,
			Date:       snap.Date,
			Cash:       snap.Cash,
			TotalValue: snap.TotalValue,
		}); err != nil {
			return err
		}
	}
	return nil
}

func newProgressBar(w io.Writer, max int) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Loading price history..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
