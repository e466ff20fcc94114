package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/dca/backtest"
	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/journal"
	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/pricestore"
	"github.com/rustyeddy/dca/scheduler"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Simulate the weekly schedule over past prices",
	Long: `Replay the weekly purchase schedule over historical daily closes and
report return, volatility, Sharpe ratio and drawdown.

Prices come from, in order of preference:
  - the Postgres store in prices.postgres_dsn
  - a directory of <code>.csv files (--prices-csv or prices.csv_dir)
  - the KIS daily chart API
Rows fetched from KIS are saved to the store when one is configured.

Examples:
  dca backtest
  dca backtest --codes 379800,379810 --start 20230102 --end 20231229
  dca backtest --prices-csv ./prices --export-dir ./out --org runs.org`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btCodes          string
	btStart          string
	btEnd            string
	btInitialBalance int64
	btWeeklyBudget   int64
	btBuyDay         string
	btPricesCSV      string
	btExportDir      string
	btOrgFile        string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringVar(&btCodes, "codes", "", "comma separated instruments (default strategy.instruments)")
	f.StringVar(&btStart, "start", "", "first day, YYYYMMDD (default backtest.start)")
	f.StringVar(&btEnd, "end", "", "last day, YYYYMMDD (default backtest.end)")
	f.Int64Var(&btInitialBalance, "initial-balance", 0, "starting cash in won (default backtest.initial_balance)")
	f.Int64Var(&btWeeklyBudget, "weekly-budget", 0, "weekly budget in won (default backtest.weekly_budget)")
	f.StringVar(&btBuyDay, "buy-day", "", "weekday to buy on (default backtest.buy_weekday)")
	f.StringVar(&btPricesCSV, "prices-csv", "", "directory of <code>.csv price files")
	f.StringVar(&btExportDir, "export-dir", "", "also write runs, trades and equity CSVs here")
	f.StringVar(&btOrgFile, "org", "", "append the run as an Org entry to this file")
}

func backtestRequest() (backtest.Request, error) {
	if btStart != "" {
		cfg.Backtest.Start = btStart
	}
	if btEnd != "" {
		cfg.Backtest.End = btEnd
	}
	if btInitialBalance != 0 {
		cfg.Backtest.InitialBalance = btInitialBalance
	}
	if btWeeklyBudget != 0 {
		cfg.Backtest.WeeklyBudget = btWeeklyBudget
	}
	if btBuyDay != "" {
		cfg.Backtest.BuyWeekday = btBuyDay
	}
	if err := cfg.Validate(); err != nil {
		return backtest.Request{}, err
	}

	instruments := cfg.Instruments()
	if btCodes != "" {
		var err error
		if instruments, err = market.ParseInstruments(btCodes); err != nil {
			return backtest.Request{}, fmt.Errorf("--codes: %w", err)
		}
	}
	start, end, err := cfg.BacktestRange(time.Now())
	if err != nil {
		return backtest.Request{}, err
	}
	day, err := scheduler.ParseWeekday(cfg.Backtest.BuyWeekday)
	if err != nil {
		return backtest.Request{}, err
	}
	return backtest.Request{
		Instruments:    instruments,
		Start:          start,
		End:            end,
		InitialBalance: cfg.Backtest.InitialBalance,
		WeeklyBudget:   cfg.Backtest.WeeklyBudget,
		BuyDay:         day,
	}, nil
}

// priceSource picks where history is read from. The returned func releases
// any store connection.
func priceSource(ctx context.Context) (broker.HistoricalPrices, func(), error) {
	var upstream broker.HistoricalPrices
	client, kisErr := newKIS()
	if kisErr == nil {
		upstream = client
	} else {
		log.WithError(kisErr).Debug("KIS unavailable for price history")
	}

	csvDir := cfg.Prices.CSVDir
	if btPricesCSV != "" {
		csvDir = btPricesCSV
	}

	switch {
	case cfg.Prices.PostgresDSN != "":
		pg, err := pricestore.NewPostgres(ctx, cfg.Prices.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return &pricestore.ReadThrough{Store: pg, Source: upstream, Log: log}, pg.Close, nil
	case csvDir != "":
		return &pricestore.ReadThrough{Store: pricestore.CSVDir{Dir: csvDir}, Source: upstream, Log: log}, func() {}, nil
	case upstream == nil:
		return nil, nil, fmt.Errorf("no price source: %w", kisErr)
	}
	return upstream, func() {}, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req, err := backtestRequest()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	src, release, err := priceSource(ctx)
	if err != nil {
		return err
	}
	defer release()

	j, err := openJournal()
	if err != nil {
		return err
	}
	if btExportDir != "" {
		export, err := journal.NewCSV(btExportDir)
		if err != nil {
			j.Close()
			return fmt.Errorf("export dir: %w", err)
		}
		j = journal.Tee(j, export)
	}
	defer j.Close()

	runner := &backtest.Runner{
		Source:   src,
		Journal:  j,
		Analyzer: backtest.Analyzer{RiskFreeRate: cfg.Backtest.RiskFreeRate},
		Log:      log,
		Progress: os.Stderr,
	}
	rep, err := runner.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Printf("\nBacktest %s: %d instruments, %s - %s\n", rep.RunID, len(req.Instruments),
		market.FormatDate(req.Start), market.FormatDate(req.End))
	for _, inst := range rep.Unavailable {
		fmt.Printf("  ✗ %s: no price history, left out\n", inst)
	}
	rep.Summary.Render(os.Stdout)

	if btOrgFile != "" {
		if err := appendOrg(btOrgFile, rep, req); err != nil {
			return err
		}
		fmt.Printf("✓ Appended run to %s\n", btOrgFile)
	}
	if btExportDir != "" {
		fmt.Printf("✓ Exported CSVs to %s\n", btExportDir)
	}
	return nil
}

func appendOrg(path string, rep backtest.Report, req backtest.Request) error {
	entry := journal.FormatRunOrg(rep.RunRecord(req, time.Now()))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open org file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(entry + "\n"); err != nil {
		return fmt.Errorf("write org file: %w", err)
	}
	return nil
}
