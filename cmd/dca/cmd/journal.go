package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/dca/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the order and backtest journal",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  runs   - List backtest runs
  run    - Show one backtest run and its trades
  orders - List live orders placed on a day

Examples:
  dca journal runs
  dca journal run 01HQ3K...
  dca journal orders 2024-01-16`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List backtest runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show one backtest run and its trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders [YYYY-MM-DD]",
	Short: "List live orders placed on a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().In(time.Local).Format("2006-01-02")
		if len(args) == 1 {
			day = args[0]
		}
		return listOrders(day)
	},
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalOrdersCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")
}

func openSQLite() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: set --db or journal.db_path")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	fmt.Println(journal.FormatRunsOrg(runs))
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	trades, err := j.ListTradesByRun(run.RunID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Println(journal.FormatRunOrg(run))
	fmt.Println("| Date | Instrument | Qty | Price | Amount | Balance | P/L | P/L % |")
	fmt.Println("|------+------------+-----+-------+--------+---------+-----+-------|")
	for _, t := range trades {
		fmt.Printf("| %s | %s | %d | %d | %d | %d | %d | %.2f%% |\n",
			t.Date.Format("2006-01-02"), t.Instrument, t.Quantity, t.Price,
			t.Amount, t.Balance, t.Profit, t.ProfitRate*100)
	}
	return nil
}

func listOrders(day string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	orders, err := j.ListOrdersBetween(start, end)
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Printf("no orders on %s\n", day)
		return nil
	}
	fmt.Print(journal.FormatOrdersOrg(orders))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
