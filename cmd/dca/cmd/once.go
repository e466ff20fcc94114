package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/scheduler"
	"github.com/rustyeddy/dca/sim"
	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single purchase cycle now",
	Long: `Buy the configured basket once and exit. The market calendar is still
checked unless --force is given.

Examples:
  dca once --dry-run
  dca once --force`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

var (
	onceForce  bool
	onceDryRun bool
	onceCash   int64
)

func init() {
	rootCmd.AddCommand(onceCmd)

	onceCmd.Flags().BoolVar(&onceForce, "force", false, "skip the market hours check")
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "fill orders locally instead of sending them")
	onceCmd.Flags().Int64Var(&onceCash, "dry-run-cash", 10_000_000, "starting cash for --dry-run, in won")
}

func runOnce(cmd *cobra.Command, args []string) error {
	trader, j, err := newTrader(onceDryRun, onceCash, onceForce)
	if err != nil {
		return err
	}
	defer j.Close()

	runCycleOnce(cmd.Context(), trader, cfg.Instruments(), cfg.Strategy.WeeklyBudget)
	return nil
}

// runCycleOnce buys the basket once and prints the outcome. A cycle that
// ends skipped or failed is reported, not returned; errors from runOnce are
// reserved for setup failures.
func runCycleOnce(ctx context.Context, trader *scheduler.Trader, instruments []market.Instrument, budget int64) scheduler.CycleResult {
	c := trader.RunCycle(ctx, instruments, budget)
	printCycle(c)
	if eng, ok := trader.Broker.(*sim.Engine); ok {
		printPositions(ctx, eng)
	}
	return c
}

func printCycle(c scheduler.CycleResult) {
	fmt.Printf("\nCycle %s  %s  %s\n", c.CycleID, c.Time.Format("2006-01-02 15:04:05 MST"), c.Status)
	if c.Err != nil {
		fmt.Printf("  ✗ %v\n", c.Err)
		return
	}
	if c.Status == scheduler.StatusClosed {
		fmt.Println("  market closed, nothing bought")
		return
	}
	fmt.Printf("  available %d won, budget %d won\n", c.Available, c.Budget)
	for _, r := range c.Results {
		if !r.OK() {
			fmt.Printf("  ✗ %-10s %v\n", r.Instrument, r.Err)
			continue
		}
		fmt.Printf("  ✓ %-10s %d @ %d won (order %s)\n",
			r.Instrument, r.Quantity, r.Price, r.Confirmation.OrderID)
	}
	fmt.Printf("  %d/%d filled\n", c.Filled(), len(c.Results))
}

func printPositions(ctx context.Context, e *sim.Engine) {
	fmt.Println("\nDry-run positions:")
	for _, p := range e.Positions() {
		price, err := e.GetQuote(ctx, p.Instrument)
		if err != nil {
			fmt.Printf("  %-10s %d @ avg %d won (no quote)\n", p.Instrument, p.Quantity, p.AvgPrice())
			continue
		}
		fmt.Printf("  %-10s %d @ avg %d won, P/L %+d won\n",
			p.Instrument, p.Quantity, p.AvgPrice(), sim.UnrealizedPL(p, price))
	}
	if eq, err := e.Equity(ctx); err == nil {
		fmt.Printf("  equity %d won\n", eq)
	}
}
