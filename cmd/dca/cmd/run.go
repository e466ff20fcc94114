package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/dca/scheduler"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the weekly purchase schedule",
	Long: `Start the scheduler and buy the configured basket once per week at the
configured weekday and time. Runs until interrupted; a cycle that has
started always finishes before the process exits.

Examples:
  dca run
  dca run --config dca.yaml --dry-run`,
	RunE: runSchedule,
}

var (
	runDryRun bool
	runCash   int64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "fill orders locally instead of sending them")
	runCmd.Flags().Int64Var(&runCash, "dry-run-cash", 10_000_000, "starting cash for --dry-run, in won")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	rec, err := cfg.Recurrence()
	if err != nil {
		return err
	}
	trader, j, err := newTrader(runDryRun, runCash, false)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &scheduler.Scheduler{
		Trader:       trader,
		Recurrence:   rec,
		Instruments:  cfg.Instruments(),
		Budget:       cfg.Strategy.WeeklyBudget,
		PollInterval: cfg.PollInterval(),
		OnCycle:      func(c scheduler.CycleResult) { printCycle(c) },
	}
	fmt.Printf("✓ Scheduler started: %s, %d instruments, %d won per week\n",
		rec, len(s.Instruments), s.Budget)
	return s.Run(ctx)
}
