package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rustyeddy/dca/config"
	"github.com/rustyeddy/dca/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dca",
	Short: "Weekly ETF dollar-cost averaging for the KIS broker",
	Long: `dca buys a fixed basket of ETFs every week through the Korea Investment
& Securities Open API, splitting a weekly budget evenly across the basket.

It provides tools for:
  - Running the weekly purchase schedule against a paper or real account
  - Running a single purchase cycle on demand
  - Backtesting the schedule over historical daily prices
  - Querying the order and backtest journal

Broker secrets are read from the environment or a .env file:
  KIS_APP_KEY, KIS_APP_SECRET, KIS_ACCOUNT_NO                   (real)
  KIS_PAPER_APP_KEY, KIS_PAPER_APP_SECRET, KIS_PAPER_ACCOUNT_NO (paper)`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

var (
	cfgFile  string
	envFile  string
	logLevel string
	noColor  bool

	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "dca.yaml", "config file (defaults are used when it does not exist)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of KEY=VALUE broker secrets")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "console log level (overrides log.level)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored console logs")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}

	c, err := config.LoadFromFile(cfgFile)
	switch {
	case err == nil:
		cfg = c
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	default:
		return err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	l, closer, err := logging.New(logging.Options{
		Level:   level,
		NoColor: noColor,
		Dir:     cfg.Log.Dir,
		Console: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	log, logCloser = l, closer
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}
