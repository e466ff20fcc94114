package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/dca/market"
	"github.com/rustyeddy/dca/scheduler"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration. Secrets are not part of it;
// see Credentials.
type Config struct {
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Prices   PricesConfig   `json:"prices" yaml:"prices"`
}

// BrokerConfig selects the trading environment.
type BrokerConfig struct {
	Mode       string `json:"mode" yaml:"mode"` // "paper" or "real"
	TokenCache string `json:"token_cache,omitempty" yaml:"token_cache,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout    string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "30s"
}

// StrategyConfig is the basket bought every week.
type StrategyConfig struct {
	Instruments  []market.Instrument `json:"instruments" yaml:"instruments"`
	WeeklyBudget int64               `json:"weekly_budget" yaml:"weekly_budget"`
}

// ScheduleConfig is when the live scheduler fires.
type ScheduleConfig struct {
	Weekday      string `json:"weekday" yaml:"weekday"`
	Time         string `json:"time" yaml:"time"` // HH:MM
	Timezone     string `json:"timezone" yaml:"timezone"`
	PollInterval string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
}

// MarketConfig is the exchange's regular session.
type MarketConfig struct {
	Open     string `json:"open" yaml:"open"`
	Close    string `json:"close" yaml:"close"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

// BacktestConfig holds simulation defaults. Start and End are YYYYMMDD;
// empty means the year up to today.
type BacktestConfig struct {
	InitialBalance int64   `json:"initial_balance" yaml:"initial_balance"`
	WeeklyBudget   int64   `json:"weekly_budget" yaml:"weekly_budget"`
	Start          string  `json:"start,omitempty" yaml:"start,omitempty"`
	End            string  `json:"end,omitempty" yaml:"end,omitempty"`
	BuyWeekday     string  `json:"buy_weekday" yaml:"buy_weekday"`
	RiskFreeRate   float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "csv" or "sqlite"
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	Dir   string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// PricesConfig points backtests at stored history. Both are optional.
type PricesConfig struct {
	CSVDir      string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`
}

// ConfigurationError names the offending field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Field + " " + e.Reason
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate reports the first invalid field as a *ConfigurationError.
func (c *Config) Validate() error {
	if c.Broker.Mode != "paper" && c.Broker.Mode != "real" {
		return invalid("broker.mode", "must be 'paper' or 'real'")
	}
	if _, err := parseDuration(c.Broker.Timeout); err != nil {
		return invalid("broker.timeout", "%v", err)
	}
	if len(c.Strategy.Instruments) == 0 {
		return invalid("strategy.instruments", "is required")
	}
	for i, inst := range c.Strategy.Instruments {
		if inst.Code == "" {
			return invalid(fmt.Sprintf("strategy.instruments[%d].code", i), "is required")
		}
		if inst.Venue != "" && !inst.Venue.Valid() {
			return invalid(fmt.Sprintf("strategy.instruments[%d].venue", i), "unknown venue %q", inst.Venue)
		}
	}
	if c.Strategy.WeeklyBudget <= 0 {
		return invalid("strategy.weekly_budget", "must be positive")
	}
	if _, err := scheduler.ParseWeekday(c.Schedule.Weekday); err != nil {
		return invalid("schedule.weekday", "%v", err)
	}
	if _, err := market.ParseTimeOfDay(c.Schedule.Time); err != nil {
		return invalid("schedule.time", "%v", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return invalid("schedule.timezone", "%v", err)
	}
	if d, err := parseDuration(c.Schedule.PollInterval); err != nil || d < 0 {
		return invalid("schedule.poll_interval", "must be a non-negative duration")
	}
	if _, err := c.Calendar(); err != nil {
		return invalid("market", "%v", err)
	}
	if c.Backtest.InitialBalance <= 0 {
		return invalid("backtest.initial_balance", "must be positive")
	}
	if c.Backtest.WeeklyBudget <= 0 {
		return invalid("backtest.weekly_budget", "must be positive")
	}
	if _, err := scheduler.ParseWeekday(c.Backtest.BuyWeekday); err != nil {
		return invalid("backtest.buy_weekday", "%v", err)
	}
	if _, _, err := c.BacktestRange(time.Now()); err != nil {
		return err
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return invalid("journal.type", "must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.Dir == "" {
		return invalid("journal.dir", "required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return invalid("journal.db_path", "required for SQLite type")
	}
	return nil
}

// Calendar builds the market gate from the market section.
func (c *Config) Calendar() (market.Calendar, error) {
	return market.NewCalendar(c.Market.Timezone, c.Market.Open, c.Market.Close)
}

// Recurrence builds the live schedule.
func (c *Config) Recurrence() (scheduler.Recurrence, error) {
	day, err := scheduler.ParseWeekday(c.Schedule.Weekday)
	if err != nil {
		return scheduler.Recurrence{}, err
	}
	at, err := market.ParseTimeOfDay(c.Schedule.Time)
	if err != nil {
		return scheduler.Recurrence{}, err
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return scheduler.Recurrence{}, err
	}
	return scheduler.Recurrence{Weekday: day, At: at, Location: loc}, nil
}

// Instruments returns the basket with the default venue filled in.
func (c *Config) Instruments() []market.Instrument {
	out := make([]market.Instrument, len(c.Strategy.Instruments))
	for i, inst := range c.Strategy.Instruments {
		if inst.Venue == "" {
			inst.Venue = market.VenueKRX
		}
		out[i] = inst
	}
	return out
}

// Timeout is the per request broker timeout, zero for the client default.
func (c *Config) Timeout() time.Duration {
	d, _ := parseDuration(c.Broker.Timeout)
	return d
}

// PollInterval is the scheduler poll, zero for the scheduler default.
func (c *Config) PollInterval() time.Duration {
	d, _ := parseDuration(c.Schedule.PollInterval)
	return d
}

// BacktestRange resolves the backtest dates, defaulting to the 365 days
// ending at now.
func (c *Config) BacktestRange(now time.Time) (start, end time.Time, err error) {
	end = market.DayOf(now)
	if c.Backtest.End != "" {
		if end, err = market.ParseDate(c.Backtest.End); err != nil {
			return start, end, invalid("backtest.end", "must be YYYYMMDD")
		}
	}
	start = end.AddDate(0, 0, -365)
	if c.Backtest.Start != "" {
		if start, err = market.ParseDate(c.Backtest.Start); err != nil {
			return start, end, invalid("backtest.start", "must be YYYYMMDD")
		}
	}
	if end.Before(start) {
		err = invalid("backtest.end", "is before backtest.start")
	}
	return
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Mode:       "paper",
			TokenCache: "./token.json",
			Timeout:    "30s",
		},
		Strategy: StrategyConfig{
			Instruments: []market.Instrument{
				market.NewInstrument("379800"), // KODEX US S&P500
				market.NewInstrument("379810"), // KODEX US Nasdaq100
				market.NewInstrument("329750"), // TIGER US Dollar Short-Term Bond Active
			},
			WeeklyBudget: 400_000,
		},
		Schedule: ScheduleConfig{
			Weekday:      "tuesday",
			Time:         "10:00",
			Timezone:     market.SeoulTZ,
			PollInterval: "1s",
		},
		Market: MarketConfig{
			Open:     "09:00",
			Close:    "15:30",
			Timezone: market.SeoulTZ,
		},
		Backtest: BacktestConfig{
			InitialBalance: 10_000_000,
			WeeklyBudget:   250_000,
			BuyWeekday:     "monday",
			RiskFreeRate:   0.03,
		},
		Journal: JournalConfig{
			Type: "csv",
			Dir:  "./journal",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "./logs",
		},
	}
}
