package cmd

import (
	"fmt"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/config"
	"github.com/rustyeddy/dca/journal"
	"github.com/rustyeddy/dca/kis"
	"github.com/rustyeddy/dca/scheduler"
	"github.com/rustyeddy/dca/sim"
)

func newKIS() (*kis.Client, error) {
	creds, err := config.CredentialsFromEnv(cfg.Broker.Mode)
	if err != nil {
		return nil, err
	}
	return kis.NewClient(kis.Options{
		Mode: kis.Mode(cfg.Broker.Mode),
		Credentials: kis.Credentials{
			AppKey:    creds.AppKey,
			AppSecret: creds.AppSecret,
			AccountNo: creds.AccountNo,
		},
		BaseURL:    cfg.Broker.BaseURL,
		TokenCache: cfg.Broker.TokenCache,
		Timeout:    cfg.Timeout(),
		Logger:     log,
	})
}

// newBroker returns the KIS client, or with dryRun a local engine holding
// cash won that quotes through KIS.
func newBroker(dryRun bool, cash int64) (broker.Broker, error) {
	client, err := newKIS()
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	if !dryRun {
		return client, nil
	}
	log.WithField("cash", cash).Warn("dry run: orders are filled locally")
	return sim.NewEngine(cash, client), nil
}

func openJournal() (journal.Journal, error) {
	path := cfg.Journal.Dir
	if cfg.Journal.Type == "sqlite" {
		path = cfg.Journal.DBPath
	}
	j, err := journal.Open(cfg.Journal.Type, path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func newTrader(dryRun bool, cash int64, force bool) (*scheduler.Trader, journal.Journal, error) {
	b, err := newBroker(dryRun, cash)
	if err != nil {
		return nil, nil, err
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, nil, err
	}
	j, err := openJournal()
	if err != nil {
		return nil, nil, err
	}
	return &scheduler.Trader{
		Broker:   b,
		Calendar: cal,
		Journal:  j,
		Log:      log,
		Force:    force,
	}, j, nil
}
