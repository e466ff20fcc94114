package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables holding broker secrets. Paper trading uses the
// KIS_PAPER_ prefixed set.
const (
	EnvAppKey         = "KIS_APP_KEY"
	EnvAppSecret      = "KIS_APP_SECRET"
	EnvAccountNo      = "KIS_ACCOUNT_NO"
	EnvPaperAppKey    = "KIS_PAPER_APP_KEY"
	EnvPaperAppSecret = "KIS_PAPER_APP_SECRET"
	EnvPaperAccountNo = "KIS_PAPER_ACCOUNT_NO"
)

// Credentials are the broker app key pair and account number.
type Credentials struct {
	AppKey    string
	AppSecret string
	AccountNo string
}

// LoadEnv reads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are kept.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// CredentialsFromEnv returns the credentials for mode ("paper" or "real").
func CredentialsFromEnv(mode string) (Credentials, error) {
	keys := [3]string{EnvAppKey, EnvAppSecret, EnvAccountNo}
	if mode == "paper" {
		keys = [3]string{EnvPaperAppKey, EnvPaperAppSecret, EnvPaperAccountNo}
	}

	var vals [3]string
	for i, k := range keys {
		vals[i] = os.Getenv(k)
		if vals[i] == "" {
			return Credentials{}, invalid(k, "is not set")
		}
	}
	return Credentials{AppKey: vals[0], AppSecret: vals[1], AccountNo: vals[2]}, nil
}
