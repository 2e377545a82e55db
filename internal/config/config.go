package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StoreBigQuery  = "bigquery"
	StoreFirestore = "firestore"
)

const (
	// DefaultRunBudget bounds one sync run, statements download included.
	DefaultRunBudget = 3 * time.Minute

	DefaultDataset = "agricole"
)

// Config holds the settings of one sync run and of the storage backend.
type Config struct {
	Login                  string `validate:"required"`
	Password               string `validate:"required,numeric,len=6"`
	BankID                 int    `validate:"required,min=1"`
	IgnoreMandatoryAccount bool
	CountWithInterest      bool

	Store            string `validate:"required,oneof=memory bigquery firestore"`
	GCPProject       string `validate:"required_unless=Store memory"`
	BigQueryDataset  string `validate:"required_if=Store bigquery"`
	StatementsBucket string
	StatementsPrefix string

	RunBudget  time.Duration `validate:"gt=0"`
	LogLevel   string
	LogFormat  string `validate:"omitempty,oneof=console json"`
	DateLocale string `validate:"omitempty,oneof=fr en"`
}

var validate = validator.New()

// FromEnv reads the configuration from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Login:            get("LOGIN", ""),
		Password:         get("PASSWORD", ""),
		Store:            get("STORE", StoreMemory),
		GCPProject:       get("GCP_PROJECT", ""),
		BigQueryDataset:  get("BQ_DATASET", DefaultDataset),
		StatementsBucket: get("STATEMENTS_BUCKET", ""),
		StatementsPrefix: get("STATEMENTS_PREFIX", "statements"),
		LogLevel:         get("LOG_LEVEL", "info"),
		LogFormat:        get("LOG_FORMAT", "console"),
		DateLocale:       get("DATE_LOCALE", "fr"),
		RunBudget:        DefaultRunBudget,
	}

	var err error
	if v := get("BANK_ID", ""); v != "" {
		if cfg.BankID, err = strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return nil, fmt.Errorf("FromEnv: BANK_ID: %w", err)
		}
	}
	if cfg.IgnoreMandatoryAccount, err = parseBool(get("IGNORE_MANDATORY_ACCOUNT", "false")); err != nil {
		return nil, fmt.Errorf("FromEnv: IGNORE_MANDATORY_ACCOUNT: %w", err)
	}
	if cfg.CountWithInterest, err = parseBool(get("COUNT_WITH_INTEREST", "false")); err != nil {
		return nil, fmt.Errorf("FromEnv: COUNT_WITH_INTEREST: %w", err)
	}
	if v := get("RUN_BUDGET", ""); v != "" {
		if cfg.RunBudget, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("FromEnv: RUN_BUDGET: %w", err)
		}
	}
	return cfg, nil
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}

// Validate checks the configuration and reports every invalid field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var valErrs validator.ValidationErrors
		if !errors.As(err, &valErrs) {
			return fmt.Errorf("Validate: %w", err)
		}
		msgs := make([]string, 0, len(valErrs))
		for _, fe := range valErrs {
			msgs = append(msgs, strings.TrimSpace(fmt.Sprintf("%s: %s %s", fe.Field(), fe.Tag(), fe.Param())))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}
