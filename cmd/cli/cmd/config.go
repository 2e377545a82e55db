package cmd

import (
	"context"
	"fmt"

	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/spf13/cobra"
)

const (
	flagLogLevel = "log-level"
	flagStore    = "store"
	flagBankID   = "bank-id"
	flagLogin    = "login"
	flagBudget   = "budget"
	flagIgnore   = "ignore-mandatory"
	flagInterest = "count-with-interest"
	flagBucket   = "statements-bucket"
	flagLocale   = "date-locale"
	flagDiscover = "discover"
	flagOutput   = "output"
	flagAsJSON   = "json"
)

// loadConfig reads the environment then applies the flags the user actually set.
func loadConfig(ccmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	flags := ccmd.Flags()
	if flags.Changed(flagLogLevel) {
		cfg.LogLevel, _ = flags.GetString(flagLogLevel)
	}
	if flags.Changed(flagStore) {
		cfg.Store, _ = flags.GetString(flagStore)
	}
	if flags.Lookup(flagBankID) != nil && flags.Changed(flagBankID) {
		cfg.BankID, _ = flags.GetInt(flagBankID)
	}
	if flags.Lookup(flagLogin) != nil && flags.Changed(flagLogin) {
		cfg.Login, _ = flags.GetString(flagLogin)
	}
	if flags.Lookup(flagBudget) != nil && flags.Changed(flagBudget) {
		cfg.RunBudget, _ = flags.GetDuration(flagBudget)
	}
	if flags.Lookup(flagIgnore) != nil && flags.Changed(flagIgnore) {
		cfg.IgnoreMandatoryAccount, _ = flags.GetBool(flagIgnore)
	}
	if flags.Lookup(flagInterest) != nil && flags.Changed(flagInterest) {
		cfg.CountWithInterest, _ = flags.GetBool(flagInterest)
	}
	if flags.Lookup(flagBucket) != nil && flags.Changed(flagBucket) {
		cfg.StatementsBucket, _ = flags.GetString(flagBucket)
	}
	if flags.Lookup(flagLocale) != nil && flags.Changed(flagLocale) {
		cfg.DateLocale, _ = flags.GetString(flagLocale)
	}
	return cfg, nil
}

// commandContext carries a logger at the configured level.
func commandContext(ccmd *cobra.Command, cfg *config.Config) context.Context {
	ctx := ccmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, logger.NewWithConfig(cfg.LogLevel, cfg.LogFormat))
}

func validated(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	return nil
}
