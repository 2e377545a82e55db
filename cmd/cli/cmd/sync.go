package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/pipeline"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Log in, fetch accounts and operations, and store them",
	Long:    `The password is always read from the PASSWORD environment variable.`,
	Example: "PASSWORD=123456 agricole-sync sync --bank-id 18 --login 12345678901",
	RunE:    runSync,
}

func init() {
	f := syncCmd.Flags()
	f.Int(flagBankID, 0, "regional bank id (overrides BANK_ID)")
	f.String(flagLogin, "", "customer login (overrides LOGIN)")
	f.Duration(flagBudget, config.DefaultRunBudget, "time budget of the run (overrides RUN_BUDGET)")
	f.Bool(flagIgnore, false, "skip accounts held as a proxy (overrides IGNORE_MANDATORY_ACCOUNT)")
	f.Bool(flagInterest, false, "include accrued interest in balances (overrides COUNT_WITH_INTEREST)")
	f.String(flagBucket, "", "GCS bucket receiving statements (overrides STATEMENTS_BUCKET)")
	f.String(flagLocale, "", "month names of the legacy export: fr or en (overrides DATE_LOCALE)")
}

func runSync(ccmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(ccmd)
	if err != nil {
		return err
	}
	if err := validated(cfg); err != nil {
		return err
	}
	ctx := commandContext(ccmd, cfg)
	log := logger.FromContext(ctx)

	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	deps, closeDeps, err := pipeline.Build(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDeps(); err != nil {
			log.Warn().Err(err).Msg("releasing sync resources")
		}
	}()

	res, err := pipeline.Run(ctx, cfg, deps)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Generation   string `json:"generation"`
		Accounts     int    `json:"accounts"`
		Transactions int    `json:"transactions"`
		Histories    int    `json:"histories"`
		Duration     string `json:"duration"`
	}{
		Generation:   res.Generation,
		Accounts:     res.Accounts,
		Transactions: res.Transactions,
		Histories:    res.Histories,
		Duration:     res.Duration.Round(time.Millisecond).String(),
	})
}
