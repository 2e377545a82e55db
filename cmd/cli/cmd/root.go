package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "agricole-sync",
	Short:         "Synchronise Crédit Agricole accounts, operations and balances",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the failure kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// Exit codes, one per failure kind reported to the host.
const (
	exitOK = iota
	exitFailure
	exitLoginFailed
	exitUserActionNeeded
	exitVendorDown
	exitUnparseable
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrLoginFailed):
		return exitLoginFailed
	case errors.Is(err, domain.ErrUserActionNeeded):
		return exitUserActionNeeded
	case errors.Is(err, domain.ErrVendorDown):
		return exitVendorDown
	case errors.Is(err, domain.ErrUnparseable):
		return exitUnparseable
	default:
		return exitFailure
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(accountsCmd)

	rootCmd.PersistentFlags().String(flagLogLevel, "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().String(flagStore, "", "storage backend: memory, bigquery or firestore (overrides STORE)")
}
