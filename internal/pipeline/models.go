package pipeline

import (
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// SyncState holds the shared state across all pipeline steps.
type SyncState struct {
	Deadline time.Time

	Session  *portal.Session
	Accounts []*domain.Account
	// Fetched transactions keyed by account number.
	Transactions map[string][]*domain.Transaction

	SavedAccounts     []*domain.Account
	SavedTransactions []*domain.Transaction
	Histories         []*domain.BalanceHistory
}

// Result summarizes a finished run.
type Result struct {
	Generation   string        `json:"generation"`
	Accounts     int           `json:"accounts"`
	Transactions int           `json:"transactions"`
	Histories    int           `json:"histories"`
	Duration     time.Duration `json:"duration"`
}
