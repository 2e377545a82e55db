package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionTypeNone is the only transaction type produced; categorization is left to
// downstream consumers.
const TransactionTypeNone = "none"

// Transaction represents one normalized bank operation.
// Date is the value date and drives the forged VendorID; DateOperation may equal Date when the
// source does not expose it separately.
type Transaction struct {
	VendorID        string `json:"vendorId"`        // <account number>_<YYYY-MM-DD>_<seq>
	VendorAccountID string `json:"vendorAccountId"` // account number
	AccountID       string `json:"account"`         // internal id, set by reconciliation

	Date          time.Time `json:"date"`
	DateOperation time.Time `json:"dateOperation"`
	DateImport    time.Time `json:"dateImport"`

	Label         string `json:"label"`
	OriginalLabel string `json:"originalLabel,omitempty"` // legacy exports only
	Type          string `json:"type"`

	Amount   decimal.Decimal `json:"amount"` // debits are negative
	Currency string          `json:"currency"`
}
