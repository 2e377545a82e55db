package domain

import "github.com/shopspring/decimal"

// InstitutionLabel is stored on every account.
const InstitutionLabel = "Crédit Agricole"

// AccountType is the semantic type of a bank account.
type AccountType string

const (
	AccountTypeCheckings      AccountType = "Checkings"
	AccountTypeSavings        AccountType = "Savings"
	AccountTypeCreditCard     AccountType = "CreditCard"
	AccountTypeMarket         AccountType = "Market"
	AccountTypePEA            AccountType = "PEA"
	AccountTypeLifeInsurance  AccountType = "LifeInsurance"
	AccountTypeConsumerCredit AccountType = "ConsumerCredit"
	AccountTypeUnknown        AccountType = "Unknown"
)

// abbrToAccountType maps the portal's product abbreviations to account types.
// To complete when more labels are observed.
var abbrToAccountType = map[string]AccountType{
	"CCHQ":       AccountTypeCheckings,
	"LIV A":      AccountTypeSavings,
	"LDD":        AccountTypeSavings,
	"PEL":        AccountTypeSavings,
	"CAP DECOUV": AccountTypeLifeInsurance,
	"CPS":        AccountTypeMarket,
	"P. ACC.SOC": AccountTypeConsumerCredit,
}

// AccountTypeFromLabel returns the type for a product abbreviation, or AccountTypeUnknown.
func AccountTypeFromLabel(label string) AccountType {
	if t, ok := abbrToAccountType[label]; ok {
		return t
	}
	return AccountTypeUnknown
}

// Account is a bank account discovered on the portal.
type Account struct {
	ID               string           `json:"_id,omitempty"`
	InstitutionLabel string           `json:"institutionLabel"`
	Type             AccountType      `json:"type"`
	Label            string           `json:"label"`
	Number           string           `json:"number"`
	VendorID         string           `json:"vendorId"`
	Balance          *decimal.Decimal `json:"balance,omitempty"` // nil when the portal did not expose it

	// Portal holds the fields needed to address this account's operations on the portal.
	// It is never persisted.
	Portal PortalData `json:"-"`
}

// PortalData is the portal-specific addressing bag of an account.
type PortalData struct {
	// modern portal
	Category string
	Contract string
	Currency string

	// legacy portal
	OperationsLink string
}

// Stripped returns a copy of the account without its portal bag.
func (a *Account) Stripped() *Account {
	c := *a
	c.Portal = PortalData{}
	return &c
}
