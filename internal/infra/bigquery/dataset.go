package bigquery

import "fmt"

const (
	accountsTable         = "accounts"
	transactionsTable     = "transactions"
	balanceHistoriesTable = "balance_histories"

	// mergeBatchSize bounds the number of rows bound to a single MERGE parameter.
	mergeBatchSize = 500
)

// Dataset names the project and dataset holding the sync tables.
type Dataset struct {
	Project string
	Name    string
}

// Table returns the backquoted fully qualified table name.
func (d Dataset) Table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.Project, d.Name, name)
}
