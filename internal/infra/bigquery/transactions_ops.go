package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// UpsertTransactionsWithClient merges the rows on vendor_id. A replayed run updates the
// existing rows instead of duplicating them.
func UpsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*TransactionRow) error {
	for start := 0; start < len(rows); start += mergeBatchSize {
		end := min(start+mergeBatchSize, len(rows))
		q := client.Query(fmt.Sprintf(`
			MERGE %s t
			USING UNNEST(@rows) s
			ON t.vendor_id = s.vendor_id
			WHEN MATCHED THEN UPDATE SET
				vendor_account_id = s.vendor_account_id,
				account_id = s.account_id,
				date = s.date,
				date_operation = s.date_operation,
				date_import = s.date_import,
				label = s.label,
				original_label = s.original_label,
				type = s.type,
				amount = s.amount,
				currency = s.currency
			WHEN NOT MATCHED THEN INSERT ROW
		`, ds.Table(transactionsTable)))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "rows", Value: rows[start:end]},
		}
		if err := runAndWait(ctx, q); err != nil {
			return fmt.Errorf("UpsertTransactionsWithClient: %w", err)
		}
	}
	return nil
}

// LatestTransactionDateWithClient returns the most recent value date of the account.
// ok is false when the account has no stored transaction.
func LatestTransactionDateWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, accountID string) (civil.Date, bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT MAX(date) AS latest
		FROM %s
		WHERE account_id = @account_id
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return civil.Date{}, false, fmt.Errorf("LatestTransactionDateWithClient: reading query: %w", err)
	}

	var row struct {
		Latest bigquery.NullDate `bigquery:"latest"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return civil.Date{}, false, nil
	}
	if err != nil {
		return civil.Date{}, false, fmt.Errorf("LatestTransactionDateWithClient: iterating: %w", err)
	}
	return row.Latest.Date, row.Latest.Valid, nil
}
