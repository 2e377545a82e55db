package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ListAccountsWithClient retrieves every stored account ordered by account number.
func ListAccountsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]*AccountRow, error) {
	query := fmt.Sprintf(`
		SELECT
			account_id,
			institution_label,
			account_type,
			label,
			account_number,
			vendor_id,
			CAST(balance AS STRING) AS balance,
			updated_ts
		FROM %s
		ORDER BY account_number
	`, ds.Table(accountsTable))

	it, err := client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsWithClient: reading query: %w", err)
	}

	var accounts []*AccountRow
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccountsWithClient: iterating: %w", err)
		}
		accounts = append(accounts, &row)
	}

	return accounts, nil
}

// UpsertAccountsWithClient merges the rows on account_id.
func UpsertAccountsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*AccountRow) error {
	for start := 0; start < len(rows); start += mergeBatchSize {
		end := min(start+mergeBatchSize, len(rows))
		q := client.Query(fmt.Sprintf(`
			MERGE %s t
			USING UNNEST(@rows) s
			ON t.account_id = s.account_id
			WHEN MATCHED THEN UPDATE SET
				institution_label = s.institution_label,
				account_type = s.account_type,
				label = s.label,
				account_number = s.account_number,
				vendor_id = s.vendor_id,
				balance = SAFE_CAST(s.balance AS NUMERIC),
				updated_ts = s.updated_ts
			WHEN NOT MATCHED THEN INSERT (
				account_id, institution_label, account_type, label,
				account_number, vendor_id, balance, updated_ts
			) VALUES (
				s.account_id, s.institution_label, s.account_type, s.label,
				s.account_number, s.vendor_id, SAFE_CAST(s.balance AS NUMERIC), s.updated_ts
			)
		`, ds.Table(accountsTable)))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "rows", Value: rows[start:end]},
		}
		if err := runAndWait(ctx, q); err != nil {
			return fmt.Errorf("UpsertAccountsWithClient: %w", err)
		}
	}
	return nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
