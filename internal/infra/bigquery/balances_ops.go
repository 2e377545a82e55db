package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// GetBalanceHistoryWithClient returns nil when no history is stored under the id.
func GetBalanceHistoryWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, historyID string) (*BalanceHistoryRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT history_id, account_id, year, balances, updated_ts
		FROM %s
		WHERE history_id = @history_id
		LIMIT 1
	`, ds.Table(balanceHistoriesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "history_id", Value: historyID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBalanceHistoryWithClient: reading query: %w", err)
	}

	var row BalanceHistoryRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetBalanceHistoryWithClient: iterating: %w", err)
	}
	return &row, nil
}

// UpsertBalanceHistoriesWithClient merges the rows on history_id, replacing the balances array.
func UpsertBalanceHistoriesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*BalanceHistoryRow) error {
	for _, row := range rows {
		q := client.Query(fmt.Sprintf(`
			MERGE %s t
			USING (SELECT @history_id AS history_id) s
			ON t.history_id = s.history_id
			WHEN MATCHED THEN UPDATE SET
				balances = @balances,
				updated_ts = @updated_ts
			WHEN NOT MATCHED THEN INSERT (history_id, account_id, year, balances, updated_ts)
			VALUES (@history_id, @account_id, @year, @balances, @updated_ts)
		`, ds.Table(balanceHistoriesTable)))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "history_id", Value: row.HistoryID},
			{Name: "account_id", Value: row.AccountID},
			{Name: "year", Value: row.Year},
			{Name: "balances", Value: row.Balances},
			{Name: "updated_ts", Value: row.UpdatedTS},
		}
		if err := runAndWait(ctx, q); err != nil {
			return fmt.Errorf("UpsertBalanceHistoriesWithClient: history %s: %w", row.HistoryID, err)
		}
	}
	return nil
}
