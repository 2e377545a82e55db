// Package migrations carries the schema migrations applied by cmd/migrate.
package migrations

import "embed"

// BigQuery holds the BigQuery migrations, named NNNN_name.sql.
//
//go:embed bigquery/*.sql
var BigQuery embed.FS
