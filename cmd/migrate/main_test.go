package main

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.version, m[1])
			assert.Equal(t, tt.name, m[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql":    {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"0001_a.sql":    {Data: []byte("SELECT 1;")},
		"README.md":     {Data: []byte("notes")},
		"0003_c.sql.bk": {Data: []byte("ignored")},
	}

	got, err := readMigrations(logger.Nop(context.Background()), fsys, "p", "d")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, 2, got[1].Version)
	assert.Equal(t, "CREATE TABLE `p.d.b` (x INT64);", got[1].SQL)

	// Checksums ignore the substituted project and dataset.
	again, err := readMigrations(logger.Nop(context.Background()), fsys, "other", "other")
	require.NoError(t, err)
	assert.Equal(t, got[1].Checksum, again[1].Checksum)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 2;")},
	}
	_, err := readMigrations(logger.Nop(context.Background()), fsys, "p", "d")
	assert.ErrorContains(t, err, "version 0001")
}

func TestPending(t *testing.T) {
	all := []Migration{
		{Version: 1, Filename: "0001_a.sql", Checksum: "aaa"},
		{Version: 2, Filename: "0002_b.sql", Checksum: "bbb"},
	}

	todo, err := pending(all, []AppliedMigration{{Version: 1, Checksum: "aaa"}})
	require.NoError(t, err)
	require.Len(t, todo, 1)
	assert.Equal(t, 2, todo[0].Version)

	_, err = pending(all, []AppliedMigration{{Version: 1, Checksum: "zzz"}})
	assert.ErrorContains(t, err, "0001_a.sql")
}

func TestEmbeddedMigrations(t *testing.T) {
	fsys, err := fs.Sub(migrations.BigQuery, "bigquery")
	require.NoError(t, err)

	got, err := readMigrations(logger.Nop(context.Background()), fsys, "p", "d")
	require.NoError(t, err)
	require.NotEmpty(t, got)

	var tables []string
	for _, m := range got {
		assert.NotContains(t, m.SQL, "{{")
		if i := strings.Index(m.SQL, "`p.d."); i >= 0 {
			rest := m.SQL[i+len("`p.d."):]
			tables = append(tables, rest[:strings.Index(rest, "`")])
		}
	}
	assert.Equal(t, []string{"schema_migrations", "accounts", "transactions", "balance_histories"}, tables)
}
