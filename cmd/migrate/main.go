package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/migrations"
	"google.golang.org/api/iterator"
)

// Migration is one schema migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	projectID = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT env)")
	datasetID = flag.String("dataset", config.DefaultDataset, "BigQuery dataset ID")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	dir       = flag.String("migrations", "", "Read migrations from this directory instead of the embedded set")
	dryRun    = flag.Bool("dry-run", false, "List pending migrations without applying them")
)

func main() {
	flag.Parse()
	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("-project flag is required")
	}

	var fsys fs.FS
	var err error
	if *dir != "" {
		fsys = os.DirFS(*dir)
	} else if fsys, err = fs.Sub(migrations.BigQuery, "bigquery"); err != nil {
		log.Fatal().Err(err).Msg("Failed to open embedded migrations")
	}

	ctx := logger.WithContext(context.Background(), log)
	if err := run(ctx, fsys); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(ctx context.Context, fsys fs.FS) error {
	log := logger.FromContext(ctx)

	all, err := readMigrations(ctx, fsys, *projectID, *datasetID)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	log.Info().Int("count", len(all)).Msg("Found migration files")

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		return fmt.Errorf("run: creating BigQuery client: %w", err)
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		return fmt.Errorf("run: ensuring schema_migrations: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, client)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	todo, err := pending(all, applied)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply, dataset is up to date")
		return nil
	}

	for _, m := range todo {
		mlog := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		if *dryRun {
			mlog.Info().Msg("Pending")
			continue
		}

		mlog.Info().Msg("Applying")
		if err := execute(ctx, client.Query(m.SQL)); err != nil {
			return fmt.Errorf("run: executing %s: %w", m.Filename, err)
		}
		if err := recordMigration(ctx, client, m); err != nil {
			return fmt.Errorf("run: recording %s: %w", m.Filename, err)
		}
		mlog.Info().Msg("Applied")
	}
	return nil
}

// readMigrations loads every NNNN_name.sql file of fsys, sorted by version, with the
// project and dataset placeholders substituted. Checksums cover the raw file content.
func readMigrations(ctx context.Context, fsys fs.FS, project, dataset string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("readMigrations: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationPattern.FindStringSubmatch(e.Name())
		if m == nil {
			log.Warn().Str("file", e.Name()).Msg("Skipping file with invalid name")
			continue
		}
		version, _ := strconv.Atoi(m[1])
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("readMigrations: version %04d used by %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, path.Clean(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("readMigrations: reading %s: %w", e.Name(), err)
		}
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		out = append(out, Migration{
			Version:  version,
			Name:     m[2],
			Filename: e.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// pending returns the migrations not yet applied. An applied migration whose file changed
// since is an error.
func pending(all []Migration, applied []AppliedMigration) ([]Migration, error) {
	done := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	var out []Migration
	for _, m := range all {
		a, ok := done[m.Version]
		if !ok {
			out = append(out, m)
			continue
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return nil, fmt.Errorf("pending: migration %s changed after it was applied", m.Filename)
		}
	}
	return out, nil
}

func table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", *projectID, *datasetID, name)
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	return execute(ctx, client.Query(`
		CREATE TABLE IF NOT EXISTS `+table("schema_migrations")+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)`))
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client) ([]AppliedMigration, error) {
	it, err := client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + table("schema_migrations") + `
		ORDER BY version ASC`).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("getAppliedMigrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("getAppliedMigrations: iterating: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, m Migration) error {
	q := client.Query(`
		INSERT INTO ` + table("schema_migrations") + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}
	return execute(ctx, q)
}

func execute(ctx context.Context, q *bigquery.Query) error {
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
