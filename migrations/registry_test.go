package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestSchemas_ReturnsPostgresAndSQLite(t *testing.T) {
	schemas, err := Schemas()
	if err != nil {
		t.Fatalf("schemas: %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}

	found := map[string]bool{}
	for _, entry := range schemas {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		found[entry.Dialect] = true
	}
	if !found[DialectPostgres] || !found[DialectSQLite] {
		t.Fatalf("expected postgres and sqlite schemas, got %v", found)
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	registered, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect+":"+label)
		return nil
	}, WithValidationTargets("sqlite3", "oracle"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(calls) != 1 || calls[0] != DialectSQLite+":"+defaultSourceLabel {
		t.Fatalf("expected single sqlite registration, got %v", calls)
	}
	if len(registered) != 1 || registered[0] != DialectSQLite {
		t.Fatalf("unexpected registered dialects %v", registered)
	}
}

func TestRegister_DefaultsToBothDialectsWithCustomLabel(t *testing.T) {
	var labels []string
	registered, err := Register(context.Background(), func(_ context.Context, _ string, label string, _ fs.FS) error {
		labels = append(labels, label)
		return nil
	}, WithSourceLabel(" content-mirror "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(registered) != 2 {
		t.Fatalf("expected both dialects, got %v", registered)
	}
	for _, label := range labels {
		if label != "content-mirror" {
			t.Fatalf("expected trimmed label, got %q", label)
		}
	}
}

func TestRegister_PropagatesCallbackError(t *testing.T) {
	_, err := Register(context.Background(), func(context.Context, string, string, fs.FS) error {
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected callback error")
	}
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected missing register function error")
	}
}

func TestDialectForDriver(t *testing.T) {
	cases := []struct {
		driver string
		want   string
	}{
		{driver: "sqlite3", want: DialectSQLite},
		{driver: "postgres", want: DialectPostgres},
		{driver: "PGX", want: DialectPostgres},
		{driver: "mysql", want: ""},
	}
	for _, tc := range cases {
		if got := DialectForDriver(tc.driver); got != tc.want {
			t.Fatalf("driver %q: expected %q, got %q", tc.driver, tc.want, got)
		}
	}
}

func TestContentSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	paths := []string{
		"data/sql/migrations/00001_content_sync_schema.up.sql",
		"data/sql/migrations/00001_content_sync_schema.down.sql",
		"data/sql/migrations/sqlite/00001_content_sync_schema.up.sql",
		"data/sql/migrations/sqlite/00001_content_sync_schema.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(FS(), migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if len(content) == 0 {
			t.Fatalf("expected %s to be non-empty", migrationPath)
		}
	}
}

func TestSQLiteContentSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-content-schema?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	sqliteMigrations, err := fs.Sub(FS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_content_sync_schema.up.sql"); err != nil {
		t.Fatalf("apply up migration: %v", err)
	}
	for _, table := range []string{"content_records", "sync_runs"} {
		if !tableExists(t, db, table) {
			t.Fatalf("expected table %s after up migration", table)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO content_records (id, collection, source_id, checksum, attributes) VALUES (?, ?, ?, ?, ?)`,
		"rec-1", "lessons", "page-1", "abc", `{"title":"Intro"}`,
	); err != nil {
		t.Fatalf("insert content record: %v", err)
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_content_sync_schema.down.sql"); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}
	if tableExists(t, db, "content_records") {
		t.Fatalf("expected content_records dropped after down migration")
	}
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	return count == 1
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
