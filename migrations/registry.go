package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	defaultSourceLabel = "go-content-sync"

	rootPath = "data/sql/migrations"
)

// Schema is one dialect's migration tree.
type Schema struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// RegisterFunc hands a dialect's schema to a persistence client.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type registration struct {
	label   string
	targets map[string]bool
}

type Option func(*registration)

func WithSourceLabel(label string) Option {
	return func(r *registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.label = trimmed
		}
	}
}

// WithValidationTargets limits registration to the named dialects. Unknown
// or blank names are ignored.
func WithValidationTargets(targets ...string) Option {
	return func(r *registration) {
		next := map[string]bool{}
		for _, target := range targets {
			if dialect := normalizeDialect(target); dialect != "" {
				next[dialect] = true
			}
		}
		if len(next) > 0 {
			r.targets = next
		}
	}
}

// Schemas returns the postgres tree and its sqlite alternative. Both must
// carry at least one up migration.
func Schemas() ([]Schema, error) {
	base, err := fs.Sub(FS(), rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite schema: %w", err)
	}
	schemas := []Schema{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/sqlite", FS: sqliteFS},
	}
	for _, schema := range schemas {
		matches, err := fs.Glob(schema.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", schema.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s schema %q has no *.up.sql files", schema.Dialect, schema.Path)
		}
	}
	return schemas, nil
}

// DialectForDriver maps a database/sql driver name onto a migration dialect.
func DialectForDriver(driver string) string {
	return normalizeDialect(driver)
}

// Register calls registerFn once per schema whose dialect is targeted. The
// default targets both dialects.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) ([]string, error) {
	if registerFn == nil {
		return nil, fmt.Errorf("migrations: register function is required")
	}
	reg := registration{
		label:   defaultSourceLabel,
		targets: map[string]bool{DialectPostgres: true, DialectSQLite: true},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	schemas, err := Schemas()
	if err != nil {
		return nil, err
	}
	registered := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		if !reg.targets[schema.Dialect] {
			continue
		}
		if err := registerFn(ctx, schema.Dialect, reg.label, schema.FS); err != nil {
			return registered, fmt.Errorf("migrations: register %s (%s): %w", schema.Dialect, schema.Path, err)
		}
		registered = append(registered, schema.Dialect)
	}
	return registered, nil
}

func normalizeDialect(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return DialectSQLite
	case "postgres", "postgresql", "pgx":
		return DialectPostgres
	default:
		return ""
	}
}
