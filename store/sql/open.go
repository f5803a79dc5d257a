package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type persistenceConfig struct {
	driver      string
	server      string
	debug       bool
	pingTimeout time.Duration
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return c.pingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-content-sync"
}

type OpenOption func(*persistenceConfig)

func WithDebug(debug bool) OpenOption {
	return func(c *persistenceConfig) {
		c.debug = debug
	}
}

func WithPingTimeout(timeout time.Duration) OpenOption {
	return func(c *persistenceConfig) {
		if timeout > 0 {
			c.pingTimeout = timeout
		}
	}
}

// ParseDSN picks the driver for dsn. Postgres URLs use lib/pq; "sqlite://",
// "file:" and *.db paths use sqlite.
func ParseDSN(dsn string) (driver string, server string, err error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("sqlstore: dsn is required")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return DriverSQLite, dsn[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "file:"), lower == ":memory:",
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return DriverSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("sqlstore: cannot infer driver from dsn %q", dsn)
	}
}

// Open connects to dsn, applies the embedded migrations for its dialect and
// returns the persistence client.
func Open(ctx context.Context, dsn string, opts ...OpenOption) (*persistence.Client, error) {
	driver, server, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg := persistenceConfig{driver: driver, server: server, pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	sqlDB, err := sql.Open(driver, server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	var dialect schema.Dialect = pgdialect.New()
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		dialect = sqlitedialect.New()
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	target := migrations.DialectForDriver(driver)
	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(target))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}
