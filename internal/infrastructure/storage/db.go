package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported SQL dialects.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured backend and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	driver = normalizeDriver(driver)
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if !strings.Contains(dsn, "_pragma") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			if !strings.HasPrefix(dsn, "file:") {
				dsn = "file:" + dsn
			}
			dsn += sep + "_time_format=sqlite&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := Migrate(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables when absent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	for _, stmt := range schema(normalizeDriver(driver)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return DriverPostgres
	case "sqlite", "sqlite3", "":
		return DriverSQLite
	default:
		return driver
	}
}

func placeholders(driver string) sq.PlaceholderFormat {
	if normalizeDriver(driver) == DriverPostgres {
		return sq.Dollar
	}
	return sq.Question
}

func schema(driver string) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "DATETIME"
	boolean := "INTEGER"
	if driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
		boolean = "BOOLEAN"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS article_fingerprints (
			id ` + id + `,
			title_hash TEXT NOT NULL UNIQUE,
			original_title TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS published_articles (
			id ` + id + `,
			operator_id BIGINT NOT NULL,
			site_post_id BIGINT,
			channel_message_id BIGINT,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			category_id BIGINT NOT NULL DEFAULT 0,
			published_to_site ` + boolean + ` NOT NULL,
			published_to_channel ` + boolean + ` NOT NULL,
			sources TEXT NOT NULL DEFAULT '[]',
			published_at ` + ts + ` NOT NULL,
			views BIGINT NOT NULL DEFAULT 0,
			clicks BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_published_operator ON published_articles(operator_id, published_at)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			id ` + id + `,
			operator_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			excerpt TEXT NOT NULL DEFAULT '',
			category_id BIGINT NOT NULL DEFAULT 0,
			seo_description TEXT NOT NULL DEFAULT '',
			images TEXT NOT NULL DEFAULT '[]',
			sources TEXT NOT NULL DEFAULT '[]',
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS operator_settings (
			operator_id BIGINT PRIMARY KEY,
			auto_publish_enabled ` + boolean + ` NOT NULL,
			auto_publish_interval INTEGER NOT NULL,
			auto_publish_to_site ` + boolean + ` NOT NULL,
			auto_publish_to_channel ` + boolean + ` NOT NULL,
			enabled_categories TEXT NOT NULL DEFAULT '[]',
			last_publish_time ` + ts + `
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id ` + id + `,
			operator_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL,
			details TEXT,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_operator ON audit_log(operator_id, created_at)`,
	}
}
