package tern

import (
	"database/sql"
	"time"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway/sqlite"
	"github.com/jmoiron/sqlx"
)

type SqliteOptions struct {
	database.CommonOptions
}

type SqliteOptionFunc func(*SqliteOptions, *sqlgateway.ConnectOptions)

// UseSqlite binds the migrator to a SQLite database, sqlite has no
// advisory locks so none are taken
func UseSqlite(db *sql.DB, options ...SqliteOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		sqliteOpts := &SqliteOptions{
			CommonOptions: commonOptions(),
		}

		connectOpts := sqlgateway.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(sqliteOpts, connectOpts)
		}

		if err := validateTables(sqliteOpts.CommonOptions); err != nil {
			return err
		}

		m.conn = &connection{
			db:              sqlx.NewDb(db, "sqlite3"),
			connectOpts:     connectOpts,
			locker:          database.NullLocker{},
			schemaDialect:   sqlite.NewDialect(sqliteOpts.MigrationsTable),
			seedsDialect:    sqlite.NewDialect(sqliteOpts.SeedsTable),
			migrationsTable: sqliteOpts.MigrationsTable,
			seedsTable:      sqliteOpts.SeedsTable,
		}

		return nil
	}
}

func WithSqliteMaxConnectionAttempts(attempts int) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithSqliteConnectionTimeout(timeout time.Duration) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithSqliteConnectionRetryStep(step time.Duration) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.RetryStep = step
	}
}

func WithSqliteMigrationTable(migrationTable string) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		sqliteOpts.MigrationsTable = migrationTable
	}
}

func WithSqliteSeedsTable(seedsTable string) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		sqliteOpts.SeedsTable = seedsTable
	}
}
