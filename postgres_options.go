package tern

import (
	"database/sql"
	"time"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway/postgres"
	"github.com/jmoiron/sqlx"
)

type PostgresOptions struct {
	database.CommonOptions
	LockKey int64
	LockFor int
	NoLock  bool
}

type PostgresOptionFunc func(*PostgresOptions, *sqlgateway.ConnectOptions)

// UsePostgres binds the migrator to a PostgreSQL database opened with any
// database/sql driver, pgx included
func UsePostgres(db *sql.DB, options ...PostgresOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		pgOpts := &PostgresOptions{
			LockFor:       postgres.DefaultLockSeconds,
			LockKey:       postgres.DefaultLockKey,
			CommonOptions: commonOptions(),
		}

		connectOpts := sqlgateway.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(pgOpts, connectOpts)
		}

		if err := validateTables(pgOpts.CommonOptions); err != nil {
			return err
		}

		m.conn = &connection{
			db:              sqlx.NewDb(db, "postgres"),
			connectOpts:     connectOpts,
			locker:          postgres.NewLocker(pgOpts.LockKey, pgOpts.LockFor, pgOpts.NoLock),
			schemaDialect:   postgres.NewDialect(pgOpts.MigrationsTable),
			seedsDialect:    postgres.NewDialect(pgOpts.SeedsTable),
			migrationsTable: pgOpts.MigrationsTable,
			seedsTable:      pgOpts.SeedsTable,
		}

		return nil
	}
}

func WithPostgresNoLock() PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.NoLock = true
	}
}

func WithPostgresLockKey(key int64) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.LockKey = key
	}
}

func WithPostgresLockFor(lockFor int) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.LockFor = lockFor
	}
}

func WithPostgresMigrationTable(migrationTable string) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.MigrationsTable = migrationTable
	}
}

func WithPostgresSeedsTable(seedsTable string) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.SeedsTable = seedsTable
	}
}

func WithPostgresConnectionTimeout(timeout time.Duration) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithPostgresMaxConnectionAttempts(attempts int) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}
