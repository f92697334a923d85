package tern

import (
	"database/sql"
	"time"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway/mysql"
	"github.com/jmoiron/sqlx"
)

type MySQLOptions struct {
	database.CommonOptions
	LockKey string
	LockFor int
	NoLock  bool
	Charset string
}

type MySQLOptionFunc func(*MySQLOptions, *sqlgateway.ConnectOptions)

// UseMySQL binds the migrator to a MySQL database. The DSN must have
// parseTime=true for the ledger timestamps to be read back.
func UseMySQL(db *sql.DB, options ...MySQLOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		mysqlOpts := &MySQLOptions{
			LockFor:       mysql.DefaultLockSeconds,
			LockKey:       mysql.DefaultLockKey,
			Charset:       mysql.DefaultCharset,
			CommonOptions: commonOptions(),
		}

		connectOpts := sqlgateway.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(mysqlOpts, connectOpts)
		}

		if err := validateTables(mysqlOpts.CommonOptions); err != nil {
			return err
		}

		m.conn = &connection{
			db:              sqlx.NewDb(db, "mysql"),
			connectOpts:     connectOpts,
			locker:          mysql.NewLocker(mysqlOpts.LockKey, mysqlOpts.LockFor, mysqlOpts.NoLock),
			schemaDialect:   mysql.NewDialect(mysqlOpts.MigrationsTable, mysqlOpts.Charset),
			seedsDialect:    mysql.NewDialect(mysqlOpts.SeedsTable, mysqlOpts.Charset),
			migrationsTable: mysqlOpts.MigrationsTable,
			seedsTable:      mysqlOpts.SeedsTable,
		}

		return nil
	}
}

func WithMySQLNoLock() MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		mysqlOpts.NoLock = true
	}
}

func WithMySQLLockKey(key string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		mysqlOpts.LockKey = key
	}
}

func WithMySQLMigrationTable(migrationTable string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		mysqlOpts.MigrationsTable = migrationTable
	}
}

func WithMySQLSeedsTable(seedsTable string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		mysqlOpts.SeedsTable = seedsTable
	}
}

func WithMySQLCharset(charset string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		mysqlOpts.Charset = charset
	}
}

func WithMySQLLockFor(lockFor int) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		mysqlOpts.LockFor = lockFor
	}
}

func WithMySQLConnectionTimeout(timeout time.Duration) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithMySQLMaxConnectionAttempts(attempts int) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}
