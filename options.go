package tern

import (
	"time"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/jmoiron/sqlx"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
)

type OptionFunc func(*Migrator) error

// connection is what a Use* option leaves behind for NewMigrator to
// build the gateways from
type connection struct {
	db              *sqlx.DB
	connectOpts     *sqlgateway.ConnectOptions
	locker          database.Locker
	schemaDialect   sqlgateway.Dialect
	seedsDialect    sqlgateway.Dialect
	migrationsTable string
	seedsTable      string
}

func commonOptions() database.CommonOptions {
	return database.CommonOptions{
		MigrationsTable: database.DefaultMigrationsTable,
		SeedsTable:      database.DefaultSeedsTable,
	}
}

func validateTables(opts database.CommonOptions) error {
	if opts.MigrationsTable == "" || opts.SeedsTable == "" {
		return errors.New("migrations and seeds tables must be named")
	}

	if opts.MigrationsTable == opts.SeedsTable {
		return errors.Errorf("migrations and seeds cannot share the [%s] table", opts.SeedsTable)
	}

	return nil
}

// WithTargetName names the target in logs and errors
func WithTargetName(name string) OptionFunc {
	return func(m *Migrator) error {
		if name == "" {
			return errors.New("target name cannot be empty")
		}

		m.target = name
		return nil
	}
}

// WithClock replaces the clock ledger entries are stamped with
func WithClock(now func() time.Time) OptionFunc {
	return func(m *Migrator) error {
		m.clock = database.NewClock(now)
		return nil
	}
}

// WithFileSystem replaces the OS filesystem local folder sources read from
func WithFileSystem(fs vfs.FileSystem) OptionFunc {
	return func(m *Migrator) error {
		m.fs = fs
		return nil
	}
}
