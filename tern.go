package tern

import (
	"context"
	"sync"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/denismitr/tern/v4/internal/source"
	"github.com/denismitr/tern/v4/migration"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
)

const DefaultTargetName = "default"

var (
	ErrGatewayNotInitialized = errors.New("database gateway has not been initialized")
	ErrSeedsNotConfigured    = errors.New("seeds source has not been configured")
	ErrSchemaNotCurrent      = errors.New("schema has pending migrations, seeds refused")

	ErrNoChangesRequired = database.ErrNoChangesRequired
	ErrOutOfOrder        = database.ErrOutOfOrder
	ErrUnknownVersion    = database.ErrUnknownVersion
	ErrLockNotAcquired   = database.ErrLockNotAcquired
)

type CloserFunc func() error

// Status of one migration or seed on the target
type Status = database.Status

type sourceFactory func(m *Migrator) (source.Selector, error)

// Migrator runs migrations and seeds against a single target database.
// Calls on the same migrator are serialized.
type Migrator struct {
	mu sync.Mutex

	target string
	lg     logger.Logger
	fs     vfs.FileSystem
	clock  *database.Clock

	conn *connection

	migrationsFactory sourceFactory
	seedsFactory      sourceFactory

	selector source.Selector
	seeder   source.Selector

	schema *sqlgateway.SQLGateway
	seeds  *sqlgateway.SQLGateway
}

// NewMigrator creates a migrator using option callbacks to customize
// the newly created configurator, when no custom options
// are required a number of defaults will be applied
func NewMigrator(opts ...OptionFunc) (*Migrator, CloserFunc, error) {
	m := new(Migrator)
	m.target = DefaultTargetName
	m.lg = &logger.NullLogger{}

	for _, oFunc := range opts {
		if err := oFunc(m); err != nil {
			return nil, nil, err
		}
	}

	if m.conn == nil {
		return nil, nil, ErrGatewayNotInitialized
	}

	if sl, ok := m.lg.(*logger.SlogLogger); ok {
		m.lg = sl.WithTarget(m.target)
	}

	if m.fs == nil {
		m.fs = osfs.New()
	}

	if m.clock == nil {
		m.clock = database.NewClock(nil)
	}

	// Default selector implementation
	if m.migrationsFactory == nil {
		m.migrationsFactory = localFolder(source.DefaultMigrationsFolder, migration.VersionFormat(""))
	}

	selector, err := m.migrationsFactory(m)
	if err != nil {
		return nil, nil, err
	}
	m.selector = selector

	if m.seedsFactory != nil {
		seeder, err := m.seedsFactory(m)
		if err != nil {
			return nil, nil, err
		}
		m.seeder = seeder
	}

	connector := sqlgateway.NewRetryingConnector(m.target, m.conn.db, m.conn.connectOpts)

	m.schema = sqlgateway.New(connector, m.conn.schemaDialect, m.conn.locker, sqlgateway.Options{
		Target:    m.target,
		Table:     m.conn.migrationsTable,
		Operation: migration.OperationMigrate,
		Clock:     m.clock,
	})
	m.schema.SetLogger(m.lg)

	m.seeds = sqlgateway.New(connector, m.conn.seedsDialect, m.conn.locker, sqlgateway.Options{
		Target:    m.target,
		Table:     m.conn.seedsTable,
		Operation: migration.OperationSeed,
		Clock:     m.clock,
	})
	m.seeds.SetLogger(m.lg)

	closer := func() error {
		if err := connector.Close(); err != nil {
			m.lg.Error(err)
			return err
		}

		return nil
	}

	return m, closer, nil
}

// Target returns the name the migrator was bound under
func (m *Migrator) Target() string {
	return m.target
}

// Migrate the migrations using action configurator callbacks to customize
// the process of migration
func (m *Migrator) Migrate(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	act := newAction(cfs)

	r, err := source.Load(ctx, m.selector)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	migrated, err := m.schema.Migrate(ctx, r, act.migratePlan())
	if err != nil {
		if !errors.Is(err, ErrNoChangesRequired) {
			m.lg.Error(err)
		}

		return migrated, err
	}

	return migrated, nil
}

// Rollback the migrations using action configurator callbacks
// to customize the rollback process, by default only the latest
// applied migration is rolled back
func (m *Migrator) Rollback(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	act := newAction(cfs)

	r, err := source.Load(ctx, m.selector)
	if err != nil {
		m.lg.Error(err)
		return nil, errors.Wrap(err, "could not rollback migrations")
	}

	executed, err := m.schema.Rollback(ctx, r, act.rollbackPlan())
	if err != nil {
		if !errors.Is(err, ErrNoChangesRequired) {
			m.lg.Error(err)
		}

		return executed, err
	}

	return executed, nil
}

// Refresh first rollbacks the migrations and then migrates them again
// uses the action configurator callbacks to customize the process
func (m *Migrator) Refresh(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, migration.Migrations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	act := newAction(cfs)

	r, err := source.Load(ctx, m.selector)
	if err != nil {
		m.lg.Error(err)
		return nil, nil, err
	}

	rolledBack, migrated, err := m.schema.Refresh(ctx, r, act.rollbackPlan())
	if err != nil {
		if !errors.Is(err, ErrNoChangesRequired) {
			m.lg.Error(err)
		}

		return rolledBack, migrated, err
	}

	return rolledBack, migrated, nil
}

// Status lists every known migration and whether it is applied
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := source.Load(ctx, m.selector)
	if err != nil {
		return nil, err
	}

	return m.schema.Status(ctx, r)
}

// Seed applies pending seeds. Seeds never run as part of Migrate and are
// refused while the schema itself has pending migrations.
func (m *Migrator) Seed(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seeder == nil {
		return nil, ErrSeedsNotConfigured
	}

	if err := m.ensureSchemaIsCurrent(ctx); err != nil {
		return nil, err
	}

	r, err := source.Load(ctx, m.seeder)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	act := newAction(cfs)

	seeded, err := m.seeds.Migrate(ctx, r, act.migratePlan())
	if err != nil {
		if !errors.Is(err, ErrNoChangesRequired) {
			m.lg.Error(err)
		}

		return seeded, err
	}

	return seeded, nil
}

// SeedStatus lists every known seed and whether it is applied
func (m *Migrator) SeedStatus(ctx context.Context) ([]Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seeder == nil {
		return nil, ErrSeedsNotConfigured
	}

	r, err := source.Load(ctx, m.seeder)
	if err != nil {
		return nil, err
	}

	return m.seeds.Status(ctx, r)
}

// Source - returns migrator selector if it implements the full source.Source interface
func (m *Migrator) Source() source.Source {
	if s, ok := m.selector.(source.Source); ok {
		return s
	}

	return nil
}

// SeedSource - same as Source for seeds
func (m *Migrator) SeedSource() source.Source {
	if s, ok := m.seeder.(source.Source); ok {
		return s
	}

	return nil
}

func (m *Migrator) ensureSchemaIsCurrent(ctx context.Context) error {
	r, err := source.Load(ctx, m.selector)
	if err != nil {
		return err
	}

	status, err := m.schema.Status(ctx, r)
	if err != nil {
		return err
	}

	var pending int
	for i := range status {
		if !status[i].Applied {
			pending++
		}
	}

	if pending > 0 {
		return errors.Wrapf(ErrSchemaNotCurrent, "target [%s] has %d pending migrations", m.target, pending)
	}

	return nil
}
