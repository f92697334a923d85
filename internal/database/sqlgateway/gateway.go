package sqlgateway

import (
	"context"
	"sort"
	"sync"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/denismitr/tern/v4/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Options struct {
	// Target names the database in errors and logs
	Target string
	// Table is the ledger table
	Table string
	// Operation is migration.OperationMigrate for schema migrations and
	// migration.OperationSeed for seeds
	Operation string
	Clock     *database.Clock
}

// SQLGateway runs migrations against one ledger of one target. Operations
// on the same gateway never overlap.
type SQLGateway struct {
	mu        sync.Mutex
	target    string
	operation string
	connector Connector
	locker    database.Locker
	dialect   Dialect
	ledger    *Ledger
	clock     *database.Clock
	lg        logger.Logger
}

func New(connector Connector, dialect Dialect, locker database.Locker, opts Options) *SQLGateway {
	if opts.Operation == "" {
		opts.Operation = migration.OperationMigrate
	}

	if opts.Table == "" {
		opts.Table = database.DefaultMigrationsTable
	}

	if opts.Clock == nil {
		opts.Clock = database.NewClock(nil)
	}

	if locker == nil {
		locker = database.NullLocker{}
	}

	lg := logger.Logger(&logger.NullLogger{})

	return &SQLGateway{
		target:    opts.Target,
		operation: opts.Operation,
		connector: connector,
		locker:    locker,
		dialect:   dialect,
		ledger:    NewLedger(opts.Table, dialect, lg),
		clock:     opts.Clock,
		lg:        lg,
	}
}

func (g *SQLGateway) SetLogger(lg logger.Logger) {
	g.lg = lg
	g.ledger.lg = lg
}

func (g *SQLGateway) Target() string {
	return g.target
}

// Migrate applies pending migrations in ascending version order, each one
// in its own transaction together with its ledger row. The first failure
// stops the batch, everything before it stays applied.
func (g *SQLGateway) Migrate(
	ctx context.Context,
	r *migration.Registry,
	p database.Plan,
) (migration.Migrations, error) {
	var migrated migration.Migrations

	f := func(conn *sqlx.Conn, entries database.Entries) error {
		scheduled, err := database.ScheduleForMigration(r, entries, p)
		if err != nil {
			return err
		}

		if len(scheduled) == 0 {
			return database.ErrNoChangesRequired
		}

		for _, m := range scheduled {
			if err := g.applyOne(ctx, conn, m); err != nil {
				return err
			}

			migrated = append(migrated, m)
		}

		return nil
	}

	if err := g.execUnderLock(ctx, r, f); err != nil {
		return migrated, err
	}

	return migrated, nil
}

// Rollback reverts the most recently applied migrations, latest first
func (g *SQLGateway) Rollback(
	ctx context.Context,
	r *migration.Registry,
	p database.Plan,
) (migration.Migrations, error) {
	var rolledBack migration.Migrations

	f := func(conn *sqlx.Conn, entries database.Entries) error {
		var err error
		rolledBack, err = g.rollbackScheduled(ctx, conn, r, entries, p)
		return err
	}

	if err := g.execUnderLock(ctx, r, f); err != nil {
		return rolledBack, err
	}

	return rolledBack, nil
}

// Refresh rolls back like Rollback does and then applies the rolled back
// migrations again, all under one lock
func (g *SQLGateway) Refresh(
	ctx context.Context,
	r *migration.Registry,
	p database.Plan,
) (migration.Migrations, migration.Migrations, error) {
	var rolledBack migration.Migrations
	var migrated migration.Migrations

	f := func(conn *sqlx.Conn, entries database.Entries) error {
		var err error
		rolledBack, err = g.rollbackScheduled(ctx, conn, r, entries, p)
		if err != nil {
			return err
		}

		again := make(migration.Migrations, len(rolledBack))
		copy(again, rolledBack)
		sort.Sort(again)

		for _, m := range again {
			if err := g.applyOne(ctx, conn, m); err != nil {
				return err
			}

			migrated = append(migrated, m)
		}

		return nil
	}

	if err := g.execUnderLock(ctx, r, f); err != nil {
		return rolledBack, migrated, err
	}

	return rolledBack, migrated, nil
}

// Status reports every registry entry together with its ledger row, if any
func (g *SQLGateway) Status(ctx context.Context, r *migration.Registry) ([]database.Status, error) {
	var result []database.Status

	f := func(_ *sqlx.Conn, entries database.Entries) error {
		result = database.BuildStatus(r, entries)
		return nil
	}

	if err := g.execUnderLock(ctx, r, f); err != nil {
		return nil, err
	}

	return result, nil
}

// ReadLedger returns the ledger rows in the order they were applied
func (g *SQLGateway) ReadLedger(ctx context.Context) (database.Entries, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	if err := g.ledger.Bootstrap(ctx, conn); err != nil {
		return nil, err
	}

	return g.ledger.Read(ctx, conn)
}

func (g *SQLGateway) ShowTables(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	var tables []string
	q := g.dialect.ShowTablesQuery()
	g.lg.SQL(q)

	if err := conn.SelectContext(ctx, &tables, q); err != nil {
		return nil, errors.Wrap(err, "could not list all tables")
	}

	return tables, nil
}

func (g *SQLGateway) DropLedgerTable(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return err
	}

	return g.ledger.Drop(ctx, conn)
}

func (g *SQLGateway) rollbackScheduled(
	ctx context.Context,
	conn *sqlx.Conn,
	r *migration.Registry,
	entries database.Entries,
	p database.Plan,
) (migration.Migrations, error) {
	scheduled := database.ScheduleForRollback(entries, p)
	if len(scheduled) == 0 {
		return nil, database.ErrNoChangesRequired
	}

	var rolledBack migration.Migrations
	for _, entry := range scheduled {
		// reconciliation guarantees every entry is in the registry
		m, _ := r.Find(entry.Version)

		reverted, err := g.revertOne(ctx, conn, m, p)
		if err != nil {
			return rolledBack, err
		}

		if reverted {
			rolledBack = append(rolledBack, m)
		}
	}

	return rolledBack, nil
}

func (g *SQLGateway) applyOne(ctx context.Context, conn *sqlx.Conn, m *migration.Migration) error {
	entry := database.Entry{Version: m.Version, Name: m.Name, AppliedAt: g.clock.Next()}

	g.lg.Debugf("%s: version %d name %s", g.operation, m.Version, m.Name)

	err := inTx(ctx, conn, func(tx *sqlx.Tx) error {
		if err := m.Migrate(ctx, g.txConn(tx)); err != nil {
			return err
		}

		return g.ledger.Record(ctx, tx, entry)
	})

	if err != nil {
		return &migration.ExecutionError{Op: g.operation, Version: m.Version, Name: m.Name, Err: err}
	}

	g.lg.Successf("%s done: version %d name %s", g.operation, m.Version, m.Name)

	return nil
}

func (g *SQLGateway) revertOne(
	ctx context.Context,
	conn *sqlx.Conn,
	m *migration.Migration,
	p database.Plan,
) (bool, error) {
	switch m.Rollback.Kind() {
	case migration.RollbackIrreversible:
		irrErr := &migration.IrreversibleOperationError{Version: m.Version, Name: m.Name, Note: m.Rollback.Note()}
		if p.OnIrreversible == nil {
			return false, irrErr
		}

		if err := p.OnIrreversible(irrErr); err != nil {
			return false, err
		}

		g.lg.Warnf("skipped %s, its ledger entry is kept", irrErr.Error())
		return false, nil
	case migration.RollbackNotDefined:
		return false, &migration.ExecutionError{
			Op:      migration.OperationRollback,
			Version: m.Version,
			Name:    m.Name,
			Err:     migration.ErrRollbackNotDefined,
		}
	}

	g.lg.Debugf("rolling back: version %d name %s", m.Version, m.Name)

	err := inTx(ctx, conn, func(tx *sqlx.Tx) error {
		if err := m.Rollback.Effect()(ctx, g.txConn(tx)); err != nil {
			return err
		}

		return g.ledger.Erase(ctx, tx, m.Version)
	})

	if err != nil {
		return false, &migration.ExecutionError{
			Op:      migration.OperationRollback,
			Version: m.Version,
			Name:    m.Name,
			Err:     err,
		}
	}

	g.lg.Successf("rolled back: version %d name %s", m.Version, m.Name)

	return true, nil
}

func (g *SQLGateway) execUnderLock(
	ctx context.Context,
	r *migration.Registry,
	f func(*sqlx.Conn, database.Entries) error,
) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return err
	}

	if err := g.locker.Lock(ctx, conn); err != nil {
		return errors.Wrapf(err, "could not lock target [%s]", g.target)
	}

	defer func() {
		unlockErr := g.locker.Unlock(context.WithoutCancel(ctx), conn)
		if unlockErr == nil {
			return
		}

		if err == nil {
			err = unlockErr
		} else {
			err = errors.Wrapf(err, "unlock failed as well: %v", unlockErr)
		}
	}()

	if err := g.ledger.Bootstrap(ctx, conn); err != nil {
		return err
	}

	entries, err := g.ledger.Read(ctx, conn)
	if err != nil {
		return err
	}

	if err := database.Reconcile(g.ledger.Table(), r, entries); err != nil {
		return err
	}

	g.clock.Observe(entries)

	return f(conn, entries)
}

func (g *SQLGateway) txConn(tx *sqlx.Tx) *txConn {
	return &txConn{tx: tx, dialect: g.dialect.Name(), lg: g.lg}
}
