package sqlgateway

import (
	"context"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/denismitr/tern/v4/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Ledger is the table recording which versions are applied
type Ledger struct {
	table   string
	dialect Dialect
	lg      logger.Logger
}

func NewLedger(table string, dialect Dialect, lg logger.Logger) *Ledger {
	return &Ledger{table: table, dialect: dialect, lg: lg}
}

func (l *Ledger) Table() string {
	return l.table
}

// Bootstrap creates the ledger table when it does not exist yet
func (l *Ledger) Bootstrap(ctx context.Context, conn *sqlx.Conn) error {
	q := l.dialect.InitQuery()
	l.lg.SQL(q)

	if _, err := conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not create ledger table [%s]", l.table)
	}

	return nil
}

func (l *Ledger) Read(ctx context.Context, q sqlx.QueryerContext) (database.Entries, error) {
	var entries database.Entries

	query := l.dialect.ReadQuery()
	l.lg.SQL(query)

	if err := sqlx.SelectContext(ctx, q, &entries, query); err != nil {
		return nil, errors.Wrapf(err, "could not read ledger table [%s]", l.table)
	}

	for i := range entries {
		entries[i].AppliedAt = entries[i].AppliedAt.UTC()
	}

	entries.SortByAppliedAt()

	return entries, nil
}

func (l *Ledger) Record(ctx context.Context, tx *sqlx.Tx, e database.Entry) error {
	q, args := l.dialect.InsertQuery(e)
	q = tx.Rebind(q)
	l.lg.SQL(q, args...)

	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrapf(err, "could not record version %d in ledger [%s]", e.Version, l.table)
	}

	return nil
}

func (l *Ledger) Erase(ctx context.Context, tx *sqlx.Tx, v migration.Version) error {
	q, args := l.dialect.RemoveQuery(v)
	q = tx.Rebind(q)
	l.lg.SQL(q, args...)

	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrapf(err, "could not erase version %d from ledger [%s]", v, l.table)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not count erased ledger rows")
	}

	if affected != 1 {
		return errors.Errorf("erasing version %d from ledger [%s] affected %d rows", v, l.table, affected)
	}

	return nil
}

func (l *Ledger) Drop(ctx context.Context, conn *sqlx.Conn) error {
	q := l.dialect.DropQuery()
	l.lg.SQL(q)

	if _, err := conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not drop ledger table [%s]", l.table)
	}

	return nil
}
