package sqlgateway

import (
	"context"
	"database/sql"

	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/denismitr/tern/v4/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// txConn is what effects see: the migration transaction plus logging
type txConn struct {
	tx      *sqlx.Tx
	dialect string
	lg      logger.Logger
}

var _ migration.Conn = (*txConn)(nil)

func (c *txConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	c.lg.SQL(query, args...)
	return c.tx.ExecContext(ctx, query, args...)
}

func (c *txConn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	c.lg.SQL(query, args...)
	return c.tx.QueryContext(ctx, query, args...)
}

func (c *txConn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	c.lg.SQL(query, args...)
	return c.tx.QueryRowContext(ctx, query, args...)
}

// Introspect expects the query to find exactly one object and returns
// the first column of that row
func (c *txConn) Introspect(ctx context.Context, query string, args ...interface{}) (string, error) {
	c.lg.SQL(query, args...)

	var found []string
	if err := c.tx.SelectContext(ctx, &found, query, args...); err != nil {
		return "", errors.Wrapf(err, "introspection query [%s] failed", query)
	}

	if len(found) != 1 {
		return "", errors.Wrapf(migration.ErrIntrospectionFailed, "query [%s] found %d objects", query, len(found))
	}

	return found[0], nil
}

func (c *txConn) Dialect() string {
	return c.dialect
}
