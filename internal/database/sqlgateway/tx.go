package sqlgateway

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrTxDeadlock = errors.New("transaction deadlock occurred")

// inTx commits when fn succeeds and rolls back on every other way out,
// panics included
func inTx(ctx context.Context, conn *sqlx.Conn, fn func(tx *sqlx.Tx) error) error {
	tx, err := conn.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "could not start transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if isDeadlock(err) {
			err = errors.Wrapf(ErrTxDeadlock, "on callback: %s", err.Error())
		}

		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(err, " : ROLLBACK : "+rbErr.Error())
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		if isDeadlock(err) {
			return errors.Wrapf(ErrTxDeadlock, "on commit: %s", err.Error())
		}

		return errors.Wrap(err, "could not commit transaction")
	}

	return nil
}

func isDeadlock(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "deadlock")
}
