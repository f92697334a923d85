package database

import (
	"context"
	"database/sql"
)

// Executor is the part of a dedicated connection lockers need,
// session level locks must be taken and released on the same connection
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Locker interface {
	Lock(ctx context.Context, ex Executor) error
	Unlock(ctx context.Context, ex Executor) error
}

type NullLocker struct{}

var _ Locker = NullLocker{}

func (NullLocker) Lock(context.Context, Executor) error {
	return nil
}

func (NullLocker) Unlock(context.Context, Executor) error {
	return nil
}
