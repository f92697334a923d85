package mysql

import (
	"context"
	"database/sql"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/pkg/errors"
)

const DefaultLockKey = "tern_migrations"
const DefaultLockSeconds = 3

// Locker takes a named MySQL lock for the session, it is released on
// unlock or when the session ends
type Locker struct {
	lockKey string
	lockFor int
	noLock  bool
}

var _ database.Locker = (*Locker)(nil)

func NewLocker(lockKey string, lockFor int, noLock bool) *Locker {
	if lockKey == "" {
		lockKey = DefaultLockKey
	}

	if lockFor <= 0 {
		lockFor = DefaultLockSeconds
	}

	return &Locker{lockKey: lockKey, lockFor: lockFor, noLock: noLock}
}

func (l *Locker) Lock(ctx context.Context, ex database.Executor) error {
	if l.noLock {
		return nil
	}

	var acquired sql.NullInt64
	if err := ex.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.lockKey, l.lockFor).Scan(&acquired); err != nil {
		return errors.Wrapf(err, "could not obtain [%s] exclusive MySQL DB lock for [%d] seconds", l.lockKey, l.lockFor)
	}

	if !acquired.Valid || acquired.Int64 != 1 {
		return errors.Wrapf(
			database.ErrLockNotAcquired,
			"[%s] MySQL DB lock is held by another session for more than [%d] seconds",
			l.lockKey, l.lockFor,
		)
	}

	return nil
}

func (l *Locker) Unlock(ctx context.Context, ex database.Executor) error {
	if l.noLock {
		return nil
	}

	if _, err := ex.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", l.lockKey); err != nil {
		return errors.Wrapf(err, "could not release [%s] exclusive MySQL DB lock", l.lockKey)
	}

	return nil
}
