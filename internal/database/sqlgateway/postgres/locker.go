package postgres

import (
	"context"
	"time"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/pkg/errors"
)

const DefaultLockKey = 99887766
const DefaultLockSeconds = 3

// Locker holds a session level advisory lock
type Locker struct {
	lockKey int64
	lockFor int
	noLock  bool
}

var _ database.Locker = (*Locker)(nil)

func NewLocker(lockKey int64, lockFor int, noLock bool) *Locker {
	if lockKey == 0 {
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

	lockCtx, cancel := context.WithTimeout(ctx, time.Duration(l.lockFor)*time.Second)
	defer cancel()

	if _, err := ex.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", l.lockKey); err != nil {
		if lockCtx.Err() != nil && ctx.Err() == nil {
			return errors.Wrapf(
				database.ErrLockNotAcquired,
				"[%d] Postgres advisory lock is held by another session for more than [%d] seconds",
				l.lockKey, l.lockFor,
			)
		}

		return errors.Wrapf(err, "could not obtain [%d] Postgres advisory lock", l.lockKey)
	}

	return nil
}

func (l *Locker) Unlock(ctx context.Context, ex database.Executor) error {
	if l.noLock {
		return nil
	}

	var released bool
	if err := ex.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockKey).Scan(&released); err != nil {
		return errors.Wrapf(err, "could not release [%d] Postgres advisory lock", l.lockKey)
	}

	if !released {
		return errors.Errorf("[%d] Postgres advisory lock was not held by this session", l.lockKey)
	}

	return nil
}
