package mysql

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// named locks are emulated on sqlite so the locker can run without a MySQL server
var held = struct {
	sync.Mutex
	keys map[string]bool
}{keys: make(map[string]bool)}

func getLock(key string, _ int64) int64 {
	held.Lock()
	defer held.Unlock()

	if held.keys[key] {
		return 0
	}

	held.keys[key] = true
	return 1
}

func releaseLock(key string) int64 {
	held.Lock()
	defer held.Unlock()

	delete(held.keys, key)
	return 1
}

func init() {
	sql.Register("sqlite3_named_locks", &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("GET_LOCK", getLock, false); err != nil {
				return err
			}
			return conn.RegisterFunc("RELEASE_LOCK", releaseLock, false)
		},
	})
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3_named_locks", filepath.Join(t.TempDir(), "locks.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func TestLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("lock and unlock", func(t *testing.T) {
		db := openDB(t)
		locker := NewLocker("foo", 5, false)

		require.NoError(t, locker.Lock(ctx, db))

		other := NewLocker("foo", 5, false)
		err := other.Lock(ctx, db)
		assert.True(t, errors.Is(err, database.ErrLockNotAcquired))

		require.NoError(t, locker.Unlock(ctx, db))
		require.NoError(t, other.Lock(ctx, db))
		require.NoError(t, other.Unlock(ctx, db))
	})

	t.Run("no lock", func(t *testing.T) {
		db := openDB(t)
		require.NoError(t, NewLocker("bar", 5, false).Lock(ctx, db))

		locker := NewLocker("bar", 5, true)
		assert.NoError(t, locker.Lock(ctx, db))
		assert.NoError(t, locker.Unlock(ctx, db))

		require.NoError(t, NewLocker("bar", 5, false).Unlock(ctx, db))
	})

	t.Run("defaults", func(t *testing.T) {
		locker := NewLocker("", 0, false)
		assert.Equal(t, DefaultLockKey, locker.lockKey)
		assert.Equal(t, DefaultLockSeconds, locker.lockFor)
	})
}

func TestDialect(t *testing.T) {
	d := NewDialect("schema_versions", "")

	assert.Equal(t, DialectName, d.Name())
	assert.Contains(t, d.InitQuery(), "CREATE TABLE IF NOT EXISTS `schema_versions`")
	assert.Contains(t, d.InitQuery(), "CHARACTER SET=utf8mb4")

	q, args := d.RemoveQuery(1596897167)
	assert.Equal(t, "DELETE FROM `schema_versions` WHERE `version` = ?;", q)
	assert.Equal(t, []interface{}{uint64(1596897167)}, args)
}
