package postgres

import (
	"testing"
	"time"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

func TestDialect(t *testing.T) {
	d := NewDialect("migrations")
	at := time.Date(2020, 8, 8, 14, 0, 0, 0, time.UTC)

	q, args := d.InsertQuery(database.Entry{Version: 1596897167, Name: "Create foo table", AppliedAt: at})

	assert.Equal(
		t,
		"INSERT INTO migrations (version, name, applied_at) VALUES ($1, $2, $3);",
		sqlx.Rebind(sqlx.DOLLAR, q),
	)
	assert.Equal(t, []interface{}{int64(1596897167), "Create foo table", at}, args)
	assert.Contains(t, d.InitQuery(), "applied_at TIMESTAMPTZ NOT NULL")
}

func TestNewLocker(t *testing.T) {
	l := NewLocker(0, 0, false)
	assert.Equal(t, int64(DefaultLockKey), l.lockKey)
	assert.Equal(t, DefaultLockSeconds, l.lockFor)
}
