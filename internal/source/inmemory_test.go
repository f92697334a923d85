package source

import (
	"context"
	"testing"

	"github.com/denismitr/tern/v4/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySource(t *testing.T) {
	s, err := NewInMemorySource(
		migration.New(1001, "add-col-b", migration.SQL("ALTER TABLE t ADD COLUMN b INT"), migration.NoRollback()),
		migration.New(1000, "add-col-a", migration.SQL("ALTER TABLE t ADD COLUMN a INT"), migration.NoRollback()),
	)
	require.NoError(t, err)

	all, err := s.Select(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := s.Select(context.Background(), Filter{Versions: []migration.Version{1001}})
	require.NoError(t, err)
	assert.Equal(t, []migration.Version{1001}, only.Versions())

	r, err := Load(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []migration.Version{1000, 1001}, r.Migrations().Versions())

	_, err = NewInMemorySource(migration.New(0, "broken", migration.SQL("SELECT 1"), migration.NoRollback()))
	assert.Error(t, err)
}
