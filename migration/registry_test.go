package migration

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMigration(t *testing.T, f Factory) *Migration {
	t.Helper()
	m, err := f()
	require.NoError(t, err)
	return m
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	colA := mustMigration(t, NewFromScripts(1000, "add-col-a", []string{"ALTER TABLE t ADD COLUMN a INT"}, []string{"ALTER TABLE t DROP COLUMN a"}))
	colB := mustMigration(t, NewFromScripts(1001, "add-col-b", []string{"ALTER TABLE t ADD COLUMN b INT"}, []string{"ALTER TABLE t DROP COLUMN b"}))
	colC := mustMigration(t, NewFromScripts(1002, "add-col-c", []string{"ALTER TABLE t ADD COLUMN c INT"}, nil))

	t.Run("it sorts migrations ascending by version", func(t *testing.T) {
		r, err := NewRegistry(colC, colA, colB)
		require.NoError(t, err)

		assert.Equal(t, 3, r.Len())
		assert.Equal(t, []Version{1000, 1001, 1002}, r.Migrations().Versions())
		assert.Equal(t, Version(1002), r.Last().Version)

		m, ok := r.Find(1001)
		require.True(t, ok)
		assert.Equal(t, "add-col-b", m.Name)

		_, ok = r.Find(999)
		assert.False(t, ok)
	})

	t.Run("returned migrations cannot reorder the registry", func(t *testing.T) {
		r, err := NewRegistry(colA, colB)
		require.NoError(t, err)

		ms := r.Migrations()
		ms[0], ms[1] = ms[1], ms[0]

		assert.Equal(t, []Version{1000, 1001}, r.Migrations().Versions())
	})

	t.Run("registered migrations cannot be altered from outside", func(t *testing.T) {
		own := mustMigration(t, NewFromScripts(1003, "add-col-d", []string{"ALTER TABLE t ADD COLUMN d INT"}, nil))

		r, err := NewRegistry(colA, own)
		require.NoError(t, err)

		own.Name = "renamed"

		ms := r.Migrations()
		ms[0].Version = 42
		ms[0].Scripts[0] = "DROP TABLE t"

		found, ok := r.Find(1000)
		require.True(t, ok)
		found.Name = "hijacked"

		last := r.Last()
		last.Version = 7

		assert.Equal(t, []Version{1000, 1003}, r.Migrations().Versions())

		m, ok := r.Find(1000)
		require.True(t, ok)
		assert.Equal(t, "add-col-a", m.Name)
		assert.Equal(t, Scripts{"ALTER TABLE t ADD COLUMN a INT"}, m.Scripts)
		assert.Equal(t, "add-col-d", r.Last().Name)
	})

	t.Run("duplicate versions are rejected as a whole", func(t *testing.T) {
		clash := mustMigration(t, NewFromScripts(1001, "add-col-x", []string{"SELECT 1"}, nil))

		r, err := NewRegistry(colA, colB, clash)
		assert.Nil(t, r)

		var dupErr *DuplicateVersionError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, Version(1001), dupErr.Version)
		assert.ElementsMatch(t, []string{"add-col-b", "add-col-x"}, dupErr.Names[:])
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		clash := mustMigration(t, NewFromScripts(1005, "add-col-a", []string{"SELECT 1"}, nil))

		_, err := NewRegistry(colA, clash)

		var dupErr *DuplicateNameError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, "add-col-a", dupErr.Name)
		assert.Equal(t, [2]Version{1000, 1005}, dupErr.Versions)
	})

	t.Run("empty registry", func(t *testing.T) {
		r, err := NewRegistry()
		require.NoError(t, err)
		assert.Equal(t, 0, r.Len())
		assert.Nil(t, r.Last())
	})
}
