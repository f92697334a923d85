package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/denismitr/tern/v4"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()

	out := env.Stdout.(*bytes.Buffer)
	out.Reset()

	c, err := New("test")
	require.NoError(t, err)
	require.NoError(t, c.Parse(args))

	err = c.Execute(context.Background(), env)

	return out.String(), err
}

func newEnv(t *testing.T) *Env {
	t.Helper()

	now := time.Date(2020, 8, 8, 14, 32, 47, 0, time.UTC)

	return &Env{
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		FS:     memoryfs.New(),
		Getenv: getenv(nil),
		Now:    func() time.Time { return now },
	}
}

func TestCommandsRunWithoutDeadlineByDefault(t *testing.T) {
	c, err := New("test")
	require.NoError(t, err)
	require.NoError(t, c.Parse([]string{"migrate", "up"}))
	assert.Equal(t, time.Duration(0), c.Timeout)

	c, err = New("test")
	require.NoError(t, err)
	require.NoError(t, c.Parse([]string{"--timeout", "30m", "migrate", "up"}))
	assert.Equal(t, 30*time.Minute, c.Timeout)
}

func TestInit(t *testing.T) {
	env := newEnv(t)

	out, err := run(t, env, "--config", "/work/tern.yaml", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created /work/tern.yaml")

	b, err := vfs.ReadFile(env.FS, "/work/tern.yaml")
	require.NoError(t, err)
	assert.Equal(t, configFileStub, string(b))

	_, err = run(t, env, "--config", "/work/tern.yaml", "init")
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	env := newEnv(t)

	t.Run("without a configuration file the default folders are used", func(t *testing.T) {
		out, err := run(t, env, "create", "add users")
		require.NoError(t, err)
		assert.Contains(t, out, "1596897167_add_users.migrate.sql")
		assert.Contains(t, out, "1596897167_add_users.rollback.sql")
	})

	t.Run("irreversible seed", func(t *testing.T) {
		_, err := run(t, env, "create", "admin user", "--seed", "--irreversible", "seeded data stays")
		require.NoError(t, err)

		b, err := vfs.ReadFile(env.FS, "seeds/1596897167_admin_user.rollback.sql")
		require.NoError(t, err)
		assert.Equal(t, "-- tern:irreversible seeded data stays\n", string(b))
	})

	t.Run("conflicting flags", func(t *testing.T) {
		_, err := run(t, env, "create", "drop legacy", "--no-rollback", "--irreversible", "gone")
		assert.Error(t, err)
	})
}

func TestMigrateCommands(t *testing.T) {
	env := newEnv(t)
	dir := t.TempDir()

	cfg := `
targets:
  primary:
    database_url: "sqlite:%%DATA_DIR%%/primary.db"
    migrations_folder: /work/primary
    seeds_folder: /work/seeds
  reports:
    database_url: "sqlite:%%DATA_DIR%%/reports.db"
    migrations_folder: /work/reports
`
	env.Getenv = getenv(map[string]string{"DATA_DIR": dir})

	require.NoError(t, env.FS.MkdirAll("/work/reports", 0o755))
	require.NoError(t, vfs.WriteFile(env.FS, "/work/tern.yaml", []byte(cfg), 0o644))

	base := []string{"--config", "/work/tern.yaml"}
	cmd := func(args ...string) []string {
		return append(append([]string{}, base...), args...)
	}

	_, err := run(t, env, cmd("--target", "primary", "create", "create users")...)
	require.NoError(t, err)

	require.NoError(t, vfs.WriteFile(env.FS, "/work/primary/1596897167_create_users.migrate.sql", []byte("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);\n"), 0o644))
	require.NoError(t, vfs.WriteFile(env.FS, "/work/primary/1596897167_create_users.rollback.sql", []byte("DROP TABLE users;\n"), 0o644))
	require.NoError(t, vfs.WriteFile(env.FS, "/work/reports/1000_create_reports.migrate.sql", []byte("CREATE TABLE reports (id INTEGER PRIMARY KEY);\n"), 0o644))

	t.Run("seeds wait for the schema", func(t *testing.T) {
		require.NoError(t, env.FS.MkdirAll("/work/seeds", 0o755))
		require.NoError(t, vfs.WriteFile(env.FS, "/work/seeds/1_admin.migrate.sql", []byte("INSERT INTO users (id, name) VALUES (1, 'admin');\n"), 0o644))

		_, err := run(t, env, cmd("--target", "primary", "seed", "run")...)
		assert.Error(t, err)
	})

	t.Run("up migrates every target", func(t *testing.T) {
		out, err := run(t, env, cmd("migrate", "up")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [primary]: migrated 1596897167_create_users")
		assert.Contains(t, out, "target [reports]: migrated 1000_create_reports")

		out, err = run(t, env, cmd("migrate", "up")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [primary]: nothing migrated")
	})

	t.Run("negative steps are rejected", func(t *testing.T) {
		_, err := run(t, env, cmd("migrate", "up", "--steps=-1")...)
		assert.True(t, errors.Is(err, tern.ErrInvalidSteps))

		_, err = run(t, env, cmd("--target", "primary", "migrate", "down", "--steps=-2")...)
		assert.True(t, errors.Is(err, tern.ErrInvalidSteps))
	})

	t.Run("seed every target skips the ones without seeds", func(t *testing.T) {
		out, err := run(t, env, cmd("seed", "status")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [reports]: no seeds configured")

		out, err = run(t, env, cmd("seed", "run")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [primary]: seeded 1_admin")
		assert.Contains(t, out, "target [reports]: no seeds configured")

		_, err = run(t, env, cmd("--target", "reports", "seed", "run")...)
		assert.True(t, errors.Is(err, tern.ErrSeedsNotConfigured))
	})

	t.Run("seed", func(t *testing.T) {
		out, err := run(t, env, cmd("--target", "primary", "seed", "run")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [primary]: nothing seeded")

		out, err = run(t, env, cmd("--target", "primary", "seed", "status")...)
		require.NoError(t, err)
		assert.Contains(t, out, "admin")
	})

	t.Run("status", func(t *testing.T) {
		out, err := run(t, env, cmd("migrate", "status")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [primary]")
		assert.Contains(t, out, "create_users")
		assert.Contains(t, out, "target [reports]")
		assert.Contains(t, out, "create_reports")
		assert.Contains(t, out, "yes")
	})

	t.Run("down needs a single target", func(t *testing.T) {
		_, err := run(t, env, cmd("migrate", "down")...)
		assert.Error(t, err)

		_, err = run(t, env, cmd("--target", "archive", "migrate", "down")...)
		assert.Error(t, err)

		out, err := run(t, env, cmd("--target", "reports", "migrate", "down")...)
		require.Error(t, err, "the reports migration has no rollback")
		assert.NotContains(t, out, "rolled back 1000")
	})

	t.Run("refresh", func(t *testing.T) {
		out, err := run(t, env, cmd("--target", "primary", "migrate", "refresh")...)
		require.NoError(t, err)
		assert.Contains(t, out, "target [primary]: rolled back 1596897167_create_users")
		assert.Contains(t, out, "target [primary]: migrated 1596897167_create_users")
	})

	t.Run("unknown configuration file", func(t *testing.T) {
		_, err := run(t, env, "--config", filepath.Join("/nowhere", "tern.yaml"), "migrate", "status")
		assert.Error(t, err)
	})
}
