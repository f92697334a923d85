package source

import (
	"context"
	"strings"
	"unicode"

	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp in migration filename")
var ErrNotAMigrationFile = errors.New("not a migration file")
var ErrTooManyFilesForKey = errors.New("too many files for single migration key")
var ErrMissingMigrateFile = errors.New("migrate file is missing")
var ErrAlreadyExists = errors.New("migration already exists")

type Filter struct {
	Versions []migration.Version
}

type Selector interface {
	Select(ctx context.Context, f Filter) (migration.Migrations, error)
}

type CreateOptions struct {
	// NoRollback skips the rollback file
	NoRollback bool
	// IrreversibleNote marks the rollback file as irreversible
	IrreversibleNote string
}

type Source interface {
	Selector

	IsValid() bool
	AlreadyExists(v migration.Version, name string) bool
	Create(v migration.Version, name string, opts CreateOptions) ([]string, error)
}

// Load reads every definition of the selector into a registry, duplicates
// are rejected here before anything gets executed
func Load(ctx context.Context, s Selector) (*migration.Registry, error) {
	ms, err := s.Select(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	return migration.NewRegistry(ms...)
}

func filterMigrations(ms migration.Migrations, f Filter) migration.Migrations {
	if len(f.Versions) == 0 {
		return ms
	}

	var result migration.Migrations
	for _, m := range ms {
		if migration.InVersions(m.Version, f.Versions) {
			result = append(result, m)
		}
	}

	return result
}

func ucFirst(s string) string {
	r := []rune(s)

	if len(r) == 0 {
		return ""
	}

	f := string(unicode.ToUpper(r[0]))

	return f + string(r[1:])
}

func keyContainsOfVersions(key string, versions []migration.Version) bool {
	if len(versions) == 0 {
		return true
	}

	segments := strings.SplitN(key, "_", 2)

	for i := range versions {
		if segments[0] == versions[i].String() {
			return true
		}
	}

	return false
}
