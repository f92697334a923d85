package source

import (
	"context"

	"github.com/denismitr/tern/v4/migration"
)

// InMemorySource serves migrations written in Go
type InMemorySource struct {
	migrations migration.Migrations
}

var _ Selector = (*InMemorySource)(nil)

func (c *InMemorySource) Select(_ context.Context, f Filter) (migration.Migrations, error) {
	result := make(migration.Migrations, len(c.migrations))
	copy(result, c.migrations)

	return filterMigrations(result, f), nil
}

func NewInMemorySource(factories ...migration.Factory) (*InMemorySource, error) {
	m, err := migration.NewMigrations(factories...)
	if err != nil {
		return nil, err
	}

	return &InMemorySource{
		migrations: m,
	}, nil
}
