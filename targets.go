package tern

import (
	"context"
	"sort"
	"sync"

	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownTarget = errors.New("unknown target")
var ErrTargetAlreadyBound = errors.New("target is already bound")

type binding struct {
	migrator *Migrator
	closer   CloserFunc
}

// Targets keeps one migrator per named database. Bindings share nothing,
// every target has its own connection, registry and ledgers.
type Targets struct {
	mu       sync.RWMutex
	bindings map[string]binding
}

func NewTargets() *Targets {
	return &Targets{bindings: make(map[string]binding)}
}

// Bind creates a migrator for the named target
func (t *Targets) Bind(name string, opts ...OptionFunc) (*Migrator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.bindings[name]; ok {
		return nil, errors.Wrapf(ErrTargetAlreadyBound, "[%s]", name)
	}

	m, closer, err := NewMigrator(append(opts, WithTargetName(name))...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not bind target [%s]", name)
	}

	t.bindings[name] = binding{migrator: m, closer: closer}

	return m, nil
}

func (t *Targets) Get(name string) (*Migrator, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.bindings[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTarget, "[%s]", name)
	}

	return b.migrator, nil
}

func (t *Targets) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.bindings))
	for name := range t.bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// MigrateAll migrates every bound target concurrently. A failing target
// does not interrupt the others, the first failure is returned once all
// of them are done. Targets with nothing to migrate are not an error.
func (t *Targets) MigrateAll(ctx context.Context, cfs ...ActionConfigurator) (map[string]migration.Migrations, error) {
	names := t.Names()

	var mu sync.Mutex
	result := make(map[string]migration.Migrations, len(names))

	var g errgroup.Group
	for _, name := range names {
		name := name
		m, err := t.Get(name)
		if err != nil {
			return nil, err
		}

		g.Go(func() error {
			migrated, err := m.Migrate(ctx, cfs...)

			mu.Lock()
			result[name] = migrated
			mu.Unlock()

			if err != nil && !errors.Is(err, ErrNoChangesRequired) {
				return errors.Wrapf(err, "target [%s]", name)
			}

			return nil
		})
	}

	err := g.Wait()

	return result, err
}

func (t *Targets) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for name, b := range t.bindings {
		if err := b.closer(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "could not close target [%s]", name)
		}
		delete(t.bindings, name)
	}

	return firstErr
}
