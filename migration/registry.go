package migration

import (
	"sort"
)

// Registry is the immutable, version ordered set of migrations of one target
type Registry struct {
	migrations Migrations
	byVersion  map[Version]*Migration
}

// NewRegistry sorts the migrations by version and rejects duplicates,
// either all migrations are registered or none. The registry keeps its own
// copies, later changes to the passed migrations do not reach it.
func NewRegistry(migrations ...*Migration) (*Registry, error) {
	sorted := make(Migrations, 0, len(migrations))
	for _, m := range migrations {
		if m != nil {
			sorted = append(sorted, m.clone())
		}
	}

	sort.Stable(sorted)

	r := &Registry{
		migrations: sorted,
		byVersion:  make(map[Version]*Migration, len(sorted)),
	}

	names := make(map[string]Version, len(sorted))
	for _, m := range sorted {
		if prev, ok := r.byVersion[m.Version]; ok {
			return nil, &DuplicateVersionError{Version: m.Version, Names: [2]string{prev.Name, m.Name}}
		}

		if v, ok := names[m.Name]; ok {
			return nil, &DuplicateNameError{Name: m.Name, Versions: [2]Version{v, m.Version}}
		}

		r.byVersion[m.Version] = m
		names[m.Name] = m.Version
	}

	return r, nil
}

// Migrations returns copies of the registered migrations, callers can
// neither reorder nor alter the registry through them
func (r *Registry) Migrations() Migrations {
	result := make(Migrations, len(r.migrations))
	for i, m := range r.migrations {
		result[i] = m.clone()
	}
	return result
}

func (r *Registry) Find(v Version) (*Migration, bool) {
	m, ok := r.byVersion[v]
	if !ok {
		return nil, false
	}
	return m.clone(), true
}

func (r *Registry) Len() int {
	return len(r.migrations)
}

func (r *Registry) Last() *Migration {
	if len(r.migrations) == 0 {
		return nil
	}

	return r.migrations[len(r.migrations)-1].clone()
}

func (m *Migration) clone() *Migration {
	c := *m
	c.Scripts = append(Scripts(nil), m.Scripts...)
	c.Rollbacks = append(Scripts(nil), m.Rollbacks...)
	return &c
}
