package database

import (
	"sort"
	"time"

	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
)

var ErrNoChangesRequired = errors.New("no changes to the database required")
var ErrOutOfOrder = errors.New("pending migration is older than the last applied one")
var ErrUnknownVersion = errors.New("version is not in the registry")
var ErrLockNotAcquired = errors.New("could not acquire migration lock")

const (
	DefaultMigrationsTable = "migrations"
	DefaultSeedsTable      = "seeds"
)

type CommonOptions struct {
	MigrationsTable string
	SeedsTable      string
}

// IrreversibleHandler decides what happens when rollback reaches an
// irreversible migration: a nil error leaves the ledger entry untouched and
// moves on, any other error aborts the batch
type IrreversibleHandler func(*migration.IrreversibleOperationError) error

type Plan struct {
	// Steps limits the number of migrations, 0 means no limit
	Steps int
	// To limits migrate to versions lower or equal, 0 means no limit
	To migration.Version

	AllowOutOfOrder bool
	OnIrreversible  IrreversibleHandler
}

// Entry is a ledger row
type Entry struct {
	Version   migration.Version `db:"version"`
	Name      string            `db:"name"`
	AppliedAt time.Time         `db:"applied_at"`
}

type Entries []Entry

// SortByAppliedAt orders entries the way they were applied, ties are
// broken by version
func (e Entries) SortByAppliedAt() {
	sort.SliceStable(e, func(i, j int) bool {
		if e[i].AppliedAt.Equal(e[j].AppliedAt) {
			return e[i].Version < e[j].Version
		}
		return e[i].AppliedAt.Before(e[j].AppliedAt)
	})
}

func (e Entries) Versions() []migration.Version {
	result := make([]migration.Version, 0, len(e))
	for i := range e {
		result = append(result, e[i].Version)
	}
	return result
}

func (e Entries) index() map[migration.Version]Entry {
	result := make(map[migration.Version]Entry, len(e))
	for i := range e {
		result[e[i].Version] = e[i]
	}
	return result
}

// Status of one registry entry against the ledger
type Status struct {
	Version   migration.Version
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Reconcile makes sure every ledger row is known to the registry under the
// same name, anything else needs a human
func Reconcile(ledger string, r *migration.Registry, entries Entries) error {
	for _, entry := range entries {
		m, ok := r.Find(entry.Version)
		if !ok {
			return &migration.LedgerCorruptionError{
				Ledger:  ledger,
				Version: entry.Version,
				Name:    entry.Name,
				Reason:  "applied version is missing from the registry",
			}
		}

		if m.Name != entry.Name {
			return &migration.LedgerCorruptionError{
				Ledger:  ledger,
				Version: entry.Version,
				Name:    entry.Name,
				Reason:  "registry knows this version as [" + m.Name + "]",
			}
		}
	}

	return nil
}

// ScheduleForMigration returns the pending migrations in ascending version order
func ScheduleForMigration(r *migration.Registry, entries Entries, p Plan) (migration.Migrations, error) {
	if p.To != 0 {
		if _, ok := r.Find(p.To); !ok {
			return nil, errors.Wrapf(ErrUnknownVersion, "target version %d", p.To)
		}
	}

	applied := entries.index()

	var highest migration.Version
	for v := range applied {
		if v > highest {
			highest = v
		}
	}

	var scheduled migration.Migrations
	for _, m := range r.Migrations() {
		if _, ok := applied[m.Version]; ok {
			continue
		}

		if p.To != 0 && m.Version > p.To {
			break
		}

		if p.Steps != 0 && len(scheduled) >= p.Steps {
			break
		}

		if m.Version < highest && !p.AllowOutOfOrder {
			return nil, errors.Wrapf(
				ErrOutOfOrder,
				"migration %d [%s] is pending but %d is already applied",
				m.Version, m.Name, highest,
			)
		}

		scheduled = append(scheduled, m)
	}

	return scheduled, nil
}

// ScheduleForRollback returns the most recently applied entries,
// latest first
func ScheduleForRollback(entries Entries, p Plan) Entries {
	sorted := make(Entries, len(entries))
	copy(sorted, entries)
	sorted.SortByAppliedAt()

	var scheduled Entries
	for i := len(sorted) - 1; i >= 0; i-- {
		if p.Steps != 0 && len(scheduled) >= p.Steps {
			break
		}

		scheduled = append(scheduled, sorted[i])
	}

	return scheduled
}

func BuildStatus(r *migration.Registry, entries Entries) []Status {
	applied := entries.index()

	result := make([]Status, 0, r.Len())
	for _, m := range r.Migrations() {
		s := Status{Version: m.Version, Name: m.Name}
		if entry, ok := applied[m.Version]; ok {
			appliedAt := entry.AppliedAt
			s.Applied = true
			s.AppliedAt = &appliedAt
		}

		result = append(result, s)
	}

	return result
}
