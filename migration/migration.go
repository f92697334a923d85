package migration

import (
	"bytes"
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidMigration = errors.New("invalid migration")
var ErrInvalidVersionFormat = errors.New("invalid version format")

type (
	// Version is the monotonic ordering key of a migration
	Version uint64

	VersionFormat string

	ClockFunc func() time.Time

	// Effect is a forward or backward change applied inside the
	// migration transaction
	Effect func(ctx context.Context, conn Conn) error

	Factory func() (*Migration, error)

	// Conn is what an effect gets to work with: a connection scoped to the
	// migration transaction
	Conn interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row

		// Introspect runs a catalog lookup that must return exactly one name,
		// used for schema objects whose names are generated by the database
		Introspect(ctx context.Context, query string, args ...interface{}) (string, error)

		// Dialect returns the SQL dialect name of the target (mysql, postgres, sqlite)
		Dialect() string
	}

	Migration struct {
		Version  Version
		Name     string
		Migrate  Effect
		Rollback Rollback

		// Scripts holds the raw statements when the migration was read from SQL
		Scripts   Scripts
		Rollbacks Scripts
	}
)

const (
	TimestampFormat    VersionFormat = "timestamp"
	MillisecondsFormat VersionFormat = "milliseconds"
	DatetimeFormat     VersionFormat = "datetime"
)

func (v Version) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

func VersionFromString(s string) (Version, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.Wrapf(ErrInvalidVersionFormat, "[%s]", s)
	}

	return Version(n), nil
}

// New creates a factory for a migration authored in Go
func New(version Version, name string, migrate Effect, rollback Rollback) Factory {
	return func() (*Migration, error) {
		m := &Migration{
			Version:  version,
			Name:     name,
			Migrate:  migrate,
			Rollback: rollback,
		}

		if err := m.validate(); err != nil {
			return nil, err
		}

		return m, nil
	}
}

// NewFromScripts creates a factory for a migration made of plain SQL statements,
// an empty rollback list means the rollback has not been written
func NewFromScripts(version Version, name string, migrate, rollback []string) Factory {
	var rb Rollback
	if len(rollback) > 0 {
		rb = Reversible(SQL(rollback...))
	}

	return func() (*Migration, error) {
		m := &Migration{
			Version:   version,
			Name:      name,
			Migrate:   SQL(migrate...),
			Rollback:  rb,
			Scripts:   migrate,
			Rollbacks: rollback,
		}

		if err := m.validate(); err != nil {
			return nil, err
		}

		return m, nil
	}
}

func (m *Migration) Key() string {
	return CreateKey(m.Version, m.Name)
}

func (m *Migration) validate() error {
	if m.Version == 0 {
		return errors.Wrapf(ErrInvalidMigration, "version must be greater than 0, name [%s]", m.Name)
	}

	if strings.TrimSpace(m.Name) == "" {
		return errors.Wrapf(ErrInvalidMigration, "name must be specified, version [%d]", m.Version)
	}

	if m.Migrate == nil {
		return errors.Wrapf(ErrInvalidMigration, "migrate effect must be specified for [%s]", m.Key())
	}

	if m.Rollback.kind == RollbackReversible && m.Rollback.effect == nil {
		return errors.Wrapf(ErrInvalidMigration, "reversible rollback of [%s] has no effect", m.Key())
	}

	return nil
}

type Migrations []*Migration

func NewMigrations(factories ...Factory) (Migrations, error) {
	migrations := make(Migrations, len(factories))

	for i := range factories {
		m, err := factories[i]()
		if err != nil {
			return nil, err
		}

		migrations[i] = m
	}

	return migrations, nil
}

func (m Migrations) Keys() (result []string) {
	for i := range m {
		result = append(result, m[i].Key())
	}
	return result
}

func (m Migrations) Versions() (result []Version) {
	for i := range m {
		result = append(result, m[i].Version)
	}
	return result
}

func (m Migrations) Len() int {
	return len(m)
}

func (m Migrations) Less(i, j int) bool {
	return m[i].Version < m[j].Version
}

func (m Migrations) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

func CreateKey(version Version, name string) string {
	var result bytes.Buffer
	result.WriteString(version.String())
	result.WriteString("_")
	result.WriteString(strings.Replace(strings.ToLower(strings.TrimSpace(name)), " ", "_", -1))
	return result.String()
}

func GenerateVersion(cf ClockFunc, vf VersionFormat) Version {
	now := cf().UTC()

	switch vf {
	case TimestampFormat:
		return Version(now.Unix())
	case DatetimeFormat:
		v, _ := strconv.ParseUint(now.Format("20060102150405"), 10, 64)
		return Version(v)
	default:
		return Version(now.UnixNano() / int64(time.Millisecond))
	}
}

func InVersions(version Version, versions []Version) bool {
	for _, v := range versions {
		if v == version {
			return true
		}
	}

	return false
}
