package migration

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrRollbackNotDefined  = errors.New("rollback is not defined")
	ErrIntrospectionFailed = errors.New("introspection did not find exactly one object")
)

const (
	OperationMigrate  = "migrate"
	OperationRollback = "rollback"
	OperationSeed     = "seed"
)

// ConnectivityError - target database is unreachable, nothing was touched
type ConnectivityError struct {
	Target string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("target [%s] is unreachable: %v", e.Target, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }
func (e *ConnectivityError) Cause() error  { return e.Err }

// DuplicateVersionError - two definitions share one version
type DuplicateVersionError struct {
	Version Version
	Names   [2]string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf(
		"duplicate migration version %d: [%s] and [%s]",
		e.Version, e.Names[0], e.Names[1],
	)
}

// DuplicateNameError - two definitions share one name
type DuplicateNameError struct {
	Name     string
	Versions [2]Version
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf(
		"duplicate migration name [%s]: versions %d and %d",
		e.Name, e.Versions[0], e.Versions[1],
	)
}

// ExecutionError - an effect or its ledger write failed, the migration
// transaction was rolled back
type ExecutionError struct {
	Op      string
	Version Version
	Name    string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s of migration %d [%s] failed: %v", e.Op, e.Version, e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
func (e *ExecutionError) Cause() error  { return e.Err }

// IrreversibleOperationError - rollback was requested for a migration
// that is marked as irreversible
type IrreversibleOperationError struct {
	Version Version
	Name    string
	Note    string
}

func (e *IrreversibleOperationError) Error() string {
	if e.Note == "" {
		return fmt.Sprintf("migration %d [%s] is irreversible", e.Version, e.Name)
	}

	return fmt.Sprintf("migration %d [%s] is irreversible: %s", e.Version, e.Name, e.Note)
}

// LedgerCorruptionError - the ledger references something the registry
// does not know about, needs manual reconciliation
type LedgerCorruptionError struct {
	Ledger  string
	Version Version
	Name    string
	Reason  string
}

func (e *LedgerCorruptionError) Error() string {
	return fmt.Sprintf(
		"ledger [%s] is corrupted at version %d [%s]: %s",
		e.Ledger, e.Version, e.Name, e.Reason,
	)
}
