package migration

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type RollbackKind uint8

const (
	// RollbackNotDefined - the backward effect has not been written yet
	RollbackNotDefined RollbackKind = iota
	// RollbackReversible - the backward effect restores the prior state
	RollbackReversible
	// RollbackIrreversible - the forward effect destroys state on purpose
	RollbackIrreversible
)

func (k RollbackKind) String() string {
	switch k {
	case RollbackReversible:
		return "reversible"
	case RollbackIrreversible:
		return "irreversible"
	default:
		return "not defined"
	}
}

// Rollback is the backward side of a migration. The zero value means
// no backward effect was written, which is not the same as Irreversible.
type Rollback struct {
	kind   RollbackKind
	effect Effect
	note   string
}

func Reversible(effect Effect) Rollback {
	return Rollback{kind: RollbackReversible, effect: effect}
}

func Irreversible(note string) Rollback {
	return Rollback{kind: RollbackIrreversible, note: note}
}

func NoRollback() Rollback {
	return Rollback{}
}

func (r Rollback) Kind() RollbackKind {
	return r.kind
}

func (r Rollback) Effect() Effect {
	return r.effect
}

func (r Rollback) Note() string {
	return r.note
}

// Scripts is a list of SQL statements executed one by one
type Scripts []string

func (s Scripts) String() string {
	var ms bytes.Buffer

	for i := range s {
		ms.WriteString(s[i])

		if !strings.HasSuffix(s[i], ";") {
			ms.WriteString(";")
		}

		if i < len(s)-1 {
			ms.WriteString("\n")
		}
	}

	return ms.String()
}

// SQL creates an effect executing the given statements in order,
// stopping at the first failing one
func SQL(scripts ...string) Effect {
	return func(ctx context.Context, conn Conn) error {
		for i, script := range scripts {
			if strings.TrimSpace(script) == "" {
				continue
			}

			if _, err := conn.ExecContext(ctx, script); err != nil {
				return errors.Wrapf(err, "statement #%d [%s] failed", i+1, script)
			}
		}

		return nil
	}
}

// DropDiscovered looks up a database generated object name with lookupQuery
// and then executes actionTemplate with the discovered name substituted for %s,
// e.g. dropping an unnamed foreign key constraint found in the system catalog
func DropDiscovered(lookupQuery string, args []interface{}, actionTemplate string) Effect {
	return func(ctx context.Context, conn Conn) error {
		name, err := conn.Introspect(ctx, lookupQuery, args...)
		if err != nil {
			return err
		}

		action := fmt.Sprintf(actionTemplate, name)
		if _, err := conn.ExecContext(ctx, action); err != nil {
			return errors.Wrapf(err, "could not act on discovered object [%s]", name)
		}

		return nil
	}
}

// Chain runs effects one after another
func Chain(effects ...Effect) Effect {
	return func(ctx context.Context, conn Conn) error {
		for _, e := range effects {
			if err := e(ctx, conn); err != nil {
				return err
			}
		}

		return nil
	}
}
