package tern

import (
	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
)

var ErrInvalidSteps = errors.New("steps cannot be negative")

type ActionConfigurator func(a *Action)

type Action struct {
	steps          int
	allSteps       bool
	to             migration.Version
	outOfOrder     bool
	onIrreversible database.IrreversibleHandler
}

func newAction(cfs []ActionConfigurator) *Action {
	act := new(Action)
	for _, f := range cfs {
		f(act)
	}
	return act
}

// migratePlan applies everything pending unless limited
func (a *Action) migratePlan() database.Plan {
	return database.Plan{
		Steps:           a.steps,
		To:              a.to,
		AllowOutOfOrder: a.outOfOrder,
	}
}

// rollbackPlan reverts one step unless told otherwise
func (a *Action) rollbackPlan() database.Plan {
	steps := a.steps
	if a.allSteps {
		steps = 0
	} else if steps == 0 {
		steps = 1
	}

	return database.Plan{
		Steps:          steps,
		OnIrreversible: a.onIrreversible,
	}
}

func WithSteps(steps int) ActionConfigurator {
	return func(a *Action) {
		a.steps = steps
	}
}

// WithAllSteps lifts the step limit, rollback reverts everything
func WithAllSteps() ActionConfigurator {
	return func(a *Action) {
		a.allSteps = true
	}
}

// WithToVersion stops migrate after the given version
func WithToVersion(v migration.Version) ActionConfigurator {
	return func(a *Action) {
		a.to = v
	}
}

// WithOutOfOrder lets migrate apply a pending version that is lower than
// the latest applied one
func WithOutOfOrder() ActionConfigurator {
	return func(a *Action) {
		a.outOfOrder = true
	}
}

// WithIrreversibleHandler decides what rollback does with an irreversible
// migration, returning nil skips it and keeps its ledger entry
func WithIrreversibleHandler(h func(*migration.IrreversibleOperationError) error) ActionConfigurator {
	return func(a *Action) {
		a.onIrreversible = h
	}
}

func WithSkipIrreversible() ActionConfigurator {
	return WithIrreversibleHandler(func(*migration.IrreversibleOperationError) error {
		return nil
	})
}

func CreateConfigurators(steps int, to string) ([]ActionConfigurator, error) {
	if steps < 0 {
		return nil, errors.Wrapf(ErrInvalidSteps, "%d", steps)
	}

	var configurators []ActionConfigurator
	if steps > 0 {
		configurators = append(configurators, WithSteps(steps))
	}

	if to != "" {
		v, err := migration.VersionFromString(to)
		if err != nil {
			return nil, err
		}
		configurators = append(configurators, WithToVersion(v))
	}

	return configurators, nil
}
