package cli

import (
	"strings"

	"github.com/denismitr/tern/v4"
	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
)

// Migrate groups the schema migration commands
type Migrate struct {
	Up      MigrateUp      `kong:"cmd,help='Apply pending migrations.'"`
	Down    MigrateDown    `kong:"cmd,help='Roll back the latest applied migrations.'"`
	Refresh MigrateRefresh `kong:"cmd,help='Roll back migrations and apply them again.'"`
	Status  MigrateStatus  `kong:"cmd,help='List applied and pending migrations.'"`
}

type MigrateUp struct {
	To         string `help:"Stop after this version." placeholder:"VERSION"`
	Steps      int    `help:"Apply at most this many migrations."`
	OutOfOrder bool   `help:"Apply pending versions older than the latest applied one."`
}

// Run migrates every selected target concurrently
func (c *MigrateUp) Run(s *session) (err error) {
	cfs, err := tern.CreateConfigurators(c.Steps, c.To)
	if err != nil {
		return err
	}

	if c.OutOfOrder {
		cfs = append(cfs, tern.WithOutOfOrder())
	}

	cfg, err := s.config()
	if err != nil {
		return err
	}

	names, err := s.targetNames(cfg)
	if err != nil {
		return err
	}

	targets, closer, err := s.bind(names)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closer(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	result, err := targets.MigrateAll(s.ctx, cfs...)
	for _, name := range targets.Names() {
		s.report(name, "migrated", result[name])
	}

	return err
}

type MigrateDown struct {
	Steps            int  `help:"Roll back this many migrations." default:"1"`
	All              bool `help:"Roll back every applied migration."`
	SkipIrreversible bool `help:"Leave irreversible migrations applied and carry on."`
}

// Run rolls back a single target
func (c *MigrateDown) Run(s *session) error {
	cfs, err := rollbackConfigurators(c.Steps, c.All)
	if err != nil {
		return err
	}

	if c.SkipIrreversible {
		cfs = append(cfs, tern.WithSkipIrreversible())
	}

	return s.one(func(name string, m *tern.Migrator) error {
		rolledBack, err := m.Rollback(s.ctx, cfs...)
		if err != nil && !errors.Is(err, tern.ErrNoChangesRequired) {
			return err
		}

		s.report(name, "rolled back", rolledBack)

		return nil
	})
}

type MigrateRefresh struct {
	Steps int  `help:"Roll back and re-apply this many migrations." default:"1"`
	All   bool `help:"Refresh every applied migration."`
}

// Run refreshes a single target
func (c *MigrateRefresh) Run(s *session) error {
	cfs, err := rollbackConfigurators(c.Steps, c.All)
	if err != nil {
		return err
	}

	return s.one(func(name string, m *tern.Migrator) error {
		rolledBack, migrated, err := m.Refresh(s.ctx, cfs...)
		if err != nil && !errors.Is(err, tern.ErrNoChangesRequired) {
			return err
		}

		s.report(name, "rolled back", rolledBack)
		s.report(name, "migrated", migrated)

		return nil
	})
}

type MigrateStatus struct{}

func (c *MigrateStatus) Run(s *session) error {
	return s.each(func(name string, m *tern.Migrator) error {
		status, err := m.Status(s.ctx)
		if err != nil {
			return err
		}

		s.printf("target [%s]", name)

		return renderStatus(status, s.env.Stdout)
	})
}

func rollbackConfigurators(steps int, all bool) ([]tern.ActionConfigurator, error) {
	if all {
		return []tern.ActionConfigurator{tern.WithAllSteps()}, nil
	}

	return tern.CreateConfigurators(steps, "")
}

func (s *session) report(target, done string, ms migration.Migrations) {
	if len(ms) == 0 {
		s.printf("target [%s]: nothing %s", target, done)
		return
	}

	s.printf("target [%s]: %s %s", target, done, strings.Join(ms.Keys(), ", "))
}
