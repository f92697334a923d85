package cli

import (
	"github.com/denismitr/tern/v4"
	"github.com/pkg/errors"
)

// Seed groups the seed commands, seeds are never applied by migrate
type Seed struct {
	Apply  SeedRun    `kong:"cmd,name='run',help='Apply pending seeds.'"`
	Status SeedStatus `kong:"cmd,help='List applied and pending seeds.'"`
}

type SeedRun struct{}

func (c *SeedRun) Run(s *session) error {
	return s.each(func(name string, m *tern.Migrator) error {
		seeded, err := m.Seed(s.ctx)
		if s.skipUnseeded(name, err) {
			return nil
		}
		if err != nil && !errors.Is(err, tern.ErrNoChangesRequired) {
			return err
		}

		s.report(name, "seeded", seeded)

		return nil
	})
}

type SeedStatus struct{}

func (c *SeedStatus) Run(s *session) error {
	return s.each(func(name string, m *tern.Migrator) error {
		status, err := m.SeedStatus(s.ctx)
		if s.skipUnseeded(name, err) {
			return nil
		}
		if err != nil {
			return err
		}

		s.printf("target [%s] seeds", name)

		return renderStatus(status, s.env.Stdout)
	})
}

// skipUnseeded passes over targets without a seeds folder unless they were
// asked for by name
func (s *session) skipUnseeded(name string, err error) bool {
	if len(s.cli.Target) > 0 || !errors.Is(err, tern.ErrSeedsNotConfigured) {
		return false
	}

	s.printf("target [%s]: no seeds configured", name)

	return true
}
