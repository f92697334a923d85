package cli

import (
	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/denismitr/tern/v4/internal/source"
	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
)

// Create scaffolds the files of a new migration or seed
type Create struct {
	Name         string `arg:"" help:"Name of the migration."`
	Seed         bool   `help:"Create a seed instead of a migration."`
	Irreversible string `help:"Mark the rollback as irreversible and explain why." placeholder:"NOTE"`
	NoRollback   bool   `help:"Do not create a rollback file."`
}

func (c *Create) Run(s *session) error {
	if c.NoRollback && c.Irreversible != "" {
		return errors.New("--no-rollback and --irreversible are mutually exclusive")
	}

	tc, err := c.targetConfig(s)
	if err != nil {
		return err
	}

	folder := tc.MigrationsFolder
	if c.Seed {
		folder = tc.SeedsFolder
		if folder == "" {
			folder = source.DefaultSeedsFolder
		}
	}

	src, err := source.NewLocalFSSource(s.env.FS, folder, &logger.NullLogger{}, tc.VersionFormat)
	if err != nil {
		return err
	}

	v := migration.GenerateVersion(s.env.Now, tc.VersionFormat)

	files, err := src.Create(v, c.Name, source.CreateOptions{
		NoRollback:       c.NoRollback,
		IrreversibleNote: c.Irreversible,
	})
	if err != nil {
		return err
	}

	for _, f := range files {
		s.printf("created %s", f)
	}

	return nil
}

// targetConfig falls back to the default layout when there is no
// configuration file yet
func (c *Create) targetConfig(s *session) (TargetConfig, error) {
	cfg, err := s.config()
	if errors.Is(err, ErrConfigNotFound) {
		return TargetConfig{
			MigrationsFolder: source.DefaultMigrationsFolder,
			SeedsFolder:      source.DefaultSeedsFolder,
			VersionFormat:    migration.TimestampFormat,
		}, nil
	}
	if err != nil {
		return TargetConfig{}, err
	}

	name, err := s.singleTarget(cfg)
	if err != nil {
		return TargetConfig{}, err
	}

	return cfg.Targets[name], nil
}
