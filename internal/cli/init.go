package cli

import (
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
)

// Init writes a configuration stub with a single default target
type Init struct{}

func (c *Init) Run(s *session) error {
	path := s.cli.Config
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := s.env.FS.Stat(path); err == nil {
		return errors.Errorf("configuration file [%s] already exists", path)
	}

	if err := vfs.WriteFile(s.env.FS, path, []byte(configFileStub), 0o644); err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	s.printf("created %s", path)

	return nil
}
