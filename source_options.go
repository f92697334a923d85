package tern

import (
	"github.com/denismitr/tern/v4/internal/source"
	"github.com/denismitr/tern/v4/migration"
)

type (
	sourceConfig struct {
		versionFormat migration.VersionFormat
	}

	SourceConfigurator func(sc *sourceConfig)
)

func UseLocalFolderSource(folder string, configurators ...SourceConfigurator) OptionFunc {
	sc := newSourceConfig(configurators)

	return func(m *Migrator) error {
		m.migrationsFactory = localFolder(folder, sc.versionFormat)
		return nil
	}
}

func UseInMemorySource(factories ...migration.Factory) OptionFunc {
	return func(m *Migrator) error {
		s, err := source.NewInMemorySource(factories...)
		if err != nil {
			return err
		}

		m.migrationsFactory = selected(s)
		return nil
	}
}

// UseLocalFolderSeeds reads seeds the same way migrations are read
func UseLocalFolderSeeds(folder string, configurators ...SourceConfigurator) OptionFunc {
	sc := newSourceConfig(configurators)

	return func(m *Migrator) error {
		m.seedsFactory = localFolder(folder, sc.versionFormat)
		return nil
	}
}

func UseInMemorySeeds(factories ...migration.Factory) OptionFunc {
	return func(m *Migrator) error {
		s, err := source.NewInMemorySource(factories...)
		if err != nil {
			return err
		}

		m.seedsFactory = selected(s)
		return nil
	}
}

func WithVersionFormat(vf migration.VersionFormat) SourceConfigurator {
	return func(sc *sourceConfig) {
		sc.versionFormat = vf
	}
}

func newSourceConfig(configurators []SourceConfigurator) sourceConfig {
	var sc sourceConfig
	for _, c := range configurators {
		c(&sc)
	}
	return sc
}

func localFolder(folder string, vf migration.VersionFormat) sourceFactory {
	return func(m *Migrator) (source.Selector, error) {
		return source.NewLocalFSSource(m.fs, folder, m.lg, vf)
	}
}

func selected(s source.Selector) sourceFactory {
	return func(*Migrator) (source.Selector, error) {
		return s, nil
	}
}
