package cli

import (
	"path/filepath"
	"regexp"
	"sort"

	"github.com/adrg/xdg"
	"github.com/denismitr/tern/v4/internal/source"
	"github.com/denismitr/tern/v4/migration"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const DefaultConfigFile = "tern.yaml"

var ErrConfigNotFound = errors.New("tern configuration file not found")

var envPlaceholder = regexp.MustCompile(`%%(\w+)%%`)

var allowedVersionFormats = []migration.VersionFormat{
	migration.TimestampFormat,
	migration.MillisecondsFormat,
	migration.DatetimeFormat,
}

type (
	TargetConfig struct {
		DatabaseURL      string                  `yaml:"database_url"`
		MigrationsFolder string                  `yaml:"migrations_folder"`
		SeedsFolder      string                  `yaml:"seeds_folder,omitempty"`
		MigrationsTable  string                  `yaml:"migrations_table,omitempty"`
		SeedsTable       string                  `yaml:"seeds_table,omitempty"`
		VersionFormat    migration.VersionFormat `yaml:"version_format"`
	}

	Config struct {
		Version string                  `yaml:"version"`
		Targets map[string]TargetConfig `yaml:"targets"`
	}
)

// Names returns the configured target names in order
func (cfg *Config) Names() []string {
	names := make([]string, 0, len(cfg.Targets))
	for name := range cfg.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseConfig reads the yaml configuration, %%VAR%% placeholders are
// replaced with values from getenv
func ParseConfig(b []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "could not parse tern configuration file")
	}

	if len(cfg.Targets) == 0 {
		return nil, errors.New("no targets defined")
	}

	for name, tc := range cfg.Targets {
		tc.DatabaseURL = expand(tc.DatabaseURL, getenv)
		tc.MigrationsFolder = expand(tc.MigrationsFolder, getenv)
		tc.SeedsFolder = expand(tc.SeedsFolder, getenv)

		if tc.DatabaseURL == "" {
			return nil, errors.Errorf("database url was not defined for target [%s]", name)
		}

		if tc.MigrationsFolder == "" {
			tc.MigrationsFolder = source.DefaultMigrationsFolder
		}

		if tc.VersionFormat == "" {
			tc.VersionFormat = migration.TimestampFormat
		}

		if !validVersionFormat(tc.VersionFormat) {
			return nil, errors.Wrapf(migration.ErrInvalidVersionFormat, "[%s] for target [%s]", tc.VersionFormat, name)
		}

		cfg.Targets[name] = tc
	}

	return &cfg, nil
}

// LoadConfig reads the configuration from path, when path is empty
// ./tern.yaml and then the user config dir are searched
func LoadConfig(fs vfs.FileSystem, path string, getenv func(string) string) (*Config, error) {
	resolved, err := findConfig(fs, path)
	if err != nil {
		return nil, err
	}

	b, err := vfs.ReadFile(fs, resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read tern configuration file [%s]", resolved)
	}

	return ParseConfig(b, getenv)
}

func findConfig(fs vfs.FileSystem, path string) (string, error) {
	if path != "" {
		return path, nil
	}

	if info, err := fs.Stat(DefaultConfigFile); err == nil && !info.IsDir() {
		return DefaultConfigFile, nil
	}

	found, err := xdg.SearchConfigFile(filepath.Join("tern", DefaultConfigFile))
	if err != nil {
		return "", errors.Wrapf(ErrConfigNotFound, "looked in [%s] and the user config dir", DefaultConfigFile)
	}

	return found, nil
}

func expand(value string, getenv func(string) string) string {
	return envPlaceholder.ReplaceAllStringFunc(value, func(placeholder string) string {
		return getenv(envPlaceholder.FindStringSubmatch(placeholder)[1])
	})
}

func validVersionFormat(vf migration.VersionFormat) bool {
	for _, format := range allowedVersionFormats {
		if format == vf {
			return true
		}
	}
	return false
}

const configFileStub = `version: "4"
targets:
  default:
    database_url: "%%DATABASE_URL%%"
    migrations_folder: ./migrations
    seeds_folder: ./seeds
    version_format: timestamp
`
