package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/denismitr/tern/v4"
	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/lmittmann/tint"
	"github.com/logrusorgru/aurora/v3"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
)

// Env is everything the commands need from the outside world
type Env struct {
	Stdout    io.Writer
	Stderr    io.Writer
	FS        vfs.FileSystem
	Getenv    func(string) string
	Now       func() time.Time
	StdoutTTY bool
	StderrTTY bool
}

// CLI is the command line interface of tern
type CLI struct {
	Migrate Migrate `kong:"cmd,help='Apply, roll back or inspect schema migrations.'"`
	Seed    Seed    `kong:"cmd,help='Apply or inspect seeds.'"`
	Create  Create  `kong:"cmd,help='Create files for a new migration or seed.'"`
	Init    Init    `kong:"cmd,help='Write a configuration file stub.'"`

	Config    string           `kong:"help='Path to the tern configuration file.'"`
	Target    []string         `kong:"help='Target to operate on, repeat for several. All targets by default.'"`
	LogFormat string           `kong:"enum='pretty,slog',default='pretty',help='Log output format (${enum}).'"`
	Debug     bool             `kong:"help='Log debug messages.'"`
	SQL       bool             `kong:"name='sql',help='Log executed SQL statements.'"`
	Timeout   time.Duration    `kong:"help='Give up after this long, no limit by default.'"`
	Version   kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface
func New(version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("tern"),
		kong.Description("SQL migrations for MySQL, PostgreSQL and SQLite."),
		kong.UsageOnError(),
		kong.DefaultEnvars("TERN"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": version},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed creating the command line parser")
	}

	c.kong = kparser

	return c, nil
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return errors.Wrap(err, "failed parsing command line arguments")
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}

	var cmdPath []string
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// Execute runs the parsed command
func (c *CLI) Execute(ctx context.Context, env *Env) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}

	c.kong.Stdout = env.Stdout
	c.kong.Stderr = env.Stderr

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	s := &session{ctx: ctx, env: env, cli: c, au: aurora.NewAurora(env.StdoutTTY)}

	return c.kctx.Run(s)
}

// session carries one command execution
type session struct {
	ctx context.Context
	env *Env
	cli *CLI
	au  aurora.Aurora
	cfg *Config
}

func (s *session) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(s.env.Stdout, s.au.Green("tern-cli:"), fmt.Sprintf(format, args...))
}

func (s *session) config() (*Config, error) {
	if s.cfg != nil {
		return s.cfg, nil
	}

	cfg, err := LoadConfig(s.env.FS, s.cli.Config, s.env.Getenv)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg

	return cfg, nil
}

// targetNames returns the targets named with --target or every
// configured one
func (s *session) targetNames(cfg *Config) ([]string, error) {
	if len(s.cli.Target) == 0 {
		return cfg.Names(), nil
	}

	for _, name := range s.cli.Target {
		if _, ok := cfg.Targets[name]; !ok {
			return nil, errors.Wrapf(tern.ErrUnknownTarget, "[%s] is not in the configuration", name)
		}
	}

	return s.cli.Target, nil
}

// singleTarget is for commands that must not fan out, it needs --target
// unless exactly one target is configured
func (s *session) singleTarget(cfg *Config) (string, error) {
	names, err := s.targetNames(cfg)
	if err != nil {
		return "", err
	}

	if len(names) != 1 {
		return "", errors.Errorf("choose one of the targets [%s] with --target", strings.Join(names, ", "))
	}

	return names[0], nil
}

func (s *session) loggerOption() tern.OptionFunc {
	if s.cli.LogFormat == "slog" {
		level := slog.LevelInfo
		if s.cli.Debug {
			level = slog.LevelDebug
		}
		if s.cli.SQL {
			level = logger.LevelSQL
		}

		return tern.UseSlogLogger(slog.New(
			tint.NewHandler(s.env.Stderr, &tint.Options{
				Level:      level,
				NoColor:    !s.env.StderrTTY,
				TimeFormat: "2006-01-02 15:04:05.000",
			}),
		))
	}

	p := log.New(s.env.Stdout, "", 0)
	if s.env.StdoutTTY {
		return tern.UseColorLogger(p, s.cli.SQL, s.cli.Debug)
	}

	return tern.UseLogger(p, s.cli.SQL, s.cli.Debug)
}

// bind opens the given targets, the returned closer releases the
// migrators and their databases
func (s *session) bind(names []string) (*tern.Targets, func() error, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, nil, err
	}

	targets := tern.NewTargets()
	var dbs []*sql.DB

	closer := func() error {
		err := targets.Close()
		for _, db := range dbs {
			if closeErr := db.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
		return err
	}

	for _, name := range names {
		opts, db, err := targetOptions(cfg.Targets[name])
		if err != nil {
			_ = closer()
			return nil, nil, errors.Wrapf(err, "target [%s]", name)
		}
		dbs = append(dbs, db)

		opts = append(opts, s.loggerOption(), tern.WithFileSystem(s.env.FS), tern.WithClock(s.env.Now))

		if _, err := targets.Bind(name, opts...); err != nil {
			_ = closer()
			return nil, nil, err
		}
	}

	return targets, closer, nil
}

// each runs f against the selected targets one after another
func (s *session) each(f func(name string, m *tern.Migrator) error) (err error) {
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

	for _, name := range targets.Names() {
		m, err := targets.Get(name)
		if err != nil {
			return err
		}

		if err := f(name, m); err != nil {
			return errors.Wrapf(err, "target [%s]", name)
		}
	}

	return nil
}

// one runs f against the single selected target
func (s *session) one(f func(name string, m *tern.Migrator) error) (err error) {
	cfg, err := s.config()
	if err != nil {
		return err
	}

	name, err := s.singleTarget(cfg)
	if err != nil {
		return err
	}

	targets, closer, err := s.bind([]string{name})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closer(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	m, err := targets.Get(name)
	if err != nil {
		return err
	}

	if err := f(name, m); err != nil {
		return errors.Wrapf(err, "target [%s]", name)
	}

	return nil
}
