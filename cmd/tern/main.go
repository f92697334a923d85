package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denismitr/tern/v4/internal/cli"
	"github.com/logrusorgru/aurora/v3"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd())
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd())

	env := &cli.Env{
		Stdout:    colorable.NewColorable(os.Stdout),
		Stderr:    colorable.NewColorable(os.Stderr),
		FS:        osfs.New(),
		Getenv:    os.Getenv,
		Now:       time.Now,
		StdoutTTY: stdoutTTY,
		StderrTTY: stderrTTY,
	}

	au := aurora.NewAurora(stderrTTY)

	c, err := cli.New(version)
	if err != nil {
		fmt.Fprintln(env.Stderr, au.Red("tern-cli:"), err.Error())
		os.Exit(1)
	}

	if err := c.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(env.Stderr, au.Red("tern-cli:"), err.Error())
		os.Exit(1)
	}

	if err := c.Execute(ctx, env); err != nil {
		fmt.Fprintln(env.Stderr, au.Red("tern-cli:"), c.Command(), "failed:", err.Error())
		cancel()
		os.Exit(1)
	}
}
