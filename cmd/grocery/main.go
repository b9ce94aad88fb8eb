package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/idilsaglam/grocery/internal/cli"
	"github.com/idilsaglam/grocery/internal/config"
	"github.com/idilsaglam/grocery/internal/logging"
	"github.com/idilsaglam/grocery/internal/ui"
	"go.uber.org/zap"
)

func main() {
	// Root flags (apply to every subcommand)
	configPath := flag.String("config", "", "YAML config file")
	backend := flag.String("store", "", "store backend: memory, json or postgres")
	theme := flag.String("theme", "", "color theme: classic, neon or mono")
	groupPending := flag.Bool("group", false, "group output by pending/checked")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, func(c *config.Config) {
		if *backend != "" {
			c.Store.Backend = *backend
		}
		if *theme != "" {
			c.Theme = *theme
		}
	})
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := ui.SetTheme(cfg.Theme); err != nil {
		ui.Fail(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger := newLogger(cfg, args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cli.Run(ctx, args, cli.Options{
		Group:  *groupPending,
		Config: cfg,
		Logger: logger,
	})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	stop()
	logger.Sync()
	os.Exit(code)
}

// The TUI owns the terminal, so without a log file it logs nowhere.
func newLogger(cfg *config.Config, cmd string) *zap.Logger {
	if cmd == "tui" && cfg.Log.File == "" {
		return logging.Discard()
	}
	logger, err := logging.New(cfg.Environment, cfg.Log)
	if err != nil {
		ui.Fail(os.Stderr, "logger: "+err.Error())
		os.Exit(2)
	}
	return logger
}
