// Package cli dispatches grocery subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/idilsaglam/grocery/internal/config"
	"github.com/idilsaglam/grocery/internal/grocery"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/idilsaglam/grocery/internal/tui"
	"github.com/idilsaglam/grocery/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options tune output behavior from root flags.
type Options struct {
	Group  bool // list grouped by pending/checked
	Config *config.Config
	Logger *zap.Logger

	Stdout io.Writer
	Stderr io.Writer

	// AuthDir holds the saved API token; defaults to ~/.grocery.
	AuthDir string

	// OpenStore overrides the configured backend.
	OpenStore func(ctx context.Context, reg prometheus.Registerer) (store.Store, error)
}

type runner struct {
	opt    Options
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	errw   io.Writer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	r := &runner{opt: opt, cfg: opt.Config, logger: opt.Logger, out: opt.Stdout, errw: opt.Stderr}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.errw == nil {
		r.errw = os.Stderr
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.cfg == nil {
		r.cfg = config.Default()
	}

	if len(args) == 0 {
		PrintHelp(r.errw)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(r.out)
		return 0

	case "ls":
		return r.withList(ctx, r.doList)

	case "add":
		return r.doAdd(ctx, a)

	case "check":
		if len(a) != 1 {
			ui.Fail(r.errw, "usage: grocery check <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(r.errw, "check: not a number: "+a[0])
			return 2
		}
		return r.withList(ctx, func(ctx context.Context, l *grocery.List) int {
			return r.doToggle(ctx, l, n)
		})

	case "rm":
		if len(a) == 0 {
			ui.Fail(r.errw, "usage: grocery rm <index...>")
			return 2
		}
		idx := make([]int, len(a))
		for i, s := range a {
			n, err := strconv.Atoi(s)
			if err != nil {
				ui.Fail(r.errw, "rm: not a number: "+s)
				return 2
			}
			idx[i] = n
		}
		return r.withList(ctx, func(ctx context.Context, l *grocery.List) int {
			return r.doRemove(ctx, l, idx)
		})

	case "tui":
		return r.withList(ctx, func(ctx context.Context, l *grocery.List) int {
			if err := tui.Run(ctx, l); err != nil {
				ui.Fail(r.errw, "tui: "+err.Error())
				return 1
			}
			return 0
		})

	case "serve":
		return r.serve(ctx)

	case "auth":
		if len(a) == 0 {
			ui.Fail(r.errw, "usage: grocery auth <set <token>|clear|status>")
			return 2
		}
		return r.doAuth(a[0], a[1:])
	}

	ui.Fail(r.errw, "unknown subcommand: "+cmd)
	fmt.Fprintln(r.errw)
	PrintHelp(r.errw)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `grocery - a tiny grocery list

Usage:
  grocery [-config file] [-store memory|json|postgres] [-group] <subcommand> [args]

Subcommands:
  add [-q N] <name...>  Add an item (name can be multiple words, quantity %d-%d)
  ls                    List items sorted by name
  check <index>         Toggle checked for item at 1-based index
  rm <index...>         Remove items at 1-based indexes
  tui                   Interactive list
  serve                 Serve the list over HTTP
  auth <set <token>|clear|status>
                        Manage the API token required by serve

Examples:
  grocery add -q 2 "Oat milk"
  grocery ls
  grocery check 2
  grocery rm 1 3
`, grocery.MinQuantity, grocery.MaxQuantity)
}

// withList opens the store, loads the list and hands it to fn.
func (r *runner) withList(ctx context.Context, fn func(context.Context, *grocery.List) int) int {
	s, err := r.open(ctx, nil)
	if err != nil {
		ui.Fail(r.errw, "open store: "+err.Error())
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			r.logger.Warn("store close error", zap.Error(err))
		}
	}()

	l := grocery.NewList(s)
	if err := l.Refresh(ctx); err != nil {
		ui.Fail(r.errw, "load: "+err.Error())
		return 1
	}
	return fn(ctx, l)
}

func (r *runner) open(ctx context.Context, reg prometheus.Registerer) (store.Store, error) {
	if r.opt.OpenStore != nil {
		return r.opt.OpenStore(ctx, reg)
	}
	return OpenStore(ctx, r.cfg, r.logger, reg)
}

// -------------- subcommand impls ----------------

func (r *runner) doAdd(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(r.errw)
	qty := fs.Int("q", grocery.DefaultQuantity, "quantity")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	name := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if name == "" {
		ui.Fail(r.errw, "usage: grocery add [-q N] <name...>")
		return 2
	}

	return r.withList(ctx, func(ctx context.Context, l *grocery.List) int {
		f := l.OpenForm()
		f.SetName(name)
		f.SetQuantity(*qty)
		it, err := f.Confirm(ctx)
		if err != nil {
			ui.Fail(r.errw, "add: "+err.Error())
			return 1
		}
		ui.OK(r.out, fmt.Sprintf("added %s x%d", it.Name, it.Quantity))
		return 0
	})
}

func (r *runner) doToggle(ctx context.Context, l *grocery.List, userIndex int) int {
	it, err := l.ToggleAt(ctx, userIndex-1)
	if err != nil {
		return r.mutationFailed("check", l, err)
	}
	verb := "unchecked"
	if it.IsChecked {
		verb = "checked"
	}
	ui.OK(r.out, verb+" "+it.Name)
	return 0
}

func (r *runner) doRemove(ctx context.Context, l *grocery.List, userIndexes []int) int {
	pos := make([]int, len(userIndexes))
	for i, n := range userIndexes {
		pos[i] = n - 1
	}
	if err := l.DeleteAt(ctx, pos...); err != nil {
		return r.mutationFailed("rm", l, err)
	}
	ui.OK(r.out, fmt.Sprintf("removed %d", len(userIndexes)))
	return 0
}

func (r *runner) mutationFailed(cmd string, l *grocery.List, err error) int {
	if errors.Is(err, grocery.ErrPositionOutOfRange) {
		ui.Fail(r.errw, fmt.Sprintf("%s: index out of range: have %d", cmd, l.Len()))
		fmt.Fprintln(r.errw, ui.C(ui.Current().Muted, "Hint: run `grocery ls` to see valid indexes"))
		return 2
	}
	ui.Fail(r.errw, cmd+": "+err.Error())
	return 1
}
