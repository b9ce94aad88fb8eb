package cli

import (
	"fmt"

	"github.com/idilsaglam/grocery/internal/auth"
	"github.com/idilsaglam/grocery/internal/ui"
)

func (r *runner) authDir() (string, error) {
	if r.opt.AuthDir != "" {
		return r.opt.AuthDir, nil
	}
	return auth.DefaultDir()
}

// Auth subcommands (API token for serve)
func (r *runner) doAuth(sub string, args []string) int {
	dir, err := r.authDir()
	if err != nil {
		ui.Fail(r.errw, "auth: "+err.Error())
		return 1
	}

	switch sub {
	case "set":
		if len(args) != 1 {
			ui.Fail(r.errw, "usage: grocery auth set <token>")
			return 2
		}
		if err := auth.Save(dir, args[0]); err != nil {
			ui.Fail(r.errw, "auth set: "+err.Error())
			return 1
		}
		ui.OK(r.out, "token saved")
		return 0

	case "clear":
		if err := auth.Clear(dir); err != nil {
			ui.Fail(r.errw, "auth clear: "+err.Error())
			return 1
		}
		ui.OK(r.out, "token cleared")
		return 0

	case "status":
		ti, err := auth.Load(dir)
		if err != nil {
			ui.Fail(r.errw, "auth status: "+err.Error())
			return 1
		}
		if ti == nil {
			fmt.Fprintln(r.out, "API is open (no token)")
			fmt.Fprintln(r.out, ui.C(ui.Current().Muted, "Run: grocery auth set <token>"))
			return 0
		}
		fmt.Fprintf(r.out, "API token %s (source: %s)\n", auth.Mask(ti.Token), ti.Source)
		return 0
	}

	ui.Fail(r.errw, "unknown auth subcommand: "+sub)
	return 2
}

// apiToken is the token serve enforces, empty when none is configured.
func (r *runner) apiToken() (string, error) {
	dir, err := r.authDir()
	if err != nil {
		return "", err
	}
	ti, err := auth.Load(dir)
	if err != nil || ti == nil {
		return "", err
	}
	return ti.Token, nil
}
