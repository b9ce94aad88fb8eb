package ui

import (
	"fmt"
	"strings"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                   string
	Title, Muted, Accent, Success, Pending string
	BoxUnchecked, BoxChecked               string
	CornerTL, CornerTR, CornerBL, CornerBR string
	H, V                                   string
	SymChecked, SymPending                 string
}

var themes = map[string]Theme{
	"classic": {
		Name:  "classic",
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymChecked: "✔", SymPending: "•",
	},
	"neon": {
		Name:  "neon",
		Title: "\033[95m", // bright magenta
		Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Pending: "\033[93m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymChecked: "✔", SymPending: "•",
	},
	"mono": {
		Name:         "mono",
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
		H: "-", V: "|",
		SymChecked: "x", SymPending: "-",
	},
}

var current = themes["classic"]

// SetTheme switches the theme. mono also turns color off.
func SetTheme(name string) error {
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown theme %q (valid: classic, neon, mono)", name)
	}
	current = t
	if t.Name == "mono" {
		disableColor = true
	}
	return nil
}

func Current() Theme { return current }
