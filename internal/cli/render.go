package cli

import (
	"context"
	"fmt"

	"github.com/idilsaglam/grocery/internal/grocery"
	"github.com/idilsaglam/grocery/internal/ui"
)

const maxNameWidth = 60

func (r *runner) doList(_ context.Context, l *grocery.List) int {
	checked, pending := l.Summary()
	t := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Groceries"),
		ui.C(t.Success, t.SymChecked), checked,
		ui.C(t.Pending, t.SymPending), pending,
		ui.C(t.Accent, "Total"), l.Len(),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(checked, checked+pending, 28)))
	lines = append(lines, "")

	if r.opt.Group {
		lines = append(lines, groupLines(l.Rows())...)
	} else {
		lines = append(lines, flatLines(l.Rows())...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "Tip: add with `grocery add -q 2 \"Oat milk\"`"))
	ui.Panel(r.out, lines)
	return 0
}

type numberedRow struct {
	index int
	grocery.Row
}

func number(rows []grocery.Row) []numberedRow {
	out := make([]numberedRow, len(rows))
	for i, row := range rows {
		out[i] = numberedRow{index: i + 1, Row: row}
	}
	return out
}

func flatLines(rows []grocery.Row) []string {
	return rowLines(number(rows))
}

// rowLines keeps each row's display index so `check`/`rm` indexes stay valid
// when grouped.
func rowLines(rows []numberedRow) []string {
	t := ui.Current()
	if len(rows) == 0 {
		return []string{ui.C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		idx := fmt.Sprintf("%2d.", row.index)
		box, color := t.BoxUnchecked, t.Muted
		name := row.Label
		if r := []rune(name); len(r) > maxNameWidth {
			name = string(r[:maxNameWidth-3]) + "..."
		}
		if row.Checked {
			box, color = t.BoxChecked, t.Success
		}
		if row.Strikethrough {
			name = ui.Dim(ui.Strike(name))
		}
		out = append(out, fmt.Sprintf("%s %s %s  %s",
			ui.Dim(idx), ui.C(color, box), name, ui.C(t.Muted, fmt.Sprintf("x%d", row.Item.Quantity))))
	}
	return out
}

func groupLines(rows []grocery.Row) []string {
	var pend, done []numberedRow
	for _, row := range number(rows) {
		if row.Checked {
			done = append(done, row)
		} else {
			pend = append(pend, row)
		}
	}
	t := ui.Current()
	var lines []string
	lines = append(lines, ui.C(t.Accent, "To buy"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, rowLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Accent, "In the cart"))
	if len(done) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, rowLines(done)...)
	}
	return lines
}
