// Package tui is the interactive grocery list: a Bubble Tea list with a modal
// add-item form.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/idilsaglam/grocery/internal/grocery"
	"github.com/idilsaglam/grocery/internal/store"
)

// listItem adapts a grocery.Row to bubbles/list.Item
type listItem struct {
	grocery.Row
}

func (i listItem) FilterValue() string { return i.Label }

// Single-line rows: toggle, name (struck through when checked), quantity.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	fmt.Fprintln(w, renderRow(it.Row, index == m.Index()))
}

func renderRow(row grocery.Row, selected bool) string {
	circle := mutedStyle.Render(circleUnchecked)
	name := row.Label
	qty := mutedStyle.Render(row.QuantityLabel)
	if row.Checked {
		circle = successStyle.Render(circleChecked)
	}
	if row.Strikethrough {
		name = checkedStyle.Render(name)
		qty = checkedStyle.Render(row.QuantityLabel)
	}

	prefix := "  "
	if selected {
		prefix = selectedStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s %s  %s", prefix, circle, name, qty)
}

type changedMsg struct{}

type keyMap struct {
	toggle key.Binding
	remove key.Binding
	add    key.Binding
	quit   key.Binding
}

var keys = keyMap{
	toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "check")),
	remove: key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the Bubble Tea model over a grocery.List.
type Model struct {
	ctx       context.Context
	groceries *grocery.List
	list      list.Model
	name      textinput.Model
	changes   chan struct{}
	unwatch   func()

	status string
	err    string
	width  int
	height int
}

// New builds the model and subscribes to store changes.
func New(ctx context.Context, l *grocery.List) *Model {
	lm := list.New(nil, itemDelegate{}, 0, 0)
	lm.SetShowHelp(true)
	lm.SetShowPagination(true)
	lm.SetShowStatusBar(true)
	lm.SetFilteringEnabled(false) // cursor index must equal display position
	lm.Styles.Title = titleStyle
	lm.Styles.HelpStyle = helpStyle
	lm.Styles.PaginationStyle = helpStyle
	lm.SetStatusBarItemName("item", "items")
	lm.DisableQuitKeybindings()
	extra := func() []key.Binding { return []key.Binding{keys.toggle, keys.remove, keys.add, keys.quit} }
	lm.AdditionalShortHelpKeys = extra
	lm.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "Item Name: "
	ti.Placeholder = "e.g. Milk"
	ti.CharLimit = 200

	m := &Model{
		ctx:       ctx,
		groceries: l,
		list:      lm,
		name:      ti,
		changes:   make(chan struct{}, 1),
		width:     80,
		height:    24,
	}
	m.unwatch = l.Watch(func(store.Change) {
		select {
		case m.changes <- struct{}{}:
		default: // a refresh is already pending
		}
	})
	m.reload()
	m.resize()
	return m
}

// Run starts the program on the alternate screen.
func Run(ctx context.Context, l *grocery.List) error {
	m := New(ctx, l)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Close stops listening for store changes.
func (m *Model) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd { return m.waitForChange() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case changedMsg:
		m.reload()
		return m, m.waitForChange()
	case tea.KeyMsg:
		if m.groceries.Presenting() {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	if m.groceries.Presenting() {
		m.name, cmd = m.name.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case key.Matches(msg, keys.toggle):
		if m.list.Index() < m.groceries.Len() {
			it, err := m.groceries.ToggleAt(m.ctx, m.list.Index())
			m.report(err, "toggled "+it.Name)
			m.reload()
		}
		return m, nil
	case key.Matches(msg, keys.remove):
		if i := m.list.Index(); i < m.groceries.Len() {
			name := m.groceries.Items()[i].Name
			err := m.groceries.DeleteAt(m.ctx, i)
			m.report(err, "deleted "+name)
			m.reload()
		}
		return m, nil
	case key.Matches(msg, keys.add):
		m.groceries.OpenForm()
		m.err = ""
		m.name.SetValue("")
		m.resize()
		return m, m.name.Focus()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.groceries.Form()
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		f.Cancel()
		m.closeForm()
		return m, nil
	case "enter":
		if !f.CanConfirm() {
			return m, nil // Add is disabled
		}
		it, err := f.Confirm(m.ctx)
		if err != nil {
			m.report(err, "")
			return m, nil
		}
		m.report(nil, "added "+it.Name)
		m.closeForm()
		m.reload()
		m.selectID(it.ID)
		return m, nil
	case "up":
		f.Increment()
		return m, nil
	case "down":
		f.Decrement()
		return m, nil
	case "pgup":
		f.SetQuantity(f.Quantity + 10)
		return m, nil
	case "pgdown":
		f.SetQuantity(f.Quantity - 10)
		return m, nil
	}

	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	f.SetName(m.name.Value())
	return m, cmd
}

func (m *Model) closeForm() {
	m.name.SetValue("")
	m.name.Blur()
	m.resize()
}

// report shows err in the status line, or ok when there is no error.
func (m *Model) report(err error, ok string) {
	if err != nil {
		m.err = err.Error()
		m.status = ""
		return
	}
	m.err = ""
	m.status = ok
}

// reload re-runs the live query and rebuilds the rows.
func (m *Model) reload() {
	if err := m.groceries.Refresh(m.ctx); err != nil {
		m.report(err, "")
	}
	rows := m.groceries.Rows()
	li := make([]list.Item, len(rows))
	for i, row := range rows {
		li[i] = listItem{row}
	}
	idx := m.list.Index()
	m.list.SetItems(li)
	if idx >= len(li) && len(li) > 0 {
		m.list.Select(len(li) - 1)
	}
	m.list.Title = m.header()
}

func (m *Model) selectID(id string) {
	for i, it := range m.groceries.Items() {
		if it.ID == id {
			m.list.Select(i)
			return
		}
	}
}

func (m *Model) header() string {
	checked, pending := m.groceries.Summary()
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Grocery List"),
		successStyle.Render("✔"), checked,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), checked+pending,
	)
}

func (m *Model) resize() {
	h := m.height - 4
	if m.groceries.Presenting() {
		h -= 6
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m *Model) View() string {
	content := m.list.View()
	if f := m.groceries.Form(); f != nil {
		content += "\n" + m.formView(f)
	}
	switch {
	case m.err != "":
		content += "\n" + errorStyle.Render("✖ "+m.err)
	case m.status != "":
		content += "\n" + mutedStyle.Render(m.status)
	}
	return frameStyle.Render(content)
}

func (m *Model) formView(f *grocery.Form) string {
	add := disabledButtonStyle.Render("[ Add ]")
	if f.CanConfirm() {
		add = buttonStyle.Render("[ Add ]")
	}
	lines := []string{
		titleStyle.Render("Add New Item"),
		m.name.View(),
		fmt.Sprintf("Quantity: %d  %s", f.Quantity, mutedStyle.Render(fmt.Sprintf("↑/↓ (%d-%d)", grocery.MinQuantity, grocery.MaxQuantity))),
		add + "  " + helpStyle.Render("enter add • esc cancel"),
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}
