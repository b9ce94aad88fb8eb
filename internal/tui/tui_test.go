package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/idilsaglam/grocery/internal/grocery"
	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/idilsaglam/grocery/internal/store/memstore"
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space = tea.KeyMsg{Type: tea.KeySpace}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func send(t *testing.T, m *Model, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func newModel(t *testing.T, s store.Store) *Model {
	t.Helper()
	m := New(context.Background(), grocery.NewList(s))
	t.Cleanup(m.Close)
	send(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	return m
}

func TestAddItemThroughForm(t *testing.T) {
	s := memstore.New()
	m := newModel(t, s)

	send(t, m, runes("a"))
	if !m.groceries.Presenting() {
		t.Fatal("form not presented after 'a'")
	}

	send(t, m, enter)
	if !m.groceries.Presenting() || len(s.Snapshot()) != 0 {
		t.Fatal("enter with an empty name must be ignored")
	}

	send(t, m, runes("M"), runes("i"), runes("l"), runes("k"), up, up)
	if f := m.groceries.Form(); f.Name != "Milk" || f.Quantity != 3 {
		t.Fatalf("draft = %q x%d, want Milk x3", f.Name, f.Quantity)
	}

	send(t, m, enter)
	if m.groceries.Presenting() {
		t.Fatal("form still open after confirm")
	}
	got := s.Snapshot()
	if len(got) != 1 || got[0].Name != "Milk" || got[0].Quantity != 3 || got[0].IsChecked {
		t.Fatalf("store = %+v", got)
	}
	if !strings.Contains(m.View(), "Milk") {
		t.Error("new item not rendered")
	}
}

func TestCancelFormLeavesStoreUntouched(t *testing.T) {
	s := memstore.New()
	m := newModel(t, s)

	send(t, m, runes("a"), runes("x"))
	cmd := send(t, m, esc)
	if cmd != nil {
		t.Error("esc in the form must not quit")
	}
	if m.groceries.Presenting() {
		t.Error("form still open after esc")
	}
	if len(s.Snapshot()) != 0 {
		t.Error("cancel inserted an item")
	}
}

func TestToggleAndDeleteSelectedRow(t *testing.T) {
	s := memstore.New(memstore.WithItems([]model.GroceryItem{
		model.NewGroceryItem("Bread", 2),
		model.NewGroceryItem("Apples", 5),
	}))
	m := newModel(t, s)

	// rows are sorted: Apples, Bread
	send(t, m, space)
	items := m.groceries.Items()
	if items[0].Name != "Apples" || !items[0].IsChecked {
		t.Fatalf("after toggle: %+v", items)
	}

	send(t, m, down, runes("d"))
	got := s.Snapshot()
	if len(got) != 1 || got[0].Name != "Apples" {
		t.Fatalf("after delete: %+v", got)
	}
	if m.list.Index() != 0 {
		t.Errorf("cursor = %d, want clamped to 0", m.list.Index())
	}
}

func TestKeysOnEmptyListAreHarmless(t *testing.T) {
	m := newModel(t, memstore.New())
	send(t, m, space, runes("d"))
	if m.err != "" {
		t.Errorf("unexpected error: %s", m.err)
	}
}

type failingStore struct {
	*memstore.Store
}

func (f failingStore) Insert(context.Context, model.GroceryItem) error {
	return store.Fail("insert", errors.New("disk full"))
}

func TestStoreFailureShownInStatusLine(t *testing.T) {
	m := newModel(t, failingStore{memstore.New()})

	send(t, m, runes("a"), runes("E"), runes("g"), runes("g"), runes("s"), enter)

	if !m.groceries.Presenting() {
		t.Error("form closed despite failed insert")
	}
	if f := m.groceries.Form(); f.Name != "Eggs" {
		t.Errorf("draft lost: %q", f.Name)
	}
	if !strings.Contains(m.View(), "disk full") {
		t.Error("failure not shown in the status line")
	}
}

func TestExternalChangeRefreshesRows(t *testing.T) {
	s := memstore.New()
	m := newModel(t, s)

	if err := s.Insert(context.Background(), model.NewGroceryItem("Butter", 1)); err != nil {
		t.Fatal(err)
	}
	msg := m.waitForChange()()
	if _, ok := msg.(changedMsg); !ok {
		t.Fatalf("got %T, want changedMsg", msg)
	}
	cmd := send(t, m, msg)
	if cmd == nil {
		t.Error("model stopped listening for changes")
	}
	if m.groceries.Len() != 1 || m.groceries.Items()[0].Name != "Butter" {
		t.Errorf("rows = %+v", m.groceries.Items())
	}
}

func TestQuit(t *testing.T) {
	for _, k := range []tea.KeyMsg{runes("q"), esc} {
		m := newModel(t, memstore.New())
		cmd := send(t, m, k)
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not quit", k)
		}
	}
}

func TestRenderRow(t *testing.T) {
	rows := grocery.Render([]model.GroceryItem{
		model.NewGroceryItem("Apples", 5, true),
		model.NewGroceryItem("Bread", 2),
	})
	row := renderRow(rows[0], false)
	for _, want := range []string{circleChecked, "Apples", "Quantity: 5"} {
		if !strings.Contains(row, want) {
			t.Errorf("row %q missing %q", row, want)
		}
	}
	row = renderRow(rows[1], true)
	for _, want := range []string{circleUnchecked, "Bread", "Quantity: 2"} {
		if !strings.Contains(row, want) {
			t.Errorf("row %q missing %q", row, want)
		}
	}
}
