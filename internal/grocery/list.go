// Package grocery holds the list view and add-item form logic, independent of
// how they are drawn.
package grocery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
)

var ErrPositionOutOfRange = errors.New("position out of range")

// Row is what a list row displays for one item.
type Row struct {
	Item          model.GroceryItem
	Checked       bool
	Strikethrough bool
	Label         string
	QuantityLabel string
}

// List is the live view over a store: the displayed sequence is the store's
// sorted query, re-read on Refresh.
type List struct {
	store store.Store
	items []model.GroceryItem
	form  *Form
}

func NewList(s store.Store) *List {
	return &List{store: s}
}

// Refresh re-runs the live query.
func (l *List) Refresh(ctx context.Context) error {
	items, err := l.store.All(ctx)
	if err != nil {
		return err
	}
	l.items = items
	return nil
}

// Items is the currently displayed sequence.
func (l *List) Items() []model.GroceryItem {
	out := make([]model.GroceryItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Len() int { return len(l.items) }

// Rows projects the displayed items. No side effects.
func (l *List) Rows() []Row {
	return Render(l.items)
}

// Render projects items into rows. The checked look derives only from IsChecked.
func Render(items []model.GroceryItem) []Row {
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = Row{
			Item:          it,
			Checked:       it.IsChecked,
			Strikethrough: it.IsChecked,
			Label:         it.Name,
			QuantityLabel: fmt.Sprintf("Quantity: %d", it.Quantity),
		}
	}
	return rows
}

// Summary counts checked and pending items in the displayed sequence.
func (l *List) Summary() (checked, pending int) {
	for _, it := range l.items {
		if it.IsChecked {
			checked++
		} else {
			pending++
		}
	}
	return
}

// ToggleChecked flips IsChecked on the item with id in a single store update.
// The flip is applied to the stored value, not the displayed one.
func (l *List) ToggleChecked(ctx context.Context, id string) (model.GroceryItem, error) {
	updated, err := l.store.Update(ctx, id, model.Toggle())
	if err != nil {
		return model.GroceryItem{}, err
	}
	l.replace(updated)
	return updated, l.Refresh(ctx)
}

// ToggleAt toggles the item shown at position.
func (l *List) ToggleAt(ctx context.Context, position int) (model.GroceryItem, error) {
	if position < 0 || position >= len(l.items) {
		return model.GroceryItem{}, fmt.Errorf("toggle %d (have %d): %w", position, len(l.items), ErrPositionOutOfRange)
	}
	return l.ToggleChecked(ctx, l.items[position].ID)
}

// DeleteAt removes the items shown at the given positions. All positions are
// resolved against the displayed sequence before anything is deleted.
func (l *List) DeleteAt(ctx context.Context, positions ...int) error {
	uniq := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(l.items) {
			return fmt.Errorf("delete %d (have %d): %w", p, len(l.items), ErrPositionOutOfRange)
		}
		uniq[p] = true
	}
	ordered := make([]int, 0, len(uniq))
	for p := range uniq {
		ordered = append(ordered, p)
	}
	sort.Ints(ordered)

	ids := make([]string, len(ordered))
	for i, p := range ordered {
		ids[i] = l.items[p].ID
	}
	for _, id := range ids {
		if err := l.store.Delete(ctx, id); err != nil {
			// keep the view consistent with whatever did get deleted
			_ = l.Refresh(ctx)
			return err
		}
	}
	return l.Refresh(ctx)
}

// Watch calls fn after every store change so the view can refresh.
func (l *List) Watch(fn func(store.Change)) (cancel func()) {
	return l.store.Watch(fn)
}

// OpenForm presents the add-item form, or returns the one already open.
func (l *List) OpenForm() *Form {
	if l.form == nil {
		l.form = newForm(l)
	}
	return l.form
}

// Form is the open form, nil when closed.
func (l *List) Form() *Form { return l.form }

func (l *List) Presenting() bool { return l.form != nil }

func (l *List) closeForm(f *Form) {
	if l.form == f {
		l.form = nil
	}
}

func (l *List) find(id string) (model.GroceryItem, bool) {
	for _, it := range l.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.GroceryItem{}, false
}

func (l *List) replace(it model.GroceryItem) {
	for i := range l.items {
		if l.items[i].ID == it.ID {
			l.items[i] = it
			return
		}
	}
}
