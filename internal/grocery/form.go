package grocery

import (
	"context"
	"errors"

	"github.com/idilsaglam/grocery/internal/model"
)

const (
	MinQuantity     = 1
	MaxQuantity     = 100
	DefaultQuantity = 1
)

// ErrConfirmUnavailable is returned when Confirm is invoked with an empty name
// or on a form that is no longer presented.
var ErrConfirmUnavailable = errors.New("confirm unavailable: name is empty")

// Form holds the draft of a new item. Nothing reaches the store until Confirm.
type Form struct {
	Name     string
	Quantity int

	list *List
}

func newForm(l *List) *Form {
	return &Form{Quantity: DefaultQuantity, list: l}
}

func (f *Form) SetName(name string) { f.Name = name }

// SetQuantity clamps q into [MinQuantity, MaxQuantity].
func (f *Form) SetQuantity(q int) { f.Quantity = ClampQuantity(q) }

func (f *Form) Increment() { f.SetQuantity(f.Quantity + 1) }
func (f *Form) Decrement() { f.SetQuantity(f.Quantity - 1) }

// CanConfirm is true for any non-empty name.
func (f *Form) CanConfirm() bool { return f.Name != "" }

// Confirm inserts the draft as an unchecked item and closes the form. On a
// store failure the form stays open with the draft intact.
func (f *Form) Confirm(ctx context.Context) (model.GroceryItem, error) {
	if !f.CanConfirm() || f.list.form != f {
		return model.GroceryItem{}, ErrConfirmUnavailable
	}
	it := model.NewGroceryItem(f.Name, ClampQuantity(f.Quantity))
	if err := f.list.store.Insert(ctx, it); err != nil {
		return model.GroceryItem{}, err
	}
	f.list.closeForm(f)
	return it, f.list.Refresh(ctx)
}

// Cancel discards the draft and closes the form.
func (f *Form) Cancel() {
	f.Name = ""
	f.Quantity = DefaultQuantity
	f.list.closeForm(f)
}

func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
