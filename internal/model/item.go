package model

import "github.com/google/uuid"

// GroceryItem is the domain model for a grocery list entry.
// The entity accepts any name and quantity; callers validate before constructing.
type GroceryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	IsChecked bool   `json:"is_checked"`
}

// NewGroceryItem creates an item with a fresh identity. checked defaults to false.
func NewGroceryItem(name string, quantity int, checked ...bool) GroceryItem {
	it := GroceryItem{
		ID:       uuid.NewString(),
		Name:     name,
		Quantity: quantity,
	}
	if len(checked) > 0 {
		it.IsChecked = checked[0]
	}
	return it
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Quantity  *int    `json:"quantity,omitempty"`
	IsChecked *bool   `json:"is_checked,omitempty"`

	// ToggleChecked flips IsChecked against the stored value, after IsChecked
	// is applied.
	ToggleChecked bool `json:"-"`
}

// Apply returns a copy of it with the patch applied. The ID never changes.
func (p Patch) Apply(it GroceryItem) GroceryItem {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.IsChecked != nil {
		it.IsChecked = *p.IsChecked
	}
	if p.ToggleChecked {
		it.IsChecked = !it.IsChecked
	}
	return it
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.IsChecked == nil && !p.ToggleChecked
}

// SetChecked builds a patch that only touches IsChecked.
func SetChecked(v bool) Patch { return Patch{IsChecked: &v} }

// Toggle builds a patch that flips IsChecked on whatever the store holds.
func Toggle() Patch { return Patch{ToggleChecked: true} }
