// Package store defines the Item Store contract shared by every backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/idilsaglam/grocery/internal/model"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrDuplicateID = errors.New("item id already exists")
	ErrClosed      = errors.New("store is closed")
)

// Store is a durable collection of grocery items.
type Store interface {
	// All returns every item sorted by name ascending. Ties keep insertion order.
	All(ctx context.Context) ([]model.GroceryItem, error)

	// Insert persists a new item.
	Insert(ctx context.Context, item model.GroceryItem) error

	// Update applies a patch to the item with the given id and returns the result.
	Update(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error)

	// Delete removes the item. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id string) error

	// Watch registers fn for every change after it is durable.
	Watch(fn func(Change)) (cancel func())

	Close() error
}

// Error marks a backend failure for a single operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Fail wraps err as a store failure for op. Sentinel errors pass through untouched.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateID) || errors.Is(err, ErrClosed) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// SortByName orders items by name, keeping the incoming order for equal names.
func SortByName(items []model.GroceryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
}
