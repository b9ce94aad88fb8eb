// Package memstore is an in-memory item store. With a persist hook it backs
// the file store as well.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
)

// PersistFunc receives the full item set, in insertion order, before a
// mutation is committed. Returning an error aborts the mutation.
type PersistFunc func(items []model.GroceryItem) error

type Option func(*Store)

// WithItems seeds the store. Order is kept as insertion order.
func WithItems(items []model.GroceryItem) Option {
	return func(s *Store) {
		s.items = append(s.items, items...)
	}
}

func WithPersist(fn PersistFunc) Option {
	return func(s *Store) { s.persist = fn }
}

// Store keeps items in insertion order; All sorts on the way out.
type Store struct {
	mu      sync.RWMutex
	items   []model.GroceryItem
	persist PersistFunc
	closed  bool

	store.Broadcaster
}

var _ store.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) All(ctx context.Context) ([]model.GroceryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]model.GroceryItem, len(s.items))
	copy(out, s.items)
	store.SortByName(out)
	return out, nil
}

// Snapshot returns the items in insertion order.
func (s *Store) Snapshot() []model.GroceryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.GroceryItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Insert(ctx context.Context, item model.GroceryItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Commit(func() (store.Change, bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return store.Change{}, false, store.ErrClosed
		}
		if s.indexOf(item.ID) >= 0 {
			return store.Change{}, false, fmt.Errorf("insert %s: %w", item.ID, store.ErrDuplicateID)
		}
		next := make([]model.GroceryItem, len(s.items), len(s.items)+1)
		copy(next, s.items)
		next = append(next, item)
		if err := s.commit(next); err != nil {
			return store.Change{}, false, store.Fail("insert", err)
		}
		return store.Change{Kind: store.Inserted, Item: item}, true, nil
	})
}

// Update applies p under the write lock, so a toggle flips the stored value.
func (s *Store) Update(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error) {
	if err := ctx.Err(); err != nil {
		return model.GroceryItem{}, err
	}
	var updated model.GroceryItem
	err := s.Commit(func() (store.Change, bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return store.Change{}, false, store.ErrClosed
		}
		i := s.indexOf(id)
		if i < 0 {
			return store.Change{}, false, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
		}
		if p.Empty() {
			updated = s.items[i]
			return store.Change{}, false, nil
		}
		it := p.Apply(s.items[i])
		next := make([]model.GroceryItem, len(s.items))
		copy(next, s.items)
		next[i] = it
		if err := s.commit(next); err != nil {
			return store.Change{}, false, store.Fail("update", err)
		}
		updated = it
		return store.Change{Kind: store.Updated, Item: it}, true, nil
	})
	if err != nil {
		return model.GroceryItem{}, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Commit(func() (store.Change, bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return store.Change{}, false, store.ErrClosed
		}
		i := s.indexOf(id)
		if i < 0 {
			return store.Change{}, false, nil
		}
		removed := s.items[i]
		next := make([]model.GroceryItem, 0, len(s.items)-1)
		next = append(next, s.items[:i]...)
		next = append(next, s.items[i+1:]...)
		if err := s.commit(next); err != nil {
			return store.Change{}, false, store.Fail("delete", err)
		}
		return store.Change{Kind: store.Deleted, Item: removed}, true, nil
	})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// commit persists next (if a hook is set) and swaps it in. Caller holds mu.
func (s *Store) commit(next []model.GroceryItem) error {
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return err
		}
	}
	s.items = next
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
