package store

import (
	"sync"

	"github.com/idilsaglam/grocery/internal/model"
)

type ChangeKind string

const (
	Inserted ChangeKind = "inserted"
	Updated  ChangeKind = "updated"
	Deleted  ChangeKind = "deleted"
)

// Change describes one mutation. Item is the state after the change
// (for deletes, the last known state).
type Change struct {
	Kind ChangeKind        `json:"kind"`
	Item model.GroceryItem `json:"item"`
}

// Broadcaster fans changes out to registered watchers in registration order.
// The zero value is ready to use.
type Broadcaster struct {
	commitMu sync.Mutex
	mu       sync.Mutex
	next     int
	watchers map[int]func(Change)
	order    []int
}

func (b *Broadcaster) Watch(fn func(Change)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watchers == nil {
		b.watchers = make(map[int]func(Change))
	}
	id := b.next
	b.next++
	b.watchers[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.watchers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Commit runs mutate and publishes the change it reports while holding the
// commit lock, so watchers see changes in the order they were committed.
// Watchers must not mutate the store from inside the callback.
func (b *Broadcaster) Commit(mutate func() (c Change, changed bool, err error)) error {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()
	c, changed, err := mutate()
	if err != nil || !changed {
		return err
	}
	b.Publish(c)
	return nil
}

// Publish calls every watcher. Must not be called with a store lock held.
func (b *Broadcaster) Publish(c Change) {
	b.mu.Lock()
	fns := make([]func(Change), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.watchers[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
