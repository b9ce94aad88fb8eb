package grocery

import (
	"context"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/idilsaglam/grocery/internal/store/memstore"
)

// storeMock delegates to an in-memory store unless a Func override is set.
type storeMock struct {
	*memstore.Store

	InsertFunc func(ctx context.Context, item model.GroceryItem) error
	UpdateFunc func(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error)
	DeleteFunc func(ctx context.Context, id string) error

	InsertCalls int
	UpdateCalls int
	DeleteCalls int
}

var _ store.Store = (*storeMock)(nil)

func newStoreMock() *storeMock {
	return &storeMock{Store: memstore.New()}
}

func (m *storeMock) Insert(ctx context.Context, item model.GroceryItem) error {
	m.InsertCalls++
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, item)
	}
	return m.Store.Insert(ctx, item)
}

func (m *storeMock) Update(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error) {
	m.UpdateCalls++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, p)
	}
	return m.Store.Update(ctx, id, p)
}

func (m *storeMock) Delete(ctx context.Context, id string) error {
	m.DeleteCalls++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return m.Store.Delete(ctx, id)
}
