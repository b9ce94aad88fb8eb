package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/idilsaglam/grocery/internal/store/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestBroadcasterOrderAndCancel(t *testing.T) {
	var b store.Broadcaster
	var got []string
	cancelA := b.Watch(func(store.Change) { got = append(got, "a") })
	b.Watch(func(store.Change) { got = append(got, "b") })

	b.Publish(store.Change{Kind: store.Inserted})
	cancelA()
	cancelA() // second call is harmless
	b.Publish(store.Change{Kind: store.Deleted})

	want := []string{"a", "b", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBroadcasterCommit(t *testing.T) {
	var b store.Broadcaster
	var got []store.ChangeKind
	b.Watch(func(c store.Change) { got = append(got, c.Kind) })

	boom := errors.New("boom")
	tests := []struct {
		name    string
		changed bool
		err     error
		publish bool
	}{
		{"committed", true, nil, true},
		{"nothing changed", false, nil, false},
		{"failed", true, boom, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			err := b.Commit(func() (store.Change, bool, error) {
				return store.Change{Kind: store.Updated}, tt.changed, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if published := len(got) == 1; published != tt.publish {
				t.Errorf("published = %v, want %v", published, tt.publish)
			}
		})
	}
}

func TestFail(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		wantStore bool
	}{
		{"nil", nil, false},
		{"sentinel not found", store.ErrNotFound, false},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), store.ErrClosed), false},
		{"backend error", boom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Fail("insert", tt.err)
			var se *store.Error
			if got := errors.As(err, &se); got != tt.wantStore {
				t.Fatalf("errors.As = %v, want %v (err=%v)", got, tt.wantStore, err)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatalf("Fail must keep the cause reachable, got %v", err)
			}
		})
	}

	// already a store.Error: not double-wrapped
	first := store.Fail("update", boom)
	if again := store.Fail("delete", first); again != first {
		t.Fatalf("expected same error back, got %v", again)
	}
}

func TestSortByNameStable(t *testing.T) {
	items := []model.GroceryItem{
		{ID: "1", Name: "b"},
		{ID: "2", Name: "a"},
		{ID: "3", Name: "b"},
		{ID: "4", Name: "B"},
	}
	store.SortByName(items)
	want := []string{"4", "2", "1", "3"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, items[i].ID, id)
		}
	}
}

func TestInstrumentCountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := store.NewMetrics(reg)
	s := store.Instrument(memstore.New(), m, zap.NewNop())
	ctx := context.Background()

	it := model.NewGroceryItem("Milk", 1)
	if err := s.Insert(ctx, it); err != nil {
		t.Fatal(err)
	}
	if _, err := s.All(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(ctx, "missing", model.SetChecked(true)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "grocery_store_operations_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 label sets, got %d", n)
	}

	seen := 0
	cancel := s.Watch(func(store.Change) { seen++ })
	defer cancel()
	if err := s.Delete(ctx, it.ID); err != nil {
		t.Fatal(err)
	}
	if seen != 1 {
		t.Fatal("Watch must pass through to the wrapped store")
	}
}
