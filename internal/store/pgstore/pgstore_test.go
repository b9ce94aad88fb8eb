package pgstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestBuildUpdate(t *testing.T) {
	name := "Oat milk"
	qty := 3

	tests := []struct {
		name     string
		patch    model.Patch
		contains []string
		args     int
	}{
		{"empty patch selects", model.Patch{}, []string{"SELECT id, name, quantity, is_checked FROM grocery_items WHERE id = $1"}, 1},
		{"checked only", model.SetChecked(true), []string{"UPDATE grocery_items SET", "is_checked = $", "updated_at = now()", "RETURNING id, name, quantity, is_checked"}, 2},
		{"all fields", model.Patch{Name: &name, Quantity: &qty, IsChecked: new(bool)}, []string{"name = $", "quantity = $", "is_checked = $"}, 4},
		{"toggle flips in place", model.Toggle(), []string{"is_checked = NOT is_checked", "RETURNING id, name, quantity, is_checked"}, 1},
		{"set then toggle", model.Patch{IsChecked: new(bool), ToggleChecked: true}, []string{"is_checked = $"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildUpdate("id-1", tt.patch).ToSql()
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range tt.contains {
				if !strings.Contains(query, c) {
					t.Errorf("query %q missing %q", query, c)
				}
			}
			if len(args) != tt.args {
				t.Errorf("got %d args, want %d (%v)", len(args), tt.args, args)
			}
		})
	}
}

func TestSelectAllOrdering(t *testing.T) {
	query, _, err := selectAll().ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(query, `ORDER BY name COLLATE "C", seq`) {
		t.Fatalf("unexpected ordering clause: %s", query)
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection failure class", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("nope"), false},
	}
	for _, tt := range tests {
		if got := isRetriable(tt.err); got != tt.want {
			t.Errorf("%s: isRetriable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// Integration test. Requires GROCERY_TEST_DATABASE_URL.
func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := os.Getenv("GROCERY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping postgres integration test: GROCERY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(ctx, "TRUNCATE grocery_items"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	var changes []store.ChangeKind
	cancel := s.Watch(func(c store.Change) { changes = append(changes, c.Kind) })
	defer cancel()

	bread := model.NewGroceryItem("Bread", 2)
	apples := model.NewGroceryItem("Apples", 5, true)
	eggs := model.NewGroceryItem("Eggs", 12)
	for _, it := range []model.GroceryItem{bread, apples, eggs} {
		if err := s.Insert(ctx, it); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := s.Insert(ctx, bread); !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.GroceryItem{apples, bread, eggs}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	updated, err := s.Update(ctx, apples.ID, model.SetChecked(false))
	if err != nil || updated.IsChecked {
		t.Fatalf("update: %+v %v", updated, err)
	}
	if _, err := s.Update(ctx, "missing", model.SetChecked(true)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(ctx, apples.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, apples.ID); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	got, _ = s.All(ctx)
	if len(got) != 2 || got[0] != bread || got[1] != eggs {
		t.Fatalf("after delete got %+v", got)
	}

	if len(changes) != 5 {
		t.Fatalf("expected 5 changes, got %v", changes)
	}

	for _, want := range []bool{true, false} {
		it, err := s.Update(ctx, bread.ID, model.Toggle())
		if err != nil || it.IsChecked != want {
			t.Fatalf("toggle: %+v %v, want IsChecked=%v", it, err, want)
		}
	}
}
