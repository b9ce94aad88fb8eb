package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/idilsaglam/grocery/internal/grocery"
	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/idilsaglam/grocery/internal/store/memstore"
)

type failingStore struct {
	*memstore.Store
	err error
}

func (f *failingStore) All(context.Context) ([]model.GroceryItem, error) { return nil, f.err }

func newServer(t *testing.T, s store.Store) http.Handler {
	t.Helper()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	})
	return NewHandler(s, nil).Router(metrics)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"name":"Milk","quantity":1}`, http.StatusCreated},
		{"checked", `{"name":"Apples","quantity":5,"is_checked":true}`, http.StatusCreated},
		{"empty name", `{"name":"","quantity":1}`, http.StatusBadRequest},
		{"quantity zero", `{"name":"Milk","quantity":0}`, http.StatusBadRequest},
		{"quantity too big", `{"name":"Milk","quantity":101}`, http.StatusBadRequest},
		{"bad json", `{"name":`, http.StatusBadRequest},
		{"quantity absent", `{"name":"Salt"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memstore.New()
			rr := do(t, newServer(t, s), http.MethodPost, "/items/", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			items, _ := s.All(context.Background())
			if tt.wantStatus == http.StatusCreated {
				var got model.GroceryItem
				if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if got.ID == "" || len(items) != 1 || items[0] != got {
					t.Fatalf("item not stored: %+v vs %+v", got, items)
				}
			} else if len(items) != 0 {
				t.Fatal("rejected request must not insert")
			}
		})
	}
}

func TestListSorted(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	for _, it := range []model.GroceryItem{
		model.NewGroceryItem("Bread", 2),
		model.NewGroceryItem("Apples", 5, true),
		model.NewGroceryItem("Eggs", 12),
	} {
		_ = s.Insert(ctx, it)
	}
	rr := do(t, newServer(t, s), http.MethodGet, "/items/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var got []model.GroceryItem
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Name != "Apples" || got[1].Name != "Bread" || got[2].Name != "Eggs" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestPatchToggleDelete(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	apples := model.NewGroceryItem("Apples", 5, true)
	bread := model.NewGroceryItem("Bread", 2)
	_ = s.Insert(ctx, apples)
	_ = s.Insert(ctx, bread)
	h := newServer(t, s)

	rr := do(t, h, http.MethodPost, "/items/"+apples.ID+"/toggle", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status %d", rr.Code)
	}
	var toggled model.GroceryItem
	_ = json.NewDecoder(rr.Body).Decode(&toggled)
	if toggled.IsChecked {
		t.Fatal("toggle should uncheck Apples")
	}

	rr = do(t, h, http.MethodPatch, "/items/"+bread.ID, `{"quantity":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status %d", rr.Code)
	}
	rr = do(t, h, http.MethodPatch, "/items/"+bread.ID, `{"quantity":0}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid patch status %d", rr.Code)
	}
	rr = do(t, h, http.MethodPatch, "/items/missing", `{"is_checked":true}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing patch status %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/items/missing/toggle", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing toggle status %d", rr.Code)
	}

	items, _ := s.All(ctx)
	if items[0].IsChecked || items[1].Quantity != 3 {
		t.Fatalf("unexpected state %+v", items)
	}

	for i := 0; i < 2; i++ {
		rr = do(t, h, http.MethodDelete, "/items/"+apples.ID, "")
		if rr.Code != http.StatusNoContent {
			t.Fatalf("delete #%d status %d", i+1, rr.Code)
		}
	}
	items, _ = s.All(ctx)
	if len(items) != 1 || items[0].ID != bread.ID {
		t.Fatalf("unexpected state after delete %+v", items)
	}
}

func TestCreateDefaultsQuantity(t *testing.T) {
	s := memstore.New()
	rr := do(t, newServer(t, s), http.MethodPost, "/items/", `{"name":"Salt"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	items, _ := s.All(context.Background())
	if len(items) != 1 || items[0].Quantity != grocery.DefaultQuantity {
		t.Fatalf("stored %+v, want quantity %d", items, grocery.DefaultQuantity)
	}
}

// slowStore widens the window between a request arriving and the store update.
type slowStore struct {
	*memstore.Store
}

func (s slowStore) Update(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Update(ctx, id, p)
}

func TestConcurrentTogglesAreNotLost(t *testing.T) {
	ctx := context.Background()
	milk := model.NewGroceryItem("Milk", 1)
	mem := memstore.New(memstore.WithItems([]model.GroceryItem{milk}))
	h := newServer(t, slowStore{mem})

	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPost, "/items/"+milk.ID+"/toggle", nil)
				rr := httptest.NewRecorder()
				h.ServeHTTP(rr, req)
				if rr.Code != http.StatusOK {
					t.Errorf("toggle status %d", rr.Code)
				}
			}()
		}
		wg.Wait()

		items, _ := mem.All(ctx)
		if items[0].IsChecked {
			t.Fatalf("round %d: two toggles left Milk checked", round)
		}
	}
}

func TestStoreFailureIs500(t *testing.T) {
	s := &failingStore{Store: memstore.New(), err: &store.Error{Op: "all", Err: errors.New("boom")}}
	rr := do(t, newServer(t, s), http.MethodGet, "/items/", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(t, memstore.New())
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Body.String() != "metrics" {
		t.Fatalf("metrics handler not mounted: %q", rr.Body.String())
	}
}
