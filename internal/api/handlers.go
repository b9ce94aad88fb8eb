// Package api serves the item store over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/idilsaglam/grocery/internal/grocery"
	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handler struct {
	store    store.Store
	validate *validator.Validate
	logger   *zap.Logger
	token    string
}

func NewHandler(s store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: s, validate: newValidator(), logger: logger}
}

// WithToken requires "Authorization: Bearer <token>" on /items. An empty token
// leaves the API open.
func (h *Handler) WithToken(token string) *Handler {
	h.token = token
	return h
}

// Router wires the routes. metrics may be nil.
func (h *Handler) Router(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	r.Route("/items", func(r chi.Router) {
		if h.token != "" {
			r.Use(requireToken(h.token))
		}
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.Patch)
		r.Post("/{id}/toggle", h.Toggle)
		r.Delete("/{id}", h.Delete)
	})
	return otelhttp.NewHandler(r, "grocery-api")
}

// Health returns 200 OK with body "OK".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// List returns every item sorted by name.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.All(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Create inserts a new item; name required, quantity in [1,100] and 1 when absent.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	qty := grocery.DefaultQuantity
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	it := model.NewGroceryItem(req.Name, qty, req.IsChecked)
	if err := h.store.Insert(r.Context(), it); err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// Patch applies a partial update.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	it, err := h.store.Update(r.Context(), id, model.Patch{
		Name:      req.Name,
		Quantity:  req.Quantity,
		IsChecked: req.IsChecked,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Toggle flips IsChecked on one item in a single store update.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	it, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), model.Toggle())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Delete removes an item. Missing ids still answer 204.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "item not found", http.StatusNotFound)
	case errors.Is(err, store.ErrDuplicateID):
		http.Error(w, "item already exists", http.StatusConflict)
	case errors.Is(err, store.ErrClosed):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("store failure", zap.Error(err))
		http.Error(w, "store failure", http.StatusInternalServerError)
	}
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
