// Package report serves the read-only query API over persisted events.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mteodoro/riskstream/internal/event"
	"github.com/mteodoro/riskstream/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Store is the read side over persisted events.
type Store interface {
	GetByID(ctx context.Context, id string) (*store.Record, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]store.Record, error)
	ListByRiskLevel(ctx context.Context, level string, limit int) ([]store.Record, error)
	CountEvents(ctx context.Context) (int64, error)
}

// Handler holds the query endpoints' dependencies.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// New creates the HTTP handler and registers all routes.
func New(st Store, logger *slog.Logger) http.Handler {
	h := &Handler{store: st, logger: logger.With("component", "report")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/events", h.listByRisk)
	r.Get("/v1/events/{id}", h.getEvent)
	r.Get("/v1/customers/{id}/events", h.listByCustomer)
	return r
}

type eventList struct {
	Count  int               `json:"count"`
	Events []json.RawMessage `json:"events"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GET /v1/events/{id}
func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "no event with that id")
		return
	}
	if err != nil {
		h.logger.Error("event lookup failed", "event_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "backend_unavailable", "failed to read event")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(rec.Payload)
}

// GET /v1/events?risk=HIGH&limit=50
func (h *Handler) listByRisk(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("risk")
	if level != event.RiskHigh && level != event.RiskLow {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "risk must be HIGH or LOW")
		return
	}

	recs, err := h.store.ListByRiskLevel(r.Context(), level, limitParam(r))
	if err != nil {
		h.logger.Error("risk query failed", "risk", level, "err", err)
		writeError(w, http.StatusInternalServerError, "backend_unavailable", "failed to query events")
		return
	}
	writeList(w, recs)
}

// GET /v1/customers/{id}/events
func (h *Handler) listByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	recs, err := h.store.ListByCustomer(r.Context(), customerID, limitParam(r))
	if err != nil {
		h.logger.Error("customer query failed", "customer_id", customerID, "err", err)
		writeError(w, http.StatusInternalServerError, "backend_unavailable", "failed to query events")
		return
	}
	writeList(w, recs)
}

// GET /healthz
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.CountEvents(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "backend_unavailable", "store unreachable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func limitParam(r *http.Request) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func writeList(w http.ResponseWriter, recs []store.Record) {
	list := eventList{Count: len(recs), Events: make([]json.RawMessage, len(recs))}
	for i, rec := range recs {
		list.Events[i] = json.RawMessage(rec.Payload)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: code, Message: msg})
}
