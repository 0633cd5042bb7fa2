package imports

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"jobgrid/importer/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, pagination, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list import runs", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "failed to list import runs", http.StatusInternalServerError)
		return
	}

	if runs == nil {
		runs = []ImportRun{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       runs,
		"pagination": pagination,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		h.writeError(r.Context(), w, "NOT_FOUND", "import run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch import run", "id", id, "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "failed to fetch import run", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": run})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to aggregate import stats", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "failed to aggregate import stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": stats})
}

// Trigger starts an on-demand import of all configured feeds and reports
// the per-feed dispatch outcome.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	summary := h.service.Trigger(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": summary})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
