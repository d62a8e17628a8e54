package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nexpass/gocardless-sync/pkg/logging"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
)

// SyncRunner runs one synchronization cycle.
type SyncRunner interface {
	Run(ctx context.Context) (*models.SyncResult, error)
}

// Handler exposes the sync pipeline over HTTP for local development and
// manual triggering. It holds the application's dependencies.
type Handler struct {
	Syncer SyncRunner
	Store  storage.RequisitionStore
}

// NewHandler creates a Handler.
func NewHandler(syncer SyncRunner, store storage.RequisitionStore) *Handler {
	return &Handler{Syncer: syncer, Store: store}
}

// RunSync triggers one synchronization cycle and returns the structured
// result. Operational errors never surface as raw errors to the caller.
func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.Syncer.Run(r.Context())
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("sync run failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListRequisitions returns the requisitions linked to a user. Dev-only read
// surface; requisition fields other than the user id stay encrypted.
func (h *Handler) ListRequisitions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId query parameter", http.StatusBadRequest)
		return
	}

	requisitions, err := h.Store.UserRequisitions(r.Context(), userID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list requisitions: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, requisitions)
}

// Healthz reports process liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}
