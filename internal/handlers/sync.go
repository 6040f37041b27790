package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"runclub-sync/internal/config"
	"runclub-sync/internal/database"
	"runclub-sync/internal/sync"
)

// SyncHandler exposes on-demand activity syncing to trusted callers
type SyncHandler struct {
	db           *database.DB
	config       *config.Config
	orchestrator *sync.Orchestrator
	logger       *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(db *database.DB, cfg *config.Config, orchestrator *sync.Orchestrator) *SyncHandler {
	return &SyncHandler{
		db:           db,
		config:       cfg,
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}
}

type syncRequest struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type syncFailure struct {
	Error string `json:"error"`
}

// HandleSync runs a windowed sync for one user. Requires the internal API key.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !authorized(r, h.config.InternalAPIKey) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.UserID == "" || req.StartDate == "" || req.EndDate == "" {
		http.Error(w, "user_id, start_date and end_date are required", http.StatusBadRequest)
		return
	}

	user, err := h.db.GetUser(req.UserID)
	if err != nil {
		h.logger.Error("Failed to load user for sync", "user_id", req.UserID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	result, err := h.orchestrator.SyncUserActivities(r.Context(), user, req.StartDate, req.EndDate)
	if err != nil {
		h.logger.Warn("Sync failed", "user_id", req.UserID, "error", err)

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, sync.ErrNotConnected),
			errors.Is(err, sync.ErrMissingToken),
			errors.Is(err, sync.ErrTokenExpiringSoon):
			status = http.StatusConflict
		}

		writeJSON(w, status, syncFailure{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// authorized checks the Authorization header for the shared internal key
func authorized(r *http.Request, key string) bool {
	header := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(bearer), []byte(key)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
