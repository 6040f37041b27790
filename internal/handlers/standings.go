package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"runclub-sync/internal/config"
	"runclub-sync/internal/points"
)

// StandingsHandler serves live team rankings for an event
type StandingsHandler struct {
	config     *config.Config
	aggregator *points.Aggregator
	logger     *slog.Logger
}

// NewStandingsHandler creates a new standings handler
func NewStandingsHandler(cfg *config.Config, aggregator *points.Aggregator) *StandingsHandler {
	return &StandingsHandler{
		config:     cfg,
		aggregator: aggregator,
		logger:     slog.Default(),
	}
}

// HandleStandings answers GET /events/{id}/standings. Requires the internal
// API key.
func (h *StandingsHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !authorized(r, h.config.InternalAPIKey) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	eventID := strings.TrimPrefix(r.URL.Path, "/events/")
	eventID = strings.TrimSuffix(eventID, "/standings")
	if eventID == "" || strings.Contains(eventID, "/") {
		http.Error(w, "Invalid event path", http.StatusBadRequest)
		return
	}

	standings, err := h.aggregator.EventStandings(eventID)
	if err != nil {
		if errors.Is(err, points.ErrEventNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to compute standings", "event_id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, standings)
}
