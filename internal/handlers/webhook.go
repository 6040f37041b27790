package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"runclub-sync/internal/config"
	"runclub-sync/internal/database"
	"runclub-sync/internal/metrics"
	"runclub-sync/internal/points"
	"runclub-sync/internal/sync"
)

// notification is the push payload Strava sends on activity and athlete events
type notification struct {
	ObjectType     string            `json:"object_type"`
	ObjectID       int64             `json:"object_id"`
	AspectType     string            `json:"aspect_type"`
	OwnerID        int64             `json:"owner_id"`
	SubscriptionID int64             `json:"subscription_id"`
	EventTime      int64             `json:"event_time"`
	Updates        map[string]string `json:"updates"`
}

// WebhookHandler handles Strava webhook callbacks
type WebhookHandler struct {
	db           *database.DB
	config       *config.Config
	orchestrator *sync.Orchestrator
	aggregator   *points.Aggregator
	logger       *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(db *database.DB, cfg *config.Config, orchestrator *sync.Orchestrator, aggregator *points.Aggregator) *WebhookHandler {
	return &WebhookHandler{
		db:           db,
		config:       cfg,
		orchestrator: orchestrator,
		aggregator:   aggregator,
		logger:       slog.Default(),
	}
}

// ServeHTTP dispatches verification (GET) and notification (POST) requests
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerification(w, r)
	case http.MethodPost:
		h.handleNotification(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerification answers the subscription verification handshake
func (h *WebhookHandler) handleVerification(w http.ResponseWriter, r *http.Request) {
	hubMode := r.URL.Query().Get("hub.mode")
	hubChallenge := r.URL.Query().Get("hub.challenge")
	hubVerifyToken := r.URL.Query().Get("hub.verify_token")

	h.logger.Info("Webhook verification request",
		"hub.mode", hubMode,
		"hub.challenge", hubChallenge[:min(20, len(hubChallenge))],
	)

	if hubMode != "subscribe" || hubVerifyToken != h.config.StravaVerifyToken {
		h.logger.Warn("Webhook verification rejected", "hub.mode", hubMode)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(map[string]string{"hub.challenge": hubChallenge}); err != nil {
		h.logger.Error("Failed to encode challenge response", "error", err)
	}

	h.logger.Info("Webhook verification successful")
}

// handleNotification processes a push notification. It always responds 200 so
// Strava does not retry or disable the subscription; failures are logged and
// counted instead.
func (h *WebhookHandler) handleNotification(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var n notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.logger.Error("Invalid JSON in webhook body", "error", err)
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookError).Inc()
		h.respond(w, "Invalid payload")
		return
	}

	h.logger.Info("Received webhook event",
		"object_type", n.ObjectType,
		"object_id", n.ObjectID,
		"aspect_type", n.AspectType,
		"owner_id", n.OwnerID,
	)

	// Only new-activity events feed the pipeline. Updates, deletes and
	// athlete events (e.g. deauthorization) are acknowledged and dropped.
	if n.ObjectType != "activity" || n.AspectType != "create" {
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookIgnored).Inc()
		h.respond(w, "EVENT_RECEIVED")
		return
	}

	user, err := h.db.GetUserByAthleteID(strconv.FormatInt(n.OwnerID, 10))
	if err != nil {
		h.logger.Error("Failed to look up webhook owner", "owner_id", n.OwnerID, "error", err)
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookError).Inc()
		h.respond(w, "Lookup failed")
		return
	}
	if user == nil {
		h.logger.Warn("Webhook for unknown athlete", "owner_id", n.OwnerID)
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookUserNotFound).Inc()
		h.respond(w, "User not found")
		return
	}

	if user.AccessToken == "" {
		h.logger.Warn("Webhook owner has no access token", "user_id", user.ID)
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookNoToken).Inc()
		h.respond(w, "No access token")
		return
	}

	inserted, err := h.orchestrator.SyncSingleActivity(r.Context(), user, n.ObjectID)
	if err != nil {
		h.logger.Error("Failed to process webhook activity",
			"user_id", user.ID,
			"activity_id", n.ObjectID,
			"error", err)
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookError).Inc()
		h.respond(w, "Processing failed")
		return
	}

	if !inserted {
		metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookDuplicate).Inc()
		h.respond(w, "Activity exists")
		return
	}

	// A new activity may move the owner's standings in any active event
	if err := h.aggregator.RecalculateForUser(user.ID); err != nil {
		h.logger.Error("Failed to recalculate points after webhook",
			"user_id", user.ID,
			"error", err)
	}

	metrics.WebhookEventsProcessedTotal.WithLabelValues(metrics.WebhookStored).Inc()
	h.respond(w, "OK")
}

func (h *WebhookHandler) respond(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(message)); err != nil {
		h.logger.Error("Failed to write webhook response", "error", err)
	}
}

// min returns the minimum of two integers
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
