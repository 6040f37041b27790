package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"runclub-sync/internal/config"
	"runclub-sync/internal/database"
	"runclub-sync/internal/points"
)

func setupStandingsTest(t *testing.T) (*StandingsHandler, *database.DB) {
	db, err := database.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{InternalAPIKey: "secret_key"}
	handler := NewStandingsHandler(cfg, points.NewAggregator(db))

	return handler, db
}

func TestHandleStandings(t *testing.T) {
	handler, db := setupStandingsTest(t)

	event := &database.Event{
		Name:             "Autumn 100k",
		StartDate:        "2025-10-01",
		EndDate:          "2025-10-31",
		RegistrationOpen: true,
		Teams:            []database.Team{{Name: "Red"}, {Name: "Blue"}},
	}
	if err := db.CreateEvent(event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if _, err := db.RegisterParticipant(event, "user-1", event.Teams[0].ID); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/events/"+event.ID+"/standings", nil)
	req.Header.Set("Authorization", "Bearer secret_key")
	w := httptest.NewRecorder()

	handler.HandleStandings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var standings []points.TeamStanding
	if err := json.NewDecoder(w.Body).Decode(&standings); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(standings) != 2 {
		t.Fatalf("Expected 2 teams, got %d", len(standings))
	}
	if standings[0].Rank != 1 || standings[1].Rank != 2 {
		t.Errorf("Expected ranks 1 and 2, got %+v", standings)
	}
}

func TestHandleStandings_Unauthorized(t *testing.T) {
	handler, _ := setupStandingsTest(t)

	req := httptest.NewRequest(http.MethodGet, "/events/e1/standings", nil)
	w := httptest.NewRecorder()

	handler.HandleStandings(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/events/e1/standings", nil)
	req.Header.Set("Authorization", "Bearer wrong_key")
	w = httptest.NewRecorder()

	handler.HandleStandings(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong key, got %d", w.Code)
	}
}

func TestHandleStandings_EventNotFound(t *testing.T) {
	handler, _ := setupStandingsTest(t)

	req := httptest.NewRequest(http.MethodGet, "/events/missing/standings", nil)
	req.Header.Set("Authorization", "Bearer secret_key")
	w := httptest.NewRecorder()

	handler.HandleStandings(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestHandleStandings_BadPath(t *testing.T) {
	handler, _ := setupStandingsTest(t)

	req := httptest.NewRequest(http.MethodGet, "/events//standings", nil)
	req.Header.Set("Authorization", "Bearer secret_key")
	w := httptest.NewRecorder()

	handler.HandleStandings(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}
