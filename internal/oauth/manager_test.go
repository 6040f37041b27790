package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"runclub-sync/internal/config"
	"runclub-sync/internal/database"
	"runclub-sync/internal/strava"
)

func setupOAuthTest(t *testing.T) (*Manager, *database.DB, *strava.Client) {
	dbPath := t.TempDir() + "/test.db"
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		StravaClientID:     "test_client_id",
		StravaClientSecret: "test_client_secret",
	}

	stravaClient := strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret, nil)
	manager := NewManager(cfg, db, stravaClient)

	return manager, db, stravaClient
}

func TestGenerateAuthURL(t *testing.T) {
	manager, _, _ := setupOAuthTest(t)

	redirectURI := "http://localhost:4201/oauth-callback"
	authURL, state, err := manager.GenerateAuthURL(redirectURI)

	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	if state == "" {
		t.Error("Expected non-empty state")
	}

	if !strings.Contains(authURL, authorizationURL) {
		t.Errorf("Expected auth URL to contain %s", authorizationURL)
	}

	if !strings.Contains(authURL, "client_id=test_client_id") {
		t.Error("Expected auth URL to contain client_id")
	}

	if !strings.Contains(authURL, "redirect_uri=") {
		t.Error("Expected auth URL to contain redirect_uri")
	}

	if !strings.Contains(authURL, "scope=activity%3Aread_all") {
		t.Error("Expected auth URL to contain scope")
	}

	if !strings.Contains(authURL, "state=") {
		t.Error("Expected auth URL to contain state parameter")
	}

	// Verify state is stored
	manager.states.mu.RLock()
	_, exists := manager.states.states[state]
	manager.states.mu.RUnlock()

	if !exists {
		t.Error("Expected state to be stored")
	}
}

func TestValidateState_Valid(t *testing.T) {
	manager, _, _ := setupOAuthTest(t)

	_, state, err := manager.GenerateAuthURL("http://localhost:4201/oauth-callback")
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	if !manager.validateState(state) {
		t.Error("Expected state to be valid")
	}

	// State should be removed after first use
	if manager.validateState(state) {
		t.Error("Expected state to be invalid after first use")
	}
}

func TestValidateState_Invalid(t *testing.T) {
	manager, _, _ := setupOAuthTest(t)

	if manager.validateState("invalid_state") {
		t.Error("Expected invalid state to fail validation")
	}
}

func TestValidateState_Expired(t *testing.T) {
	manager, _, _ := setupOAuthTest(t)

	state := "expired_state"
	manager.states.mu.Lock()
	manager.states.states[state] = time.Now().Add(-1 * time.Minute)
	manager.states.mu.Unlock()

	if manager.validateState(state) {
		t.Error("Expected expired state to fail validation")
	}

	// Should be removed
	manager.states.mu.RLock()
	_, exists := manager.states.states[state]
	manager.states.mu.RUnlock()

	if exists {
		t.Error("Expected expired state to be removed")
	}
}

func TestHandleCallback_Integration(t *testing.T) {
	manager, db, stravaClient := setupOAuthTest(t)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to parse body", http.StatusBadRequest)
			return
		}

		if req["code"] != "test_auth_code" {
			http.Error(w, "Invalid code", http.StatusBadRequest)
			return
		}

		if req["client_id"] != "test_client_id" {
			http.Error(w, "Invalid client_id", http.StatusBadRequest)
			return
		}

		response := strava.TokenResponse{
			AccessToken:  "test_access_token",
			RefreshToken: "test_refresh_token",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			ExpiresIn:    21600,
			Athlete: &strava.Athlete{
				ID:        12345,
				Username:  "testuser",
				Firstname: "Test",
				Lastname:  "User",
				Profile:   "https://example.com/avatar.jpg",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()

	stravaClient.SetTokenURL(tokenServer.URL)

	_, state, err := manager.GenerateAuthURL("http://localhost:4201/oauth-callback")
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	user, err := manager.HandleCallback(context.Background(), "test_auth_code", state)
	if err != nil {
		t.Fatalf("Failed to handle callback: %v", err)
	}

	if user.StravaAthleteID != "12345" {
		t.Errorf("Expected athlete ID '12345', got '%s'", user.StravaAthleteID)
	}

	if user.DisplayName != "Test User" {
		t.Errorf("Expected display name 'Test User', got '%s'", user.DisplayName)
	}

	// Verify the user was stored
	stored, err := db.GetUserByAthleteID("12345")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected user to be stored")
	}

	if stored.AccessToken != "test_access_token" {
		t.Errorf("Expected access token 'test_access_token', got '%s'", stored.AccessToken)
	}

	if stored.RefreshToken != "test_refresh_token" {
		t.Errorf("Expected refresh token 'test_refresh_token', got '%s'", stored.RefreshToken)
	}

	if !stored.StravaConnected {
		t.Error("Expected user to be marked connected")
	}

	// A second authorization must reuse the same user record
	_, state2, err := manager.GenerateAuthURL("http://localhost:4201/oauth-callback")
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	again, err := manager.HandleCallback(context.Background(), "test_auth_code", state2)
	if err != nil {
		t.Fatalf("Failed to handle second callback: %v", err)
	}

	if again.ID != stored.ID {
		t.Errorf("Expected re-authorization to keep user %s, got %s", stored.ID, again.ID)
	}
}

func TestHandleCallback_InvalidState(t *testing.T) {
	manager, _, _ := setupOAuthTest(t)

	_, err := manager.HandleCallback(context.Background(), "code", "never_issued")
	if err == nil {
		t.Fatal("Expected error for unknown state")
	}
}

func TestGenerateRandomState(t *testing.T) {
	state1, err := generateRandomState()
	if err != nil {
		t.Fatalf("Failed to generate state: %v", err)
	}

	state2, err := generateRandomState()
	if err != nil {
		t.Fatalf("Failed to generate second state: %v", err)
	}

	if state1 == state2 {
		t.Error("Expected different random states")
	}

	if len(state1) == 0 {
		t.Error("Expected non-empty state")
	}
}
