package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"runclub-sync/internal/database"
	"runclub-sync/internal/strava"
)

func TestIsExpired(t *testing.T) {
	if IsExpired(time.Now().Add(time.Minute).Unix()) {
		t.Error("Expected token expiring in a minute to not be expired")
	}

	if !IsExpired(time.Now().Add(-time.Minute).Unix()) {
		t.Error("Expected past expiry to be expired")
	}
}

func TestExpiringSoon(t *testing.T) {
	// 30 minutes out: inside the one-hour sync buffer but not yet expired
	expiresAt := time.Now().Add(30 * time.Minute).Unix()

	if IsExpired(expiresAt) {
		t.Error("Expected token to not be expired yet")
	}
	if !ExpiringSoon(expiresAt) {
		t.Error("Expected token to be expiring soon")
	}

	// Two hours out: outside the buffer
	if ExpiringSoon(time.Now().Add(2 * time.Hour).Unix()) {
		t.Error("Expected token two hours out to not be expiring soon")
	}
}

func setupGuardTest(t *testing.T) (*Guard, *database.DB, *strava.Client) {
	dbPath := t.TempDir() + "/test.db"
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	client := strava.NewClient("test_client_id", "test_client_secret", nil)
	guard := NewGuard(client, db)

	return guard, db, client
}

func connectTestUser(t *testing.T, db *database.DB, accessToken string, expiresAt int64) *database.User {
	user, err := db.ConnectStrava("12345", "Test User", "", "", accessToken, "refresh_token", expiresAt)
	if err != nil {
		t.Fatalf("Failed to connect user: %v", err)
	}
	return user
}

func TestValidAccessToken_StillValid(t *testing.T) {
	guard, db, _ := setupGuardTest(t)

	user := connectTestUser(t, db, "current_token", time.Now().Add(time.Hour).Unix())

	_, accessToken, err := guard.ValidAccessToken(context.Background(), user)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if accessToken != "current_token" {
		t.Errorf("Expected cached token, got %q", accessToken)
	}
}

func TestValidAccessToken_RefreshesExpired(t *testing.T) {
	guard, db, client := setupGuardTest(t)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := strava.TokenResponse{
			AccessToken:  "new_access",
			RefreshToken: "new_refresh",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			ExpiresIn:    21600,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()
	client.SetTokenURL(tokenServer.URL)

	user := connectTestUser(t, db, "stale_token", time.Now().Add(-time.Hour).Unix())

	updated, accessToken, err := guard.ValidAccessToken(context.Background(), user)
	if err != nil {
		t.Fatalf("Expected refresh to succeed, got %v", err)
	}

	if accessToken != "new_access" {
		t.Errorf("Expected refreshed token, got %q", accessToken)
	}

	// The caller's copy must not have been mutated
	if user.AccessToken != "stale_token" {
		t.Errorf("Expected caller's user untouched, got %q", user.AccessToken)
	}
	if updated.AccessToken != "new_access" {
		t.Errorf("Expected returned user to carry new token, got %q", updated.AccessToken)
	}

	// And the database must carry the new credential
	stored, err := db.GetUser(user.ID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if stored.AccessToken != "new_access" || stored.RefreshToken != "new_refresh" {
		t.Errorf("Expected persisted tokens, got %q / %q", stored.AccessToken, stored.RefreshToken)
	}
}

func TestFreshAccessToken_RefreshesNearExpiry(t *testing.T) {
	guard, db, client := setupGuardTest(t)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := strava.TokenResponse{
			AccessToken:  "fresh_access",
			RefreshToken: "fresh_refresh",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			ExpiresIn:    21600,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()
	client.SetTokenURL(tokenServer.URL)

	// Valid for 30 more minutes: fine for a single call, too close for a sync
	user := connectTestUser(t, db, "near_expiry_token", time.Now().Add(30*time.Minute).Unix())

	_, accessToken, err := guard.FreshAccessToken(context.Background(), user)
	if err != nil {
		t.Fatalf("Expected refresh to succeed, got %v", err)
	}

	if accessToken != "fresh_access" {
		t.Errorf("Expected refreshed token, got %q", accessToken)
	}
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	guard, _, _ := setupGuardTest(t)

	user := &database.User{ID: "u1", AccessToken: "x"}

	_, err := guard.Refresh(context.Background(), user)
	if err != ErrNoTokens {
		t.Errorf("Expected ErrNoTokens, got %v", err)
	}
}

func TestRefresh_EndpointRejects(t *testing.T) {
	guard, db, client := setupGuardTest(t)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
	}))
	defer tokenServer.Close()
	client.SetTokenURL(tokenServer.URL)

	user := connectTestUser(t, db, "stale_token", time.Now().Add(-time.Hour).Unix())

	_, _, err := guard.ValidAccessToken(context.Background(), user)
	if err == nil {
		t.Fatal("Expected error when refresh endpoint rejects")
	}
}
