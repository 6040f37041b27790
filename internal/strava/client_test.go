package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExchangeToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to parse body", http.StatusBadRequest)
			return
		}

		if req["code"] != "test_code" {
			http.Error(w, "Invalid code", http.StatusBadRequest)
			return
		}

		if req["client_id"] != "test_client_id" {
			http.Error(w, "Invalid client_id", http.StatusBadRequest)
			return
		}

		if req["grant_type"] != "authorization_code" {
			http.Error(w, "Invalid grant_type", http.StatusBadRequest)
			return
		}

		response := TokenResponse{
			AccessToken:  "test_access_token",
			RefreshToken: "test_refresh_token",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			ExpiresIn:    21600,
			Athlete: &Athlete{
				ID:       12345,
				Username: "testuser",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()

	client := NewClient("test_client_id", "test_client_secret", nil)
	client.SetTokenURL(tokenServer.URL)

	tokenResp, err := client.ExchangeToken(context.Background(), "test_code")
	if err != nil {
		t.Fatalf("Failed to exchange code: %v", err)
	}

	if tokenResp.AccessToken != "test_access_token" {
		t.Errorf("Expected access token 'test_access_token', got '%s'", tokenResp.AccessToken)
	}

	if tokenResp.RefreshToken != "test_refresh_token" {
		t.Errorf("Expected refresh token 'test_refresh_token', got '%s'", tokenResp.RefreshToken)
	}

	if tokenResp.ExpiresIn != 21600 {
		t.Errorf("Expected expires_in 21600, got %d", tokenResp.ExpiresIn)
	}

	if tokenResp.Athlete == nil || tokenResp.Athlete.ID != 12345 {
		t.Errorf("Expected athlete id 12345, got %+v", tokenResp.Athlete)
	}
}

func TestRefreshToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to parse body", http.StatusBadRequest)
			return
		}

		if req["refresh_token"] != "old_refresh" {
			http.Error(w, "Invalid refresh_token", http.StatusBadRequest)
			return
		}

		if req["grant_type"] != "refresh_token" {
			http.Error(w, "Invalid grant_type", http.StatusBadRequest)
			return
		}

		response := TokenResponse{
			AccessToken:  "new_access",
			RefreshToken: "new_refresh",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			ExpiresIn:    21600,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()

	client := NewClient("test_client_id", "test_client_secret", nil)
	client.SetTokenURL(tokenServer.URL)

	tokenResp, err := client.RefreshToken(context.Background(), "old_refresh")
	if err != nil {
		t.Fatalf("Failed to refresh token: %v", err)
	}

	if tokenResp.AccessToken != "new_access" {
		t.Errorf("Expected access token 'new_access', got '%s'", tokenResp.AccessToken)
	}

	if tokenResp.RefreshToken != "new_refresh" {
		t.Errorf("Expected refresh token 'new_refresh', got '%s'", tokenResp.RefreshToken)
	}
}

func TestTokenRequest_HTTPError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
	}))
	defer tokenServer.Close()

	client := NewClient("test_client_id", "test_client_secret", nil)
	client.SetTokenURL(tokenServer.URL)

	_, err := client.ExchangeToken(context.Background(), "bogus")
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}

	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("Expected *HTTPError, got %T", err)
	}

	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", httpErr.StatusCode)
	}
}

func TestDoRequest_BearerAuth(t *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer the_token" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-RateLimit-Limit", "200,2000")
		w.Header().Set("X-RateLimit-Usage", "50,500")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer apiServer.Close()

	client := NewClient("test_client_id", "test_client_secret", nil)
	client.SetBaseURL(apiServer.URL)

	body, err := client.doRequest(context.Background(), "GET", "/test", "the_token", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body: %s", body)
	}

	status := client.RateLimitStatus()
	if status.Usage15Min != 50 {
		t.Errorf("Expected rate limit usage 50, got %d", status.Usage15Min)
	}
	if status.LimitDaily != 2000 {
		t.Errorf("Expected daily limit 2000, got %d", status.LimitDaily)
	}
}

func TestHTTPError_Helpers(t *testing.T) {
	notFoundErr := &HTTPError{StatusCode: 404, Body: "Not Found"}
	if !IsNotFound(notFoundErr) {
		t.Error("Expected IsNotFound to return true for 404")
	}

	unauthorizedErr := &HTTPError{StatusCode: 401, Body: "Unauthorized"}
	if !IsUnauthorized(unauthorizedErr) {
		t.Error("Expected IsUnauthorized to return true for 401")
	}

	rateLimitErr := &HTTPError{StatusCode: 429, Body: "Too Many Requests"}
	if !IsTooManyRequests(rateLimitErr) {
		t.Error("Expected IsTooManyRequests to return true for 429")
	}
}
