package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"runclub-sync/internal/config"
	"runclub-sync/internal/oauth"
)

// OAuthHandler handles OAuth flow endpoints
type OAuthHandler struct {
	oauthManager *oauth.Manager
	config       *config.Config
	logger       *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthManager *oauth.Manager, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		oauthManager: oauthManager,
		config:       cfg,
		logger:       slog.Default(),
	}
}

// HandleAuthStart initiates the OAuth flow by redirecting to Strava
func (h *OAuthHandler) HandleAuthStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	redirectURI := h.config.StravaRedirectURI
	if redirectURI == "" {
		// Fall back to the host/port of the current request
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		redirectURI = fmt.Sprintf("%s://%s/oauth-callback", scheme, r.Host)
	}

	authURL, state, err := h.oauthManager.GenerateAuthURL(redirectURI)
	if err != nil {
		h.logger.Error("Failed to generate auth URL", "error", err)
		http.Error(w, "Failed to start OAuth flow", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Starting OAuth flow", "state", state, "redirect_uri", redirectURI)

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// HandleCallback processes the OAuth callback from Strava
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	errorParam := r.URL.Query().Get("error")

	if errorParam != "" {
		h.logger.Warn("OAuth authorization denied", "error", errorParam)
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errorParam), http.StatusBadRequest)
		return
	}

	if code == "" || state == "" {
		h.logger.Warn("Missing OAuth parameters", "has_code", code != "", "has_state", state != "")
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	user, err := h.oauthManager.HandleCallback(r.Context(), code, state)
	if err != nil {
		h.logger.Error("Failed to handle OAuth callback", "error", err)

		errorMsg := "Failed to complete authorization"
		if err.Error() == "invalid or expired state" {
			errorMsg = "Invalid or expired authorization request. Please try again."
		}

		http.Error(w, errorMsg, http.StatusBadRequest)
		return
	}

	h.logger.Info("OAuth flow completed successfully", "user_id", user.ID, "athlete_id", user.StravaAthleteID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Connection Successful</title>
	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
			max-width: 600px;
			margin: 100px auto;
			padding: 20px;
			text-align: center;
		}
		h1 { color: #FC4C02; }
		p { color: #666; line-height: 1.6; }
	</style>
</head>
<body>
	<h1>✓ Strava Connected</h1>
	<p>Welcome, %s! Your Strava account is now linked to your club profile.</p>
	<p>New runs will count toward your events automatically.</p>
	<p>You can close this window and return to the app.</p>
</body>
</html>`, user.DisplayName)
}
