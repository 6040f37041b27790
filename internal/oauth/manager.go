package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"runclub-sync/internal/config"
	"runclub-sync/internal/database"
	"runclub-sync/internal/strava"
)

const (
	authorizationURL = "https://www.strava.com/oauth/authorize"
	scope            = "activity:read_all" // Read all activities including private ones
)

// Manager handles the OAuth 2.0 connect flow with Strava
type Manager struct {
	config       *config.Config
	db           *database.DB
	stravaClient *strava.Client
	logger       *slog.Logger
	states       *stateStore // CSRF protection
}

// stateStore tracks valid OAuth states for CSRF protection
type stateStore struct {
	mu     sync.RWMutex
	states map[string]time.Time
}

// NewManager creates a new OAuth manager
func NewManager(cfg *config.Config, db *database.DB, stravaClient *strava.Client) *Manager {
	mgr := &Manager{
		config:       cfg,
		db:           db,
		stravaClient: stravaClient,
		logger:       slog.Default(),
		states: &stateStore{
			states: make(map[string]time.Time),
		},
	}

	// Start background cleanup of expired states
	go mgr.cleanupStates()

	return mgr
}

// GenerateAuthURL generates a Strava authorization URL with CSRF protection
func (m *Manager) GenerateAuthURL(redirectURI string) (string, string, error) {
	state, err := generateRandomState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	// Store state with expiration (10 minutes)
	m.states.mu.Lock()
	m.states.states[state] = time.Now().Add(10 * time.Minute)
	m.states.mu.Unlock()

	params := url.Values{
		"client_id":     {m.config.StravaClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {scope},
		"state":         {state},
	}

	authURL := fmt.Sprintf("%s?%s", authorizationURL, params.Encode())

	m.logger.Info("Generated auth URL", "state", state)

	return authURL, state, nil
}

// HandleCallback processes the OAuth callback: it exchanges the code for a
// credential triple and upserts the owning user keyed by athlete ID.
// Returns the connected user.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) (*database.User, error) {
	if !m.validateState(state) {
		return nil, fmt.Errorf("invalid or expired state")
	}

	m.logger.Info("Handling OAuth callback", "code_length", len(code))

	tokenResp, err := m.stravaClient.ExchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	if tokenResp.Athlete == nil {
		return nil, fmt.Errorf("token response missing athlete data")
	}

	athleteID := strconv.FormatInt(tokenResp.Athlete.ID, 10)
	displayName := strings.TrimSpace(tokenResp.Athlete.Firstname + " " + tokenResp.Athlete.Lastname)
	if displayName == "" {
		displayName = tokenResp.Athlete.Username
	}

	user, err := m.db.ConnectStrava(
		athleteID,
		displayName,
		"", // Strava does not expose the athlete email
		tokenResp.Athlete.Profile,
		tokenResp.AccessToken,
		tokenResp.RefreshToken,
		tokenResp.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	m.logger.Info("Connected Strava account", "user_id", user.ID, "athlete_id", athleteID)

	return user, nil
}

// validateState checks if a state is valid and removes it (one-time use)
func (m *Manager) validateState(state string) bool {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()

	expiry, exists := m.states.states[state]
	if !exists {
		return false
	}

	if time.Now().After(expiry) {
		delete(m.states.states, state)
		return false
	}

	// Remove state after use (one-time use)
	delete(m.states.states, state)

	return true
}

// cleanupStates removes expired states every minute
func (m *Manager) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.states.mu.Lock()
		now := time.Now()
		for state, expiry := range m.states.states {
			if now.After(expiry) {
				delete(m.states.states, state)
			}
		}
		m.states.mu.Unlock()
	}
}

// generateRandomState generates a cryptographically secure random state
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
