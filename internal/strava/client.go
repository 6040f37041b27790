package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL  = "https://www.strava.com/api/v3"
	defaultTokenURL = "https://www.strava.com/oauth/token"
	requestTimeout  = 30 * time.Second
)

// Client is a Strava API client. It does not manage token lifecycles;
// callers pass a bearer token obtained from the token guard.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	logger       *slog.Logger
	rateLimiter  *RateLimiter
}

// NewClient creates a new Strava API client
func NewClient(clientID, clientSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: requestTimeout},
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		rateLimiter:  NewRateLimiter(),
	}
}

// SetBaseURL overrides the API base URL, used by tests
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetTokenURL overrides the token endpoint URL, used by tests
func (c *Client) SetTokenURL(tokenURL string) {
	c.tokenURL = tokenURL
}

// Athlete is the athlete summary embedded in token responses
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Profile   string `json:"profile"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Sex       string `json:"sex"`
}

// TokenResponse represents the response from a token exchange or refresh
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"`
	ExpiresIn    int      `json:"expires_in"`
	Athlete      *Athlete `json:"athlete,omitempty"`
}

// ExchangeToken exchanges an authorization code for access and refresh tokens
func (c *Client) ExchangeToken(ctx context.Context, code string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
		"grant_type":    "authorization_code",
	}, "token_exchange")
}

// RefreshToken refreshes an access token using a refresh token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"refresh_token": refreshToken,
		"grant_type":    "refresh_token",
	}, "token_refresh")
}

func (c *Client) tokenRequest(ctx context.Context, data map[string]string, op string) (*TokenResponse, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error(op+" failed", "error", err, "duration_ms", duration.Milliseconds())
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Info(op, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &tokenResp, nil
}

// doRequest performs an authenticated API request and returns the body
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.rateLimiter.ParseHeaders(resp.Header)

	c.logger.Info("strava_api_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() RateLimitStatus {
	return c.rateLimiter.Status()
}
