// Package token decides whether a stored Strava credential is usable and
// refreshes it when it is not. Refresh never mutates the caller's user:
// the updated record is returned explicitly and persisted before return.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"runclub-sync/internal/database"
	"runclub-sync/internal/strava"
)

// SyncBuffer is how close to expiry a token may be before a sync refuses
// to start with it. A credential expiring mid-batch would fail the batch.
const SyncBuffer = time.Hour

var (
	// ErrNoTokens means the user has no usable credential and no way to get one
	ErrNoTokens = errors.New("no tokens available")
	// ErrRefreshFailed means the refresh endpoint rejected the refresh credential
	ErrRefreshFailed = errors.New("token refresh failed")
)

// IsExpired reports whether an epoch-second expiry has passed. No buffer.
func IsExpired(expiresAt int64) bool {
	return time.Now().Unix() >= expiresAt
}

// ExpiringSoon reports whether a token expires within the sync buffer
func ExpiringSoon(expiresAt int64) bool {
	return expiresAt < time.Now().Add(SyncBuffer).Unix()
}

// Guard refreshes credentials against the Strava token endpoint and
// persists the result
type Guard struct {
	client *strava.Client
	db     *database.DB
	logger *slog.Logger
}

// NewGuard creates a token guard
func NewGuard(client *strava.Client, db *database.DB) *Guard {
	return &Guard{
		client: client,
		db:     db,
		logger: slog.Default(),
	}
}

// Refresh exchanges the user's refresh token for a new credential triple,
// persists it, and returns a copy of the user carrying the new values.
func (g *Guard) Refresh(ctx context.Context, user *database.User) (*database.User, error) {
	if user.RefreshToken == "" {
		return nil, ErrNoTokens
	}

	resp, err := g.client.RefreshToken(ctx, user.RefreshToken)
	if err != nil {
		g.logger.Error("token refresh failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if err := g.db.UpdateUserTokens(user.ID, resp.AccessToken, resp.RefreshToken, resp.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	updated := *user
	updated.AccessToken = resp.AccessToken
	updated.RefreshToken = resp.RefreshToken
	updated.TokenExpiresAt = resp.ExpiresAt

	g.logger.Info("refreshed strava tokens", "user_id", user.ID, "expires_at", resp.ExpiresAt)

	return &updated, nil
}

// ValidAccessToken returns a usable access token for the user, refreshing
// if the cached one has expired. The returned user carries whatever
// credential the token came from; callers must use it in place of their
// stale copy.
func (g *Guard) ValidAccessToken(ctx context.Context, user *database.User) (*database.User, string, error) {
	if user.AccessToken == "" {
		return nil, "", ErrNoTokens
	}

	if !IsExpired(user.TokenExpiresAt) {
		return user, user.AccessToken, nil
	}

	updated, err := g.Refresh(ctx, user)
	if err != nil {
		return nil, "", err
	}

	return updated, updated.AccessToken, nil
}

// FreshAccessToken is the stricter variant used before starting a sync:
// tokens expiring within the sync buffer are refreshed up front.
func (g *Guard) FreshAccessToken(ctx context.Context, user *database.User) (*database.User, string, error) {
	if user.AccessToken == "" {
		return nil, "", ErrNoTokens
	}

	if !ExpiringSoon(user.TokenExpiresAt) {
		return user, user.AccessToken, nil
	}

	updated, err := g.Refresh(ctx, user)
	if err != nil {
		return nil, "", err
	}

	return updated, updated.AccessToken, nil
}
