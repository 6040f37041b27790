package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents a club member, with embedded Strava integration state
type User struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
	Gender      string
	City        string
	Country     string
	Role        string

	StravaConnected bool
	StravaAthleteID string
	AccessToken     string
	RefreshToken    string
	TokenExpiresAt  int64
	ConnectedAt     int64

	CreatedAt int64
	UpdatedAt int64
}

const userColumns = `id, display_name, email, avatar_url, gender, city, country, role,
       strava_connected, strava_athlete_id, access_token, refresh_token, token_expires_at, connected_at,
       created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var avatarURL, gender, city, country, athleteID, accessToken, refreshToken sql.NullString
	var tokenExpiresAt, connectedAt sql.NullInt64

	err := row.Scan(
		&u.ID, &u.DisplayName, &u.Email, &avatarURL, &gender, &city, &country, &u.Role,
		&u.StravaConnected, &athleteID, &accessToken, &refreshToken, &tokenExpiresAt, &connectedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.AvatarURL = avatarURL.String
	u.Gender = gender.String
	u.City = city.String
	u.Country = country.String
	u.StravaAthleteID = athleteID.String
	u.AccessToken = accessToken.String
	u.RefreshToken = refreshToken.String
	u.TokenExpiresAt = tokenExpiresAt.Int64
	u.ConnectedAt = connectedAt.Int64

	return &u, nil
}

// CreateUser inserts a new user into the database
func (db *DB) CreateUser(u *User) error {
	now := time.Now().Unix()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = "member"
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := db.conn.Exec(`
		INSERT INTO users (
			id, display_name, email, avatar_url, gender, city, country, role,
			strava_connected, strava_athlete_id, access_token, refresh_token, token_expires_at, connected_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.DisplayName, u.Email, nullString(u.AvatarURL), nullString(u.Gender),
		nullString(u.City), nullString(u.Country), u.Role,
		u.StravaConnected, nullString(u.StravaAthleteID), nullString(u.AccessToken),
		nullString(u.RefreshToken), nullInt64(u.TokenExpiresAt), nullInt64(u.ConnectedAt),
		u.CreatedAt, u.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(userID string) (*User, error) {
	u, err := scanUser(db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByAthleteID retrieves a user by their Strava athlete ID
func (db *DB) GetUserByAthleteID(athleteID string) (*User, error) {
	u, err := scanUser(db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE strava_athlete_id = ?`, athleteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by athlete id: %w", err)
	}
	return u, nil
}

// ConnectStrava upserts a user keyed by Strava athlete ID. A user who
// re-authorizes keeps their record; a first-time authorization creates one.
// Returns the stored user.
func (db *DB) ConnectStrava(athleteID, displayName, email, avatarURL, accessToken, refreshToken string, expiresAt int64) (*User, error) {
	now := time.Now().Unix()

	existing, err := db.GetUserByAthleteID(athleteID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		_, err := db.conn.Exec(`
			UPDATE users
			SET strava_connected = 1, access_token = ?, refresh_token = ?,
			    token_expires_at = ?, connected_at = ?, updated_at = ?
			WHERE id = ?
		`, accessToken, refreshToken, expiresAt, now, now, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconnect user: %w", err)
		}
		return db.GetUser(existing.ID)
	}

	u := &User{
		DisplayName:     displayName,
		Email:           email,
		AvatarURL:       avatarURL,
		Role:            "member",
		StravaConnected: true,
		StravaAthleteID: athleteID,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		TokenExpiresAt:  expiresAt,
		ConnectedAt:     now,
	}
	if err := db.CreateUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserTokens updates a user's OAuth tokens
func (db *DB) UpdateUserTokens(userID, accessToken, refreshToken string, expiresAt int64) error {
	result, err := db.conn.Exec(`
		UPDATE users
		SET access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?
	`, accessToken, refreshToken, expiresAt, time.Now().Unix(), userID)

	if err != nil {
		return fmt.Errorf("failed to update user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// DisconnectStrava marks a user as disconnected and clears credentials
func (db *DB) DisconnectStrava(userID string) error {
	result, err := db.conn.Exec(`
		UPDATE users
		SET strava_connected = 0, access_token = NULL, refresh_token = NULL,
		    token_expires_at = NULL, updated_at = ?
		WHERE id = ?
	`, time.Now().Unix(), userID)

	if err != nil {
		return fmt.Errorf("failed to disconnect user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListConnectedUsers returns users with an active Strava connection
func (db *DB) ListConnectedUsers() ([]*User, error) {
	rows, err := db.conn.Query(`SELECT ` + userColumns + ` FROM users WHERE strava_connected = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// ListConnectedUsersCount returns the number of connected users
func (db *DB) ListConnectedUsersCount() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM users WHERE strava_connected = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count connected users: %w", err)
	}
	return count, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
