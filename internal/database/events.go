package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event statuses
const (
	EventStatusCreated = "created"
	EventStatusActive  = "active"
	EventStatusPending = "pending"
	EventStatusClosed  = "closed"
)

// Team is a sub-entity of an event
type Team struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Event represents a time-boxed team distance challenge
type Event struct {
	ID          string
	Name        string
	Description string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD
	StartTime   string // optional HH:MM
	EndTime     string
	Status      string
	Teams       []Team

	IsPrivate        bool
	JoinPassword     string
	RegistrationOpen bool
	MaxParticipants  int

	CoverImageURL string

	CreatedAt int64
	UpdatedAt int64
}

// CreateEvent inserts a new event. Teams without IDs are assigned one.
func (db *DB) CreateEvent(e *Event) error {
	now := time.Now().Unix()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = EventStatusCreated
	}
	for i := range e.Teams {
		if e.Teams[i].ID == "" {
			e.Teams[i].ID = uuid.NewString()
		}
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	teamsJSON, err := json.Marshal(e.Teams)
	if err != nil {
		return fmt.Errorf("failed to marshal teams: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO events (
			id, name, description, start_date, end_date, start_time, end_time, status,
			teams_json, is_private, join_password, registration_open, max_participants,
			cover_image_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, nullString(e.Description), e.StartDate, e.EndDate,
		nullString(e.StartTime), nullString(e.EndTime), e.Status,
		string(teamsJSON), e.IsPrivate, nullString(e.JoinPassword),
		e.RegistrationOpen, nullInt64(int64(e.MaxParticipants)),
		nullString(e.CoverImageURL), e.CreatedAt, e.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by ID
func (db *DB) GetEvent(eventID string) (*Event, error) {
	var e Event
	var description, startTime, endTime, joinPassword, coverImageURL sql.NullString
	var maxParticipants sql.NullInt64
	var teamsJSON string

	err := db.conn.QueryRow(`
		SELECT id, name, description, start_date, end_date, start_time, end_time, status,
		       teams_json, is_private, join_password, registration_open, max_participants,
		       cover_image_url, created_at, updated_at
		FROM events WHERE id = ?
	`, eventID).Scan(
		&e.ID, &e.Name, &description, &e.StartDate, &e.EndDate, &startTime, &endTime, &e.Status,
		&teamsJSON, &e.IsPrivate, &joinPassword, &e.RegistrationOpen, &maxParticipants,
		&coverImageURL, &e.CreatedAt, &e.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	e.Description = description.String
	e.StartTime = startTime.String
	e.EndTime = endTime.String
	e.JoinPassword = joinPassword.String
	e.CoverImageURL = coverImageURL.String
	e.MaxParticipants = int(maxParticipants.Int64)

	if err := json.Unmarshal([]byte(teamsJSON), &e.Teams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal teams: %w", err)
	}

	return &e, nil
}

// ListEventsByStatus returns events with the given status
func (db *DB) ListEventsByStatus(status string) ([]*Event, error) {
	rows, err := db.conn.Query(`SELECT id FROM events WHERE status = ? ORDER BY start_date`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	var events []*Event
	for _, id := range ids {
		e, err := db.GetEvent(id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			events = append(events, e)
		}
	}

	return events, nil
}

// UpdateEventStatus transitions an event's status
func (db *DB) UpdateEventStatus(eventID, status string) error {
	result, err := db.conn.Exec(`
		UPDATE events SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().Unix(), eventID)

	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("event not found")
	}

	return nil
}

// Team looks up a team on an event by ID
func (e *Event) Team(teamID string) *Team {
	for i := range e.Teams {
		if e.Teams[i].ID == teamID {
			return &e.Teams[i]
		}
	}
	return nil
}
