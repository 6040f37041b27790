package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Registration failures surfaced to callers
var (
	ErrRegistrationClosed = errors.New("registration closed")
	ErrEventFull          = errors.New("event full")
	ErrTeamFull           = errors.New("team full")
	ErrAlreadyRegistered  = errors.New("already registered")
)

// Progress is the aggregate written by the points aggregator
type Progress struct {
	TotalDistance   float64 `json:"totalDistance"`
	TotalActivities int     `json:"totalActivities"`
	TotalPoints     float64 `json:"totalPoints"`
	ValidActivities int     `json:"validActivities"`
	CompletionRate  float64 `json:"completionRate"`
}

// Participant links a user to an event and a team
type Participant struct {
	ID       string
	EventID  string
	UserID   string
	TeamID   string
	Progress Progress
	JoinedAt int64
}

const participantColumns = `id, event_id, user_id, team_id,
       total_distance, total_activities, total_points, valid_activities, completion_rate,
       joined_at`

func scanParticipant(row interface{ Scan(...any) error }) (*Participant, error) {
	var p Participant
	err := row.Scan(
		&p.ID, &p.EventID, &p.UserID, &p.TeamID,
		&p.Progress.TotalDistance, &p.Progress.TotalActivities, &p.Progress.TotalPoints,
		&p.Progress.ValidActivities, &p.Progress.CompletionRate,
		&p.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RegisterParticipant creates a join record for a user in an event's team.
// Capacity checks run inside the same transaction as the insert, so a
// concurrent join cannot overfill a team. Participant counts are derived
// from rows here, never stored as counters.
func (db *DB) RegisterParticipant(event *Event, userID, teamID string) (*Participant, error) {
	if !event.RegistrationOpen {
		return nil, ErrRegistrationClosed
	}

	team := event.Team(teamID)
	if team == nil {
		return nil, fmt.Errorf("team not found: %s", teamID)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRow(`SELECT COUNT(*) FROM event_participants WHERE event_id = ? AND user_id = ?`,
		event.ID, userID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyRegistered
	}

	if event.MaxParticipants > 0 {
		var total int
		err = tx.QueryRow(`SELECT COUNT(*) FROM event_participants WHERE event_id = ?`, event.ID).Scan(&total)
		if err != nil {
			return nil, fmt.Errorf("failed to count participants: %w", err)
		}
		if total >= event.MaxParticipants {
			return nil, ErrEventFull
		}
	}

	if team.Capacity > 0 {
		var members int
		err = tx.QueryRow(`SELECT COUNT(*) FROM event_participants WHERE event_id = ? AND team_id = ?`,
			event.ID, teamID).Scan(&members)
		if err != nil {
			return nil, fmt.Errorf("failed to count team members: %w", err)
		}
		if members >= team.Capacity {
			return nil, ErrTeamFull
		}
	}

	p := &Participant{
		ID:       uuid.NewString(),
		EventID:  event.ID,
		UserID:   userID,
		TeamID:   teamID,
		JoinedAt: time.Now().Unix(),
	}

	_, err = tx.Exec(`
		INSERT INTO event_participants (
			id, event_id, user_id, team_id,
			total_distance, total_activities, total_points, valid_activities, completion_rate,
			joined_at
		) VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, ?)
	`, p.ID, p.EventID, p.UserID, p.TeamID, p.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return p, nil
}

// RemoveParticipant deletes a join record
func (db *DB) RemoveParticipant(eventID, userID string) error {
	result, err := db.conn.Exec(`DELETE FROM event_participants WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("participant not found")
	}

	return nil
}

// GetParticipant retrieves a join record by event and user
func (db *DB) GetParticipant(eventID, userID string) (*Participant, error) {
	p, err := scanParticipant(db.conn.QueryRow(
		`SELECT `+participantColumns+` FROM event_participants WHERE event_id = ? AND user_id = ?`,
		eventID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// ListParticipants returns all join records for an event
func (db *DB) ListParticipants(eventID string) ([]*Participant, error) {
	rows, err := db.conn.Query(
		`SELECT `+participantColumns+` FROM event_participants WHERE event_id = ? ORDER BY joined_at`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

// ListUserParticipations returns all join records for a user
func (db *DB) ListUserParticipations(userID string) ([]*Participant, error) {
	rows, err := db.conn.Query(
		`SELECT `+participantColumns+` FROM event_participants WHERE user_id = ? ORDER BY joined_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}

	return participants, nil
}

// UpdateParticipantProgress overwrites the progress aggregate
func (db *DB) UpdateParticipantProgress(eventID, userID string, progress Progress) error {
	result, err := db.conn.Exec(`
		UPDATE event_participants
		SET total_distance = ?, total_activities = ?, total_points = ?,
		    valid_activities = ?, completion_rate = ?
		WHERE event_id = ? AND user_id = ?
	`, progress.TotalDistance, progress.TotalActivities, progress.TotalPoints,
		progress.ValidActivities, progress.CompletionRate, eventID, userID)

	if err != nil {
		return fmt.Errorf("failed to update participant progress: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("participant not found")
	}

	return nil
}

// CountParticipants derives the current participant count for an event
func (db *DB) CountParticipants(eventID string) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM event_participants WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// CountTeamMembers derives the current member count for a team
func (db *DB) CountTeamMembers(eventID, teamID string) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM event_participants WHERE event_id = ? AND team_id = ?`,
		eventID, teamID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team members: %w", err)
	}
	return count, nil
}
