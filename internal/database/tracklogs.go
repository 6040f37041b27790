package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Sync methods recorded on track logs
const (
	SyncMethodManual  = "manual"
	SyncMethodWebhook = "webhook"
)

// TrackLog is the normalized, stored representation of one Strava activity
type TrackLog struct {
	ID               int64
	UserID           string
	StravaActivityID string

	Name      string
	Date      string // YYYY-MM-DD, drives event window membership
	StartTime string // full ISO-8601 start timestamp

	DistanceKm float64

	MovingTime          int64
	ElapsedTime         int64
	MovingTimeFormatted string
	ElapsedTimeFormatted string

	AvgPaceSeconds   int64
	AvgPaceFormatted string

	ElevationGain int64
	ElevationHigh float64
	ElevationLow  float64

	AvgHeartRate *float64
	MaxHeartRate *float64
	HasHeartRate bool

	AvgSpeedKmh float64
	MaxSpeedKmh float64

	Calories     *float64
	ActivityType string

	MapPolyline string
	HasMap      bool
	StartLat    *float64
	StartLng    *float64
	EndLat      *float64
	EndLng      *float64

	KudosCount   int64
	CommentCount int64
	AthleteCount int64
	IsPrivate    bool

	SyncedAt   int64
	SyncMethod string

	CreatedAt int64
	UpdatedAt int64
}

const trackLogColumns = `id, user_id, strava_activity_id, name, date, start_time, distance_km,
       moving_time, elapsed_time, moving_time_formatted, elapsed_time_formatted,
       avg_pace_seconds, avg_pace_formatted,
       elevation_gain, elevation_high, elevation_low,
       avg_heart_rate, max_heart_rate, has_heart_rate,
       avg_speed_kmh, max_speed_kmh, calories, activity_type,
       map_polyline, has_map, start_lat, start_lng, end_lat, end_lng,
       kudos_count, comment_count, athlete_count, is_private,
       synced_at, sync_method, created_at, updated_at`

func scanTrackLog(row interface{ Scan(...any) error }) (*TrackLog, error) {
	var t TrackLog
	var polyline sql.NullString

	err := row.Scan(
		&t.ID, &t.UserID, &t.StravaActivityID, &t.Name, &t.Date, &t.StartTime, &t.DistanceKm,
		&t.MovingTime, &t.ElapsedTime, &t.MovingTimeFormatted, &t.ElapsedTimeFormatted,
		&t.AvgPaceSeconds, &t.AvgPaceFormatted,
		&t.ElevationGain, &t.ElevationHigh, &t.ElevationLow,
		&t.AvgHeartRate, &t.MaxHeartRate, &t.HasHeartRate,
		&t.AvgSpeedKmh, &t.MaxSpeedKmh, &t.Calories, &t.ActivityType,
		&polyline, &t.HasMap, &t.StartLat, &t.StartLng, &t.EndLat, &t.EndLng,
		&t.KudosCount, &t.CommentCount, &t.AthleteCount, &t.IsPrivate,
		&t.SyncedAt, &t.SyncMethod, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.MapPolyline = polyline.String

	return &t, nil
}

// UpsertTrackLog inserts a track log or overwrites all normalized fields of
// an existing one with the same Strava activity ID. The unique index on
// strava_activity_id makes this safe under concurrent webhook and manual
// syncs. Returns true when a new row was created.
func (db *DB) UpsertTrackLog(t *TrackLog) (bool, error) {
	now := time.Now().Unix()

	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM track_logs WHERE strava_activity_id = ?)`,
		t.StravaActivityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check track log existence: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO track_logs (
			user_id, strava_activity_id, name, date, start_time, distance_km,
			moving_time, elapsed_time, moving_time_formatted, elapsed_time_formatted,
			avg_pace_seconds, avg_pace_formatted,
			elevation_gain, elevation_high, elevation_low,
			avg_heart_rate, max_heart_rate, has_heart_rate,
			avg_speed_kmh, max_speed_kmh, calories, activity_type,
			map_polyline, has_map, start_lat, start_lng, end_lat, end_lng,
			kudos_count, comment_count, athlete_count, is_private,
			synced_at, sync_method, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(strava_activity_id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			date = excluded.date,
			start_time = excluded.start_time,
			distance_km = excluded.distance_km,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			moving_time_formatted = excluded.moving_time_formatted,
			elapsed_time_formatted = excluded.elapsed_time_formatted,
			avg_pace_seconds = excluded.avg_pace_seconds,
			avg_pace_formatted = excluded.avg_pace_formatted,
			elevation_gain = excluded.elevation_gain,
			elevation_high = excluded.elevation_high,
			elevation_low = excluded.elevation_low,
			avg_heart_rate = excluded.avg_heart_rate,
			max_heart_rate = excluded.max_heart_rate,
			has_heart_rate = excluded.has_heart_rate,
			avg_speed_kmh = excluded.avg_speed_kmh,
			max_speed_kmh = excluded.max_speed_kmh,
			calories = excluded.calories,
			activity_type = excluded.activity_type,
			map_polyline = excluded.map_polyline,
			has_map = excluded.has_map,
			start_lat = excluded.start_lat,
			start_lng = excluded.start_lng,
			end_lat = excluded.end_lat,
			end_lng = excluded.end_lng,
			kudos_count = excluded.kudos_count,
			comment_count = excluded.comment_count,
			athlete_count = excluded.athlete_count,
			is_private = excluded.is_private,
			synced_at = excluded.synced_at,
			sync_method = excluded.sync_method,
			updated_at = excluded.updated_at
	`, t.UserID, t.StravaActivityID, t.Name, t.Date, t.StartTime, t.DistanceKm,
		t.MovingTime, t.ElapsedTime, t.MovingTimeFormatted, t.ElapsedTimeFormatted,
		t.AvgPaceSeconds, t.AvgPaceFormatted,
		t.ElevationGain, t.ElevationHigh, t.ElevationLow,
		t.AvgHeartRate, t.MaxHeartRate, t.HasHeartRate,
		t.AvgSpeedKmh, t.MaxSpeedKmh, t.Calories, t.ActivityType,
		nullString(t.MapPolyline), t.HasMap, t.StartLat, t.StartLng, t.EndLat, t.EndLng,
		t.KudosCount, t.CommentCount, t.AthleteCount, t.IsPrivate,
		t.SyncedAt, t.SyncMethod, now, now)

	if err != nil {
		return false, fmt.Errorf("failed to upsert track log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return !exists, nil
}

// InsertTrackLogIfAbsent inserts a track log only if no row with the same
// Strava activity ID exists. Returns false without error when it does; the
// webhook path treats that as an idempotent no-op.
func (db *DB) InsertTrackLogIfAbsent(t *TrackLog) (bool, error) {
	now := time.Now().Unix()

	result, err := db.conn.Exec(`
		INSERT INTO track_logs (
			user_id, strava_activity_id, name, date, start_time, distance_km,
			moving_time, elapsed_time, moving_time_formatted, elapsed_time_formatted,
			avg_pace_seconds, avg_pace_formatted,
			elevation_gain, elevation_high, elevation_low,
			avg_heart_rate, max_heart_rate, has_heart_rate,
			avg_speed_kmh, max_speed_kmh, calories, activity_type,
			map_polyline, has_map, start_lat, start_lng, end_lat, end_lng,
			kudos_count, comment_count, athlete_count, is_private,
			synced_at, sync_method, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(strava_activity_id) DO NOTHING
	`, t.UserID, t.StravaActivityID, t.Name, t.Date, t.StartTime, t.DistanceKm,
		t.MovingTime, t.ElapsedTime, t.MovingTimeFormatted, t.ElapsedTimeFormatted,
		t.AvgPaceSeconds, t.AvgPaceFormatted,
		t.ElevationGain, t.ElevationHigh, t.ElevationLow,
		t.AvgHeartRate, t.MaxHeartRate, t.HasHeartRate,
		t.AvgSpeedKmh, t.MaxSpeedKmh, t.Calories, t.ActivityType,
		nullString(t.MapPolyline), t.HasMap, t.StartLat, t.StartLng, t.EndLat, t.EndLng,
		t.KudosCount, t.CommentCount, t.AthleteCount, t.IsPrivate,
		t.SyncedAt, t.SyncMethod, now, now)

	if err != nil {
		return false, fmt.Errorf("failed to insert track log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetTrackLogByStravaID retrieves a track log by its external activity ID
func (db *DB) GetTrackLogByStravaID(stravaActivityID string) (*TrackLog, error) {
	t, err := scanTrackLog(db.conn.QueryRow(
		`SELECT `+trackLogColumns+` FROM track_logs WHERE strava_activity_id = ?`, stravaActivityID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track log: %w", err)
	}
	return t, nil
}

// ListTrackLogsInWindow returns a user's track logs with date in
// [startDate, endDate] inclusive. Dates compare as YYYY-MM-DD strings.
func (db *DB) ListTrackLogsInWindow(userID, startDate, endDate string) ([]*TrackLog, error) {
	rows, err := db.conn.Query(`
		SELECT `+trackLogColumns+`
		FROM track_logs
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, start_time
	`, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list track logs: %w", err)
	}
	defer rows.Close()

	var logs []*TrackLog
	for rows.Next() {
		t, err := scanTrackLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track log: %w", err)
		}
		logs = append(logs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track logs: %w", err)
	}

	return logs, nil
}

// CountTrackLogsByUser returns the number of stored track logs for a user
func (db *DB) CountTrackLogsByUser(userID string) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM track_logs WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count track logs: %w", err)
	}
	return count, nil
}

// CountTrackLogs returns the total number of stored track logs
func (db *DB) CountTrackLogs() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM track_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count track logs: %w", err)
	}
	return count, nil
}
