// Package normalize transforms raw Strava activity payloads into the
// canonical track log shape stored by the sync pipeline.
package normalize

import (
	"fmt"
	"math"
	"strconv"

	"runclub-sync/internal/database"
	"runclub-sync/internal/strava"
)

// FormatDuration renders integer seconds as "{h}h {m}m {s}s"
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatPace renders seconds-per-kilometer as "{m}:{ss}/km"
func FormatPace(secondsPerKm int64) string {
	mins := secondsPerKm / 60
	secs := secondsPerKm % 60
	return fmt.Sprintf("%d:%02d/km", mins, secs)
}

// PaceSeconds computes average pace in seconds per kilometer, rounded to
// the nearest second. Pace is 0 for non-positive distance.
func PaceSeconds(movingTime int64, distanceKm float64) int64 {
	if distanceKm <= 0 {
		return 0
	}
	return int64(math.Round(float64(movingTime) / distanceKm))
}

// Activity converts a raw Strava activity into a track log owned by the
// given user. Pure: the same input always produces the same output, and
// syncedAt is supplied by the caller rather than read from the clock.
func Activity(raw *strava.RawActivity, userID, syncMethod string, syncedAt int64) *database.TrackLog {
	distanceKm := raw.Distance / 1000

	paceSeconds := PaceSeconds(raw.MovingTime, distanceKm)

	// The calendar date is the first 10 characters of the start timestamp.
	// No timezone conversion: the local timestamp's convention carries
	// through to event window membership.
	startTime := raw.StartDateLocal
	if startTime == "" {
		startTime = raw.StartDate
	}
	date := startTime
	if len(date) > 10 {
		date = date[:10]
	}

	polyline := ""
	if raw.Map != nil {
		polyline = raw.Map.Polyline
		if polyline == "" {
			polyline = raw.Map.SummaryPolyline
		}
	}

	t := &database.TrackLog{
		UserID:           userID,
		StravaActivityID: strconv.FormatInt(raw.ID, 10),
		Name:             raw.Name,
		Date:             date,
		StartTime:        startTime,

		DistanceKm: distanceKm,

		MovingTime:           raw.MovingTime,
		ElapsedTime:          raw.ElapsedTime,
		MovingTimeFormatted:  FormatDuration(raw.MovingTime),
		ElapsedTimeFormatted: FormatDuration(raw.ElapsedTime),

		AvgPaceSeconds:   paceSeconds,
		AvgPaceFormatted: FormatPace(paceSeconds),

		ElevationGain: int64(math.Round(raw.TotalElevationGain)),
		ElevationHigh: raw.ElevHigh,
		ElevationLow:  raw.ElevLow,

		AvgHeartRate: raw.AverageHeartrate,
		MaxHeartRate: raw.MaxHeartrate,
		HasHeartRate: raw.AverageHeartrate != nil && *raw.AverageHeartrate > 0,

		AvgSpeedKmh: raw.AverageSpeed * 3.6,
		MaxSpeedKmh: raw.MaxSpeed * 3.6,

		Calories:     raw.Calories,
		ActivityType: raw.Type,

		MapPolyline: polyline,
		HasMap:      polyline != "",

		KudosCount:   raw.KudosCount,
		CommentCount: raw.CommentCount,
		AthleteCount: raw.AthleteCount,
		IsPrivate:    raw.Private,

		SyncedAt:   syncedAt,
		SyncMethod: syncMethod,
	}

	if len(raw.StartLatLng) == 2 {
		t.StartLat = &raw.StartLatLng[0]
		t.StartLng = &raw.StartLatLng[1]
	}
	if len(raw.EndLatLng) == 2 {
		t.EndLat = &raw.EndLatLng[0]
		t.EndLng = &raw.EndLatLng[1]
	}

	return t
}
