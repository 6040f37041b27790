package normalize

import (
	"testing"

	"runclub-sync/internal/database"
	"runclub-sync/internal/strava"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{3661, "1h 1m 1s"},
		{59, "0h 0m 59s"},
		{0, "0h 0m 0s"},
		{7325, "2h 2m 5s"},
	}

	for _, c := range cases {
		got := FormatDuration(c.seconds)
		if got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestFormatPace(t *testing.T) {
	cases := []struct {
		secondsPerKm int64
		want         string
	}{
		{330, "5:30/km"},
		{300, "5:00/km"},
		{305, "5:05/km"},
		{0, "0:00/km"},
	}

	for _, c := range cases {
		got := FormatPace(c.secondsPerKm)
		if got != c.want {
			t.Errorf("FormatPace(%d) = %q, want %q", c.secondsPerKm, got, c.want)
		}
	}
}

func TestPaceSeconds(t *testing.T) {
	// 1800s over 5.2km = 346.15... -> 346
	if got := PaceSeconds(1800, 5.2); got != 346 {
		t.Errorf("PaceSeconds(1800, 5.2) = %d, want 346", got)
	}

	if got := PaceSeconds(1800, 0); got != 0 {
		t.Errorf("PaceSeconds with zero distance = %d, want 0", got)
	}

	if got := PaceSeconds(1800, -1); got != 0 {
		t.Errorf("PaceSeconds with negative distance = %d, want 0", got)
	}
}

func TestActivity(t *testing.T) {
	hr := 152.5
	maxHr := 171.0
	calories := 412.0

	raw := &strava.RawActivity{
		ID:                 12345,
		Name:               "Morning Run",
		Type:               "Run",
		Distance:           5200,
		MovingTime:         1800,
		ElapsedTime:        1900,
		TotalElevationGain: 42.6,
		ElevHigh:           120.5,
		ElevLow:            80.1,
		StartDate:          "2025-10-14T06:00:00Z",
		StartDateLocal:     "2025-10-14T08:00:00",
		AverageSpeed:       2.889,
		MaxSpeed:           4.2,
		AverageHeartrate:   &hr,
		MaxHeartrate:       &maxHr,
		Calories:           &calories,
		Map: &strava.Map{
			ID:              "a12345",
			SummaryPolyline: "summary_poly",
		},
		StartLatLng: []float64{52.5, 13.4},
		EndLatLng:   []float64{52.51, 13.41},
		KudosCount:  3,
	}

	log := Activity(raw, "user-1", database.SyncMethodManual, 1700000000)

	if log.StravaActivityID != "12345" {
		t.Errorf("Expected strava activity id '12345', got %q", log.StravaActivityID)
	}
	if log.DistanceKm != 5.2 {
		t.Errorf("Expected distance 5.2, got %f", log.DistanceKm)
	}
	if log.Date != "2025-10-14" {
		t.Errorf("Expected date '2025-10-14', got %q", log.Date)
	}
	if log.StartTime != "2025-10-14T08:00:00" {
		t.Errorf("Expected local start time, got %q", log.StartTime)
	}
	if log.MovingTimeFormatted != "0h 30m 0s" {
		t.Errorf("Unexpected moving time: %q", log.MovingTimeFormatted)
	}
	// 1800s / 5.2km = 346s -> 5:46/km
	if log.AvgPaceSeconds != 346 {
		t.Errorf("Expected pace 346, got %d", log.AvgPaceSeconds)
	}
	if log.AvgPaceFormatted != "5:46/km" {
		t.Errorf("Unexpected pace format: %q", log.AvgPaceFormatted)
	}
	if log.ElevationGain != 43 {
		t.Errorf("Expected elevation gain 43, got %d", log.ElevationGain)
	}
	if !log.HasHeartRate || log.AvgHeartRate == nil || *log.AvgHeartRate != 152.5 {
		t.Errorf("Unexpected heart rate: %v", log.AvgHeartRate)
	}
	if log.AvgSpeedKmh < 10.4 || log.AvgSpeedKmh > 10.41 {
		t.Errorf("Expected avg speed ~10.4, got %f", log.AvgSpeedKmh)
	}
	// Full polyline missing: falls back to summary
	if log.MapPolyline != "summary_poly" || !log.HasMap {
		t.Errorf("Unexpected polyline: %q", log.MapPolyline)
	}
	if log.StartLat == nil || *log.StartLat != 52.5 {
		t.Errorf("Unexpected start lat: %v", log.StartLat)
	}
	if log.SyncMethod != database.SyncMethodManual {
		t.Errorf("Unexpected sync method: %q", log.SyncMethod)
	}
	if log.SyncedAt != 1700000000 {
		t.Errorf("Unexpected synced at: %d", log.SyncedAt)
	}
}

func TestActivity_ZeroDistance(t *testing.T) {
	raw := &strava.RawActivity{
		ID:         555,
		Name:       "Treadmill glitch",
		Type:       "Run",
		Distance:   0,
		MovingTime: 600,
		StartDate:  "2025-10-14T06:00:00Z",
	}

	log := Activity(raw, "user-1", database.SyncMethodManual, 1700000000)

	if log.AvgPaceSeconds != 0 {
		t.Errorf("Expected pace 0 for zero distance, got %d", log.AvgPaceSeconds)
	}
	if log.AvgPaceFormatted != "0:00/km" {
		t.Errorf("Expected '0:00/km', got %q", log.AvgPaceFormatted)
	}
	// Local timestamp missing: UTC start date carries the calendar date
	if log.Date != "2025-10-14" {
		t.Errorf("Expected date from start_date fallback, got %q", log.Date)
	}
	if log.HasHeartRate {
		t.Error("Expected no heart rate")
	}
	if log.HasMap {
		t.Error("Expected no map")
	}
}
