package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

const listPageSize = 100

// Map holds the encoded polyline for an activity
type Map struct {
	ID              string `json:"id"`
	Polyline        string `json:"polyline"`
	SummaryPolyline string `json:"summary_polyline"`
}

// RawActivity is the activity payload as returned by the Strava API,
// decoded once at this boundary so the normalizer operates on a typed value
type RawActivity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`

	Distance           float64 `json:"distance"` // meters
	MovingTime         int64   `json:"moving_time"`
	ElapsedTime        int64   `json:"elapsed_time"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	ElevHigh           float64 `json:"elev_high"`
	ElevLow            float64 `json:"elev_low"`

	StartDate      string `json:"start_date"`
	StartDateLocal string `json:"start_date_local"`

	AverageSpeed float64 `json:"average_speed"` // m/s
	MaxSpeed     float64 `json:"max_speed"`     // m/s

	AverageHeartrate *float64 `json:"average_heartrate,omitempty"`
	MaxHeartrate     *float64 `json:"max_heartrate,omitempty"`

	Calories *float64 `json:"calories,omitempty"`

	Map         *Map      `json:"map,omitempty"`
	StartLatLng []float64 `json:"start_latlng,omitempty"`
	EndLatLng   []float64 `json:"end_latlng,omitempty"`

	KudosCount   int64 `json:"kudos_count"`
	CommentCount int64 `json:"comment_count"`
	AthleteCount int64 `json:"athlete_count"`
	Private      bool  `json:"private"`
}

// ListActivities fetches the athlete's activities within the epoch-second
// window [after, before]
func (c *Client) ListActivities(ctx context.Context, accessToken string, after, before int64) ([]RawActivity, error) {
	params := url.Values{
		"after":    {strconv.FormatInt(after, 10)},
		"before":   {strconv.FormatInt(before, 10)},
		"per_page": {strconv.Itoa(listPageSize)},
	}

	path := "/athlete/activities?" + params.Encode()

	respBody, err := c.doRequest(ctx, "GET", path, accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	var activities []RawActivity
	if err := json.Unmarshal(respBody, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}

	return activities, nil
}

// GetActivity fetches full detail for a single activity
func (c *Client) GetActivity(ctx context.Context, accessToken string, activityID int64) (*RawActivity, error) {
	path := fmt.Sprintf("/activities/%d", activityID)

	respBody, err := c.doRequest(ctx, "GET", path, accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity %d: %w", activityID, err)
	}

	var activity RawActivity
	if err := json.Unmarshal(respBody, &activity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity: %w", err)
	}

	return &activity, nil
}

// UpdateDescription writes a description back onto the source activity.
// Best-effort: callers must not fail a sync on an error here.
func (c *Client) UpdateDescription(ctx context.Context, accessToken string, activityID int64, description string) error {
	body, err := json.Marshal(map[string]string{"description": description})
	if err != nil {
		return fmt.Errorf("failed to marshal description: %w", err)
	}

	path := fmt.Sprintf("/activities/%d", activityID)

	if _, err := c.doRequest(ctx, "PUT", path, accessToken, body); err != nil {
		return fmt.Errorf("failed to update activity %d description: %w", activityID, err)
	}

	return nil
}
