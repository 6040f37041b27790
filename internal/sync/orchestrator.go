// Package sync pulls raw Strava activities for a user and upserts their
// normalized form into the track log store. Re-running a sync for an
// overlapping window converges on the same stored state.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"runclub-sync/internal/database"
	"runclub-sync/internal/metrics"
	"runclub-sync/internal/normalize"
	"runclub-sync/internal/strava"
	"runclub-sync/internal/token"
)

// Precondition failures, checked in this order
var (
	ErrNotConnected      = errors.New("strava integration not connected")
	ErrMissingToken      = errors.New("no access token present")
	ErrTokenExpiringSoon = errors.New("token expiring soon and refresh unavailable")
)

// Result reports the outcome of one sync run
type Result struct {
	Total   int `json:"total"`
	Saved   int `json:"saved"`
	Updated int `json:"updated"`
}

// Orchestrator drives the fetch-normalize-upsert pipeline
type Orchestrator struct {
	db     *database.DB
	client *strava.Client
	guard  *token.Guard
	logger *slog.Logger
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(db *database.DB, client *strava.Client, guard *token.Guard) *Orchestrator {
	return &Orchestrator{
		db:     db,
		client: client,
		guard:  guard,
		logger: slog.Default(),
	}
}

// SyncUserActivities fetches the user's activities in the calendar-date
// window [startDate, endDate] and upserts each as a track log. An empty
// window is a normal outcome, not a failure. One malformed activity is
// logged and skipped, never fatal to the batch.
func (o *Orchestrator) SyncUserActivities(ctx context.Context, user *database.User, startDate, endDate string) (*Result, error) {
	if !user.StravaConnected {
		return nil, ErrNotConnected
	}
	if user.AccessToken == "" {
		return nil, ErrMissingToken
	}

	user, accessToken, err := o.guard.FreshAccessToken(ctx, user)
	if err != nil {
		if errors.Is(err, token.ErrNoTokens) || errors.Is(err, token.ErrRefreshFailed) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpiringSoon, err)
		}
		return nil, err
	}

	after, before, err := windowBounds(startDate, endDate)
	if err != nil {
		return nil, err
	}

	o.logger.Info("starting activity sync",
		"user_id", user.ID,
		"start_date", startDate,
		"end_date", endDate)

	raws, err := o.client.ListActivities(ctx, accessToken, after, before)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	metrics.SyncBatchSize.Observe(float64(len(raws)))

	result := &Result{Total: len(raws)}
	if len(raws) == 0 {
		o.logger.Info("no activities in window", "user_id", user.ID)
		metrics.SyncRunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		return result, nil
	}

	syncedAt := time.Now().Unix()
	for i := range raws {
		raw := &raws[i]

		trackLog := normalize.Activity(raw, user.ID, database.SyncMethodManual, syncedAt)

		created, err := o.db.UpsertTrackLog(trackLog)
		if err != nil {
			// One bad activity must not block the rest of the batch
			o.logger.Error("failed to upsert activity, skipping",
				"user_id", user.ID,
				"activity_id", raw.ID,
				"error", err)
			metrics.ActivitiesSyncedTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			continue
		}

		if created {
			result.Saved++
			metrics.ActivitiesSyncedTotal.WithLabelValues(metrics.OutcomeSaved).Inc()
		} else {
			result.Updated++
			metrics.ActivitiesSyncedTotal.WithLabelValues(metrics.OutcomeUpdated).Inc()
		}
	}

	o.logger.Info("activity sync complete",
		"user_id", user.ID,
		"total", result.Total,
		"saved", result.Saved,
		"updated", result.Updated)
	metrics.SyncRunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	return result, nil
}

// SyncSingleActivity hydrates one activity by ID and inserts it if no
// track log with the same external ID exists. Used by the webhook path,
// which receives only an activity ID. Returns false when the record was
// already present (idempotent no-op).
func (o *Orchestrator) SyncSingleActivity(ctx context.Context, user *database.User, activityID int64) (bool, error) {
	user, accessToken, err := o.guard.ValidAccessToken(ctx, user)
	if err != nil {
		return false, err
	}

	raw, err := o.client.GetActivity(ctx, accessToken, activityID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch activity %d: %w", activityID, err)
	}

	trackLog := normalize.Activity(raw, user.ID, database.SyncMethodWebhook, time.Now().Unix())

	inserted, err := o.db.InsertTrackLogIfAbsent(trackLog)
	if err != nil {
		return false, err
	}

	if inserted {
		metrics.ActivitiesSyncedTotal.WithLabelValues(metrics.OutcomeSaved).Inc()
		o.logger.Info("stored webhook activity",
			"user_id", user.ID,
			"activity_id", activityID,
			"distance_km", trackLog.DistanceKm)
	} else {
		o.logger.Info("webhook activity already stored",
			"user_id", user.ID,
			"activity_id", activityID)
	}

	return inserted, nil
}

// windowBounds converts calendar dates to epoch-second bounds. The end
// bound covers the whole end day.
func windowBounds(startDate, endDate string) (int64, int64, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	return start.Unix(), end.AddDate(0, 0, 1).Unix(), nil
}
