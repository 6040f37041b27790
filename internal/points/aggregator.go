// Package points aggregates track logs into per-user and per-team scoring
// for an event window. Scoring is 1 point per kilometer; the rule library
// is configuration the aggregator does not consult.
package points

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"runclub-sync/internal/database"
	"runclub-sync/internal/metrics"
)

var (
	// ErrEventNotFound means the event does not exist
	ErrEventNotFound = errors.New("event not found")
	// ErrParticipantNotFound means the user is not registered in the event
	ErrParticipantNotFound = errors.New("participant not found")
)

// MemberStanding is one user's ranked position within a team
type MemberStanding struct {
	Rank     int               `json:"rank"`
	UserID   string            `json:"userId"`
	Progress database.Progress `json:"progress"`
}

// TeamStanding is one team's ranked position within an event
type TeamStanding struct {
	Rank            int              `json:"rank"`
	TeamID          string           `json:"teamId"`
	TeamName        string           `json:"teamName"`
	TotalPoints     float64          `json:"totalPoints"`
	TotalDistance   float64          `json:"totalDistance"`
	TotalActivities int              `json:"totalActivities"`
	MemberCount     int              `json:"memberCount"`
	Members         []MemberStanding `json:"members"`
}

// Aggregator computes and persists event scoring
type Aggregator struct {
	db     *database.DB
	logger *slog.Logger
}

// NewAggregator creates a points aggregator
func NewAggregator(db *database.DB) *Aggregator {
	return &Aggregator{
		db:     db,
		logger: slog.Default(),
	}
}

// CalculateUserPoints scans the user's track logs inside the event window,
// derives the progress aggregate, and persists it onto the participant
// record. Distance sums stay unrounded until the aggregate boundary.
func (a *Aggregator) CalculateUserPoints(eventID, userID string) (*database.Progress, error) {
	event, err := a.db.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	participant, err := a.db.GetParticipant(eventID, userID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}

	progress, err := a.userProgress(event, userID)
	if err != nil {
		return nil, err
	}

	if err := a.db.UpdateParticipantProgress(eventID, userID, *progress); err != nil {
		return nil, fmt.Errorf("failed to persist progress: %w", err)
	}

	a.logger.Info("calculated participant points",
		"event_id", eventID,
		"user_id", userID,
		"total_activities", progress.TotalActivities,
		"total_points", progress.TotalPoints)

	return progress, nil
}

// RecalculateEvent runs CalculateUserPoints for every participant of an
// event. A failure for one participant is logged and does not stop the rest.
func (a *Aggregator) RecalculateEvent(eventID string) error {
	start := time.Now()

	event, err := a.db.GetEvent(eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return ErrEventNotFound
	}

	participants, err := a.db.ListParticipants(eventID)
	if err != nil {
		return err
	}

	for _, p := range participants {
		progress, err := a.userProgress(event, p.UserID)
		if err != nil {
			a.logger.Error("failed to compute participant progress, skipping",
				"event_id", eventID,
				"user_id", p.UserID,
				"error", err)
			continue
		}
		if err := a.db.UpdateParticipantProgress(eventID, p.UserID, *progress); err != nil {
			a.logger.Error("failed to persist participant progress, skipping",
				"event_id", eventID,
				"user_id", p.UserID,
				"error", err)
		}
	}

	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	a.logger.Info("recalculated event points",
		"event_id", eventID,
		"participants", len(participants))

	return nil
}

// RecalculateForUser recalculates every event the user participates in.
// Used by the webhook path after a new activity lands.
func (a *Aggregator) RecalculateForUser(userID string) error {
	participations, err := a.db.ListUserParticipations(userID)
	if err != nil {
		return err
	}

	for _, p := range participations {
		if _, err := a.CalculateUserPoints(p.EventID, userID); err != nil {
			a.logger.Error("failed to recalculate event for user, skipping",
				"event_id", p.EventID,
				"user_id", userID,
				"error", err)
		}
	}

	return nil
}

// EventStandings computes team and member rankings for an event, fresh
// from the track logs currently stored. Teams sort descending by points;
// ties keep their relative input order (stable sort), so the
// first-encountered of a tied pair takes the better rank.
func (a *Aggregator) EventStandings(eventID string) ([]TeamStanding, error) {
	event, err := a.db.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	participants, err := a.db.ListParticipants(eventID)
	if err != nil {
		return nil, err
	}

	byTeam := make(map[string][]MemberStanding)
	for _, p := range participants {
		progress, err := a.userProgress(event, p.UserID)
		if err != nil {
			return nil, err
		}
		byTeam[p.TeamID] = append(byTeam[p.TeamID], MemberStanding{
			UserID:   p.UserID,
			Progress: *progress,
		})
	}

	standings := make([]TeamStanding, 0, len(event.Teams))
	for _, team := range event.Teams {
		members := byTeam[team.ID]

		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Progress.TotalPoints > members[j].Progress.TotalPoints
		})

		ts := TeamStanding{
			TeamID:      team.ID,
			TeamName:    team.Name,
			MemberCount: len(members),
		}
		for i := range members {
			members[i].Rank = i + 1
			ts.TotalPoints += members[i].Progress.TotalPoints
			ts.TotalDistance += members[i].Progress.TotalDistance
			ts.TotalActivities += members[i].Progress.TotalActivities
		}
		ts.TotalPoints = round2(ts.TotalPoints)
		ts.TotalDistance = round2(ts.TotalDistance)
		ts.Members = members

		standings = append(standings, ts)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].TotalPoints > standings[j].TotalPoints
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}

	return standings, nil
}

// userProgress sums a user's track logs inside the event window.
// Every activity in the window is valid; points are distance in
// kilometers rounded to 2 decimals.
func (a *Aggregator) userProgress(event *database.Event, userID string) (*database.Progress, error) {
	logs, err := a.db.ListTrackLogsInWindow(userID, event.StartDate, event.EndDate)
	if err != nil {
		return nil, err
	}

	var totalDistance float64
	for _, log := range logs {
		totalDistance += log.DistanceKm
	}

	progress := &database.Progress{
		TotalDistance:   round2(totalDistance),
		TotalActivities: len(logs),
		ValidActivities: len(logs),
		TotalPoints:     round2(totalDistance),
	}
	if progress.TotalActivities > 0 {
		progress.CompletionRate = 100
	}

	return progress, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
