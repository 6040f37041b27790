package metrics

import (
	"context"
	"log/slog"
	"time"
)

// DB is the subset of the store the collector reads
type DB interface {
	CountTrackLogs() (int, error)
	ListConnectedUsersCount() (int, error)
}

// StartStatsCollector starts a background goroutine that periodically
// collects storage gauges from the database
func StartStatsCollector(ctx context.Context, db DB, interval time.Duration) {
	logger := slog.Default()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect once immediately
	collectStats(db, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stats collector stopping")
			return
		case <-ticker.C:
			collectStats(db, logger)
		}
	}
}

func collectStats(db DB, logger *slog.Logger) {
	if count, err := db.CountTrackLogs(); err != nil {
		logger.Error("Failed to count track logs", "error", err)
	} else {
		TrackLogsStored.Set(float64(count))
	}

	if count, err := db.ListConnectedUsersCount(); err != nil {
		logger.Error("Failed to count connected users", "error", err)
	} else {
		ConnectedUsers.Set(float64(count))
	}
}
