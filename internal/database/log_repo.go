package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dandantas/pulse/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LogRepository handles monitor log operations
type LogRepository struct {
	collection *mongo.Collection
	monitors   *mongo.Collection
}

// NewLogRepository creates a new log repository
func NewLogRepository(db *MongoDB) *LogRepository {
	return &LogRepository{
		collection: db.GetCollection(CollectionMonitorLogs),
		monitors:   db.GetCollection(CollectionMonitors),
	}
}

// Append inserts a new log record and mirrors its status onto the monitor
func (r *LogRepository) Append(ctx context.Context, log *model.MonitorLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.collection.InsertOne(ctxTimeout, log); err != nil {
		return fmt.Errorf("failed to create monitor log: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"status":     string(log.Status),
			"updated_at": log.CreatedAt,
		},
	}
	if _, err := r.monitors.UpdateOne(ctxTimeout, bson.M{"_id": log.MonitorID}, update); err != nil {
		return fmt.Errorf("failed to update monitor status: %w", err)
	}

	return nil
}

// LatestStartedAt returns the start time of the newest log for a monitor
func (r *LogRepository) LatestStartedAt(ctx context.Context, monitorID int64) (time.Time, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetProjection(bson.M{"started_at": 1})

	res := r.collection.FindOne(ctxTimeout, bson.M{"monitor_id": monitorID}, opts)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get latest monitor log: %w", err)
	}

	var log model.MonitorLog
	if err := res.Decode(&log); err != nil {
		return time.Time{}, true, fmt.Errorf("failed to decode latest monitor log %d: %v: %w", monitorID, err, ErrCorruptRecord)
	}

	if log.StartedAt.IsZero() {
		return time.Time{}, true, fmt.Errorf("monitor %d has no usable started_at: %w", monitorID, ErrCorruptRecord)
	}

	return log.StartedAt.UTC(), true, nil
}

// ListByMonitor retrieves the newest logs of a monitor
func (r *LogRepository) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]model.MonitorLog, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "started_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"monitor_id": monitorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor logs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	logs := []model.MonitorLog{}
	if err := cursor.All(ctxTimeout, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode monitor logs: %w", err)
	}

	return logs, nil
}
