package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/pulse/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpdateRepository handles manual re-check requests
type UpdateRepository struct {
	collection *mongo.Collection
}

// NewUpdateRepository creates a new update repository
func NewUpdateRepository(db *MongoDB) *UpdateRepository {
	return &UpdateRepository{
		collection: db.GetCollection(CollectionMonitorUpdates),
	}
}

// Flag raises the must_update flag for a monitor, creating the request if needed
func (r *UpdateRepository) Flag(ctx context.Context, monitorID int64) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"must_update": true,
			"updated_at":  time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctxTimeout, bson.M{"_id": monitorID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to flag monitor update: %w", err)
	}

	slog.Debug("Flagged monitor for update", "monitor_id", monitorID)
	return nil
}

// ListFlagged returns the ids of all monitors with a pending request
func (r *UpdateRepository) ListFlagged(ctx context.Context) ([]int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"must_update": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor updates: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var updates []model.MonitorUpdate
	if err := cursor.All(ctxTimeout, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode monitor updates: %w", err)
	}

	ids := make([]int64, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.MonitorID)
	}

	return ids, nil
}

// Clear lowers the must_update flag for a monitor
func (r *UpdateRepository) Clear(ctx context.Context, monitorID int64) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"must_update": false,
			"updated_at":  time.Now().UTC(),
		},
	}

	if _, err := r.collection.UpdateOne(ctxTimeout, bson.M{"_id": monitorID}, update); err != nil {
		return fmt.Errorf("failed to clear monitor update: %w", err)
	}

	return nil
}
