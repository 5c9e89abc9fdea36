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

// MonitorRepository handles monitor definition operations
type MonitorRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
	updates    *mongo.Collection
}

// NewMonitorRepository creates a new monitor repository
func NewMonitorRepository(db *MongoDB) *MonitorRepository {
	return &MonitorRepository{
		collection: db.GetCollection(CollectionMonitors),
		counters:   db.GetCollection(CollectionCounters),
		updates:    db.GetCollection(CollectionMonitorUpdates),
	}
}

// Create inserts a new monitor and flags it for an immediate check
func (r *MonitorRepository) Create(ctx context.Context, monitor *model.Monitor) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if monitor.ID == 0 {
		id, err := r.nextID(ctxTimeout)
		if err != nil {
			return err
		}
		monitor.ID = id
	}

	now := time.Now().UTC()
	monitor.CreatedAt = now
	monitor.UpdatedAt = now
	if monitor.Status == "" {
		monitor.Status = model.MonitorStatusUnknown
	}

	if _, err := r.collection.InsertOne(ctxTimeout, monitor); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("monitor with id %d already exists", monitor.ID)
		}
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	_, err := r.updates.UpdateOne(ctxTimeout,
		bson.M{"_id": monitor.ID},
		bson.M{"$set": bson.M{"must_update": true, "updated_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue monitor update: %w", err)
	}

	return nil
}

// nextID allocates a sequential monitor id from the counters collection
func (r *MonitorRepository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": CollectionMonitors},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate monitor id: %w", err)
	}

	return counter.Seq, nil
}

// GetByID retrieves a monitor by ID
func (r *MonitorRepository) GetByID(ctx context.Context, id int64) (*model.Monitor, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var monitor model.Monitor
	err := r.collection.FindOne(ctxTimeout, bson.M{"_id": id}).Decode(&monitor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("monitor %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}

	return &monitor, nil
}

// ListByType retrieves every monitor of the given type
func (r *MonitorRepository) ListByType(ctx context.Context, monitorType model.MonitorType) ([]*model.Monitor, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"type": monitorType}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var monitors []*model.Monitor
	if err := cursor.All(ctxTimeout, &monitors); err != nil {
		return nil, fmt.Errorf("failed to decode monitors: %w", err)
	}

	return monitors, nil
}
