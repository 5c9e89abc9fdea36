package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionIndexes lists the indexes each collection needs, in creation order
var collectionIndexes = []struct {
	collection string
	models     []mongo.IndexModel
}{
	{
		collection: CollectionMonitors,
		models: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "type", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetName("idx_type_id"),
			},
		},
	},
	{
		// latest started_at per monitor drives every next-due computation
		collection: CollectionMonitorLogs,
		models: []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "monitor_id", Value: 1},
					{Key: "started_at", Value: -1},
				},
				Options: options.Index().SetName("idx_monitor_id_started_at"),
			},
		},
	},
	{
		collection: CollectionMonitorUpdates,
		models: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "must_update", Value: 1}},
				Options: options.Index().SetName("idx_must_update"),
			},
		},
	},
}

// CreateIndexes creates all necessary indexes for the collections
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	slog.Info("Creating MongoDB indexes")

	for _, ci := range collectionIndexes {
		ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
		_, err := db.GetCollection(ci.collection).Indexes().CreateMany(ctxTimeout, ci.models)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", ci.collection, err)
		}

		slog.Debug("Created indexes", "collection", ci.collection, "count", len(ci.models))
	}

	slog.Info("Successfully created all MongoDB indexes")
	return nil
}
