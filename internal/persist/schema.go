package persist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates idempotent indexes on the trade-tape collections.
// Grounded on the teacher's persist/schema.go; trimmed to the two
// collections the trade tape actually needs (the teacher's "symbols" and
// "orders" collections served its simulated-universe fixture and resting
// order snapshot, both of which are replaced here by the file-based
// instrument state store in filestore.go).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: "trades",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "trade_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "trades",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "instrument_id", Value: 1},
					{Key: "executed_at", Value: -1},
				},
			},
		},
		{
			collection: "tape_state",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for _, i := range indexes {
		_, err := db.Collection(i.collection).Indexes().CreateOne(ctx, i.model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", i.collection, err)
		}
	}

	log.Info().Msg("trade tape indexes ensured")
	return nil
}
