package persist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// RunRetention periodically deletes trade-tape entries older than the
// retention period. Blocks until ctx is cancelled. Pass retentionDays <= 0
// to disable. Grounded on the teacher's persist/retention.go; retargeted
// from Store to MongoStore and from stdlib log to zerolog.
func RunRetention(ctx context.Context, store *MongoStore, retentionDays int) {
	if retentionDays <= 0 {
		log.Info().Msg("trade tape retention disabled (keep forever)")
		return
	}

	interval := 1 * time.Hour
	log.Info().Int("retention_days", retentionDays).Dur("interval", interval).Msg("trade tape retention starting")

	prune(ctx, store, retentionDays)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune(ctx, store, retentionDays)
		}
	}
}

func prune(ctx context.Context, store *MongoStore, retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := store.db.Collection("trades").DeleteMany(ctx, bson.M{
		"executed_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		log.Error().Err(err).Msg("trade tape retention prune failed")
		return
	}

	if result.DeletedCount > 0 {
		log.Info().Int64("deleted", result.DeletedCount).Time("cutoff", cutoff).Msg("trade tape retention pruned")
	}
}
