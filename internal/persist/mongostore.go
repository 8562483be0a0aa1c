// Trade tape: a supplementary, non-spec-mandated durable trade log. Kept
// opt-in alongside the spec-mandated file-based instrument state store
// (filestore.go) because it is fully grounded in the teacher's MongoDB
// persistence layer and nothing in spec.md excludes an auditable trade
// history. A Mongo outage degrades to "no historical query", never to
// "can't place an order" — it is never on the path of a core command.
package persist

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/openmarket-sim/matchcore/internal/matchengine"
)

// TradeStreamConfig mirrors config.Config's trade-streaming flags
// (spec.md §6): Enabled is the master switch, the other three select which
// optional fields a trade document carries once streaming is on.
type TradeStreamConfig struct {
	Enabled          bool
	IncludeVolume    bool
	IncludeParties   bool
	IncludeAggressor bool
}

// MongoStore wraps the MongoDB client and database backing the trade
// tape. Grounded on the teacher's persist/store.go.
type MongoStore struct {
	client    *mongo.Client
	db        *mongo.Database
	streamCfg TradeStreamConfig
}

// NewMongoStore connects to MongoDB and returns a MongoStore. If uri's
// path carries no database name, "matchcore" is used.
func NewMongoStore(ctx context.Context, uri string, streamCfg TradeStreamConfig) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	dbName := "matchcore"
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	log.Info().Str("db", dbName).Msg("connected to trade tape store")
	return &MongoStore{client: client, db: client.Database(dbName), streamCfg: streamCfg}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) { s.client.Disconnect(ctx) }

// DB returns the underlying database.
func (s *MongoStore) DB() *mongo.Database { return s.db }

// Migrate ensures the trade tape's indexes exist.
func (s *MongoStore) Migrate(ctx context.Context) error {
	return EnsureIndexes(ctx, s.db)
}

// tradeDoc mirrors the persisted trade document. Price is always stored
// both as the exact decimal string (authoritative, for replay/audit) and
// as a float64 (for the candle aggregation pipeline in queries.go, which
// needs Mongo's numeric $sum/$min/$max — this copy is for analytics only
// and is never read back into a decimal.Decimal). The quantity, party, and
// aggressor-side fields are populated only when the venue's trade-
// streaming flags select them (spec.md §6's trade_streaming,
// trade_volume_streaming, trade_parties_streaming,
// trade_aggressor_streaming).
type tradeDoc struct {
	TradeId          uint64    `bson:"trade_id" json:"trade_id"`
	InstrumentId     uint64    `bson:"instrument_id" json:"instrument_id"`
	Price            string    `bson:"price" json:"price"`
	PriceFloat       float64   `bson:"price_f" json:"price_f"`
	Quantity         string    `bson:"quantity,omitempty" json:"quantity,omitempty"`
	QuantityFloat    float64   `bson:"quantity_f,omitempty" json:"quantity_f,omitempty"`
	AggressorID      uint64    `bson:"aggressor_order_id" json:"aggressor_order_id"`
	MakerID          uint64    `bson:"maker_order_id" json:"maker_order_id"`
	AggressorSession string    `bson:"aggressor_session,omitempty" json:"aggressor_session,omitempty"`
	MakerSession     string    `bson:"maker_session,omitempty" json:"maker_session,omitempty"`
	AggressorSide    string    `bson:"aggressor_side,omitempty" json:"aggressor_side,omitempty"`
	ExecutedAt       time.Time `bson:"executed_at" json:"executed_at"`
}

func toTradeDoc(t matchengine.Trade, cfg TradeStreamConfig) tradeDoc {
	doc := tradeDoc{
		TradeId:      t.TradeId,
		InstrumentId: t.InstrumentId,
		Price:        t.Price.String(),
		PriceFloat:   t.Price.InexactFloat64(),
		AggressorID:  t.AggressorOrderId,
		MakerID:      t.MakerOrderId,
		ExecutedAt:   t.ExecutedAt,
	}
	if !cfg.Enabled {
		return doc
	}
	if cfg.IncludeVolume {
		doc.Quantity = t.Quantity.String()
		doc.QuantityFloat = t.Quantity.InexactFloat64()
	}
	if cfg.IncludeParties {
		doc.AggressorSession = t.AggressorSession
		doc.MakerSession = t.MakerSession
	}
	if cfg.IncludeAggressor {
		doc.AggressorSide = t.AggressorSide.String()
	}
	return doc
}

// SaveTrade idempotently inserts one executed trade, grounded on the
// teacher's Snapshotter.SaveTrade (tolerates a duplicate-key error from a
// retried delivery, since the trade tape is append-only and at-least-once
// delivered).
func (s *MongoStore) SaveTrade(ctx context.Context, t matchengine.Trade) error {
	_, err := s.db.Collection("trades").InsertOne(ctx, toTradeDoc(t, s.streamCfg))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}
