package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Trade represents a persisted trade document, read back with exact decimal
// precision from the string-encoded price/quantity fields (see tradeDoc in
// mongostore.go).
type Trade struct {
	TradeId          uint64          `json:"tradeId"`
	InstrumentId     uint64          `json:"instrumentId"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	AggressorOrderId uint64          `json:"aggressorOrderId"`
	MakerOrderId     uint64          `json:"makerOrderId"`
	AggressorSession string          `json:"aggressorSession,omitempty"`
	MakerSession     string          `json:"makerSession,omitempty"`
	AggressorSide    string          `json:"aggressorSide,omitempty"`
	ExecutedAt       time.Time       `json:"executedAt"`
}

// TradeFilter controls which trades to return.
type TradeFilter struct {
	InstrumentId uint64
	Limit        int
	Offset       int
	From         *time.Time
	To           *time.Time
}

// Candle represents an OHLCV bar. Open/High/Low/Close are computed from the
// trade tape's float64 shadow field (price_f) — the candle endpoint is an
// analytics convenience, not a source of truth for any order-matching
// decision, so the float64 precision loss here never reaches the engine.
type Candle struct {
	Bucket time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
	Count  int64     `json:"n"`
}

// CandleFilter controls candle query parameters.
type CandleFilter struct {
	InstrumentId uint64
	Interval     string // "1m","5m","15m","1h","4h","1d"
	Limit        int
	From         *time.Time
	To           *time.Time
}

// TradeStats holds aggregate trade statistics for one instrument.
type TradeStats struct {
	TotalTrades int64   `json:"totalTrades"`
	TotalVolume float64 `json:"totalVolume"`
}

// TradeReader abstracts read-only trade/candle/stats queries, consumed by
// internal/adminapi's reporting endpoints.
type TradeReader interface {
	QueryTrades(ctx context.Context, f TradeFilter) ([]Trade, error)
	QueryCandles(ctx context.Context, f CandleFilter) ([]Candle, error)
	QueryTradeStats(ctx context.Context, instrumentID uint64) (TradeStats, error)
}

// MongoTradeReader implements TradeReader using a mongo.Database.
type MongoTradeReader struct {
	db *mongo.Database
}

// NewMongoTradeReader creates a new MongoTradeReader.
func NewMongoTradeReader(db *mongo.Database) *MongoTradeReader {
	return &MongoTradeReader{db: db}
}

// intervalSeconds maps interval strings to their duration in seconds.
var intervalSeconds = map[string]int{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"1h":  3600,
	"4h":  14400,
	"1d":  86400,
}

type tradeReadDoc struct {
	TradeId          uint64    `bson:"trade_id"`
	InstrumentId     uint64    `bson:"instrument_id"`
	Price            string    `bson:"price"`
	Quantity         string    `bson:"quantity"`
	AggressorID      uint64    `bson:"aggressor_order_id"`
	MakerID          uint64    `bson:"maker_order_id"`
	AggressorSession string    `bson:"aggressor_session"`
	MakerSession     string    `bson:"maker_session"`
	AggressorSide    string    `bson:"aggressor_side"`
	ExecutedAt       time.Time `bson:"executed_at"`
}

// fromTradeReadDoc parses a stored trade document back into a Trade.
// Quantity is stored only when the venue's trade-streaming flags select
// it (mongostore.go's toTradeDoc), so an empty string reads back as zero
// rather than a parse error.
func fromTradeReadDoc(d tradeReadDoc) (Trade, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return Trade{}, fmt.Errorf("parse price %q: %w", d.Price, err)
	}
	qty := decimal.Zero
	if d.Quantity != "" {
		qty, err = decimal.NewFromString(d.Quantity)
		if err != nil {
			return Trade{}, fmt.Errorf("parse quantity %q: %w", d.Quantity, err)
		}
	}
	return Trade{
		TradeId:          d.TradeId,
		InstrumentId:     d.InstrumentId,
		Price:            price,
		Quantity:         qty,
		AggressorOrderId: d.AggressorID,
		MakerOrderId:     d.MakerID,
		AggressorSession: d.AggressorSession,
		MakerSession:     d.MakerSession,
		AggressorSide:    d.AggressorSide,
		ExecutedAt:       d.ExecutedAt,
	}, nil
}

// QueryTrades returns trades for an instrument with optional time range and
// pagination.
func (r *MongoTradeReader) QueryTrades(ctx context.Context, f TradeFilter) ([]Trade, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	filter := bson.M{"instrument_id": f.InstrumentId}
	if f.From != nil || f.To != nil {
		timeFilter := bson.M{}
		if f.From != nil {
			timeFilter["$gte"] = *f.From
		}
		if f.To != nil {
			timeFilter["$lte"] = *f.To
		}
		filter["executed_at"] = timeFilter
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}}).
		SetLimit(int64(f.Limit)).
		SetSkip(int64(f.Offset))

	cursor, err := r.db.Collection("trades").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []tradeReadDoc
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}

	trades := make([]Trade, 0, len(raw))
	for _, d := range raw {
		t, err := fromTradeReadDoc(d)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// QueryCandles returns OHLCV bars for an instrument at the given interval.
func (r *MongoTradeReader) QueryCandles(ctx context.Context, f CandleFilter) ([]Candle, error) {
	secs, ok := intervalSeconds[f.Interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval: %s", f.Interval)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	matchFilter := bson.M{"instrument_id": f.InstrumentId}
	if f.From != nil || f.To != nil {
		timeFilter := bson.M{}
		if f.From != nil {
			timeFilter["$gte"] = *f.From
		}
		if f.To != nil {
			timeFilter["$lte"] = *f.To
		}
		matchFilter["executed_at"] = timeFilter
	}

	millisPerBucket := int64(secs) * 1000

	// Floor epoch-millis to interval boundary:
	// bucket = Date(toLong(executed_at) - (toLong(executed_at) % millisPerBucket))
	bucketExpr := bson.M{
		"$toDate": bson.M{
			"$subtract": bson.A{
				bson.M{"$toLong": "$executed_at"},
				bson.M{"$mod": bson.A{
					bson.M{"$toLong": "$executed_at"},
					millisPerBucket,
				}},
			},
		},
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: matchFilter}},
		{{Key: "$sort", Value: bson.D{{Key: "executed_at", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bucketExpr},
			{Key: "open", Value: bson.M{"$first": "$price_f"}},
			{Key: "high", Value: bson.M{"$max": "$price_f"}},
			{Key: "low", Value: bson.M{"$min": "$price_f"}},
			{Key: "close", Value: bson.M{"$last": "$price_f"}},
			{Key: "volume", Value: bson.M{"$sum": "$quantity_f"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
		{{Key: "$limit", Value: int64(f.Limit)}},
	}

	cursor, err := r.db.Collection("trades").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []struct {
		Bucket time.Time `bson:"_id"`
		Open   float64   `bson:"open"`
		High   float64   `bson:"high"`
		Low    float64   `bson:"low"`
		Close  float64   `bson:"close"`
		Volume float64   `bson:"volume"`
		Count  int64     `bson:"count"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	candles := make([]Candle, len(raw))
	for i, r := range raw {
		candles[i] = Candle{
			Bucket: r.Bucket,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
			Count:  r.Count,
		}
	}
	if candles == nil {
		candles = []Candle{}
	}
	return candles, nil
}

// QueryTradeStats returns aggregate trade count and volume for one instrument.
func (r *MongoTradeReader) QueryTradeStats(ctx context.Context, instrumentID uint64) (TradeStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"instrument_id": instrumentID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_trades", Value: bson.M{"$sum": 1}},
			{Key: "total_volume", Value: bson.M{"$sum": "$quantity_f"}},
		}}},
	}

	cursor, err := r.db.Collection("trades").Aggregate(ctx, pipeline)
	if err != nil {
		return TradeStats{}, fmt.Errorf("query trade stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalTrades int64   `bson:"total_trades"`
		TotalVolume float64 `bson:"total_volume"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return TradeStats{}, fmt.Errorf("decode trade stats: %w", err)
	}

	if len(results) == 0 {
		return TradeStats{}, nil
	}
	return TradeStats{
		TotalTrades: results[0].TotalTrades,
		TotalVolume: results[0].TotalVolume,
	}, nil
}
