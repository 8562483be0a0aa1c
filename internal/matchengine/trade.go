package matchengine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/order"
)

// Trade is one execution resulting from the matching algorithm.
type Trade struct {
	TradeId          uint64
	InstrumentId     uint64
	Price            decimal.Decimal
	Quantity         decimal.Decimal
	AggressorOrderId uint64
	AggressorSide    order.Side
	AggressorSession string
	MakerOrderId     uint64
	MakerSession     string
	ExecutedAt       time.Time
}
