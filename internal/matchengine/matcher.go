package matchengine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/order"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

// Matcher implements the price-time FIFO crossing algorithm over a Book.
// Grounded on the walk-and-fill shape every matching-engine reference in
// the pack uses (the `abdoElHodaky-tradSys` manifest's heap-based book,
// the orderbook manifests), adapted to the teacher's slice-of-price-levels
// Book representation rather than a heap.
type Matcher struct {
	now func() time.Time
}

// NewMatcher returns a Matcher using now for trade timestamps (injected so
// tests can fix time).
func NewMatcher(now func() time.Time) *Matcher {
	if now == nil {
		now = time.Now
	}
	return &Matcher{now: now}
}

// crosses reports whether a resting order at restingPrice would trade
// against an incoming order on side incomingSide priced at incomingPrice
// (incomingPrice is ignored — treated as marketable — when market is
// true).
func crosses(incomingSide order.Side, incomingPrice decimal.Decimal, market bool, restingPrice decimal.Decimal) bool {
	if market {
		return true
	}
	if incomingSide == order.Buy {
		return incomingPrice.GreaterThanOrEqual(restingPrice)
	}
	return incomingPrice.LessThanOrEqual(restingPrice)
}

// opposingLevels returns the price levels incoming, on its side, would
// walk against.
func opposingLevels(b *Book, side order.Side) []*PriceLevel {
	if side == order.Buy {
		return b.Asks
	}
	return b.Bids
}

// precomputeFill walks the opposing book (without mutating it) to
// determine whether incoming could be filled in full at its limit/market
// terms. Used for FOK's all-or-nothing precompute-then-execute-or-reject
// rule (spec.md's Matching algorithm / invariant set).
func precomputeFill(b *Book, incoming *order.Order) decimal.Decimal {
	remaining := incoming.LeavesQuantity
	filled := decimal.Zero
	market := incoming.Type == order.Market

	for _, lvl := range opposingLevels(b, incoming.Side) {
		if remaining.Sign() <= 0 {
			break
		}
		if !crosses(incoming.Side, incoming.Price, market, lvl.Price) {
			break
		}
		for _, resting := range lvl.Orders {
			if remaining.Sign() <= 0 {
				break
			}
			take := decimal.Min(remaining, resting.LeavesQuantity)
			filled = filled.Add(take)
			remaining = remaining.Sub(take)
		}
	}
	return filled
}

// Result is the outcome of running incoming through the matcher.
type Result struct {
	Trades   []Trade
	Rejected wire.RejectReason // RejectNone on success
	Resting  bool              // true if a residual now rests on the book
}

// Match executes incoming against book in place: price-time FIFO walk of
// the opposing side, generating trades at the resting order's price (the
// maker sets the price, per standard price-time priority), reducing or
// removing fully-filled resting orders, and finally resting, expiring, or
// discarding incoming's residual per its TimeInForce.
func (m *Matcher) Match(book *Book, incoming *order.Order, nextTradeID func() uint64) Result {
	if incoming.TimeInForce == order.FOK {
		book.mu.RLock()
		fillable := precomputeFill(book, incoming)
		book.mu.RUnlock()
		if fillable.LessThan(incoming.LeavesQuantity) {
			return Result{Rejected: wire.InsufficientLiquidity}
		}
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	var trades []Trade
	market := incoming.Type == order.Market
	levels := opposingLevels(book, incoming.Side)

	li := 0
	for li < len(levels) && incoming.LeavesQuantity.Sign() > 0 {
		lvl := levels[li]
		if !crosses(incoming.Side, incoming.Price, market, lvl.Price) {
			break
		}

		oi := 0
		for oi < len(lvl.Orders) && incoming.LeavesQuantity.Sign() > 0 {
			resting := lvl.Orders[oi]
			take := decimal.Min(incoming.LeavesQuantity, resting.LeavesQuantity)

			trades = append(trades, Trade{
				TradeId:          nextTradeID(),
				InstrumentId:     incoming.InstrumentId,
				Price:            lvl.Price,
				Quantity:         take,
				AggressorOrderId: incoming.OrderId,
				AggressorSide:    incoming.Side,
				AggressorSession: incoming.SessionId,
				MakerOrderId:     resting.OrderId,
				MakerSession:     resting.SessionId,
				ExecutedAt:       m.now(),
			})

			incoming.LeavesQuantity = incoming.LeavesQuantity.Sub(take)
			resting.LeavesQuantity = resting.LeavesQuantity.Sub(take)

			if resting.LeavesQuantity.Sign() == 0 {
				book.forgetOrder(resting)
				lvl.Orders = append(lvl.Orders[:oi], lvl.Orders[oi+1:]...)
				continue
			}
			oi++
		}

		if len(lvl.Orders) == 0 {
			levels = append(levels[:li], levels[li+1:]...)
			continue
		}
		li++
	}

	// Write the walked side back; the side incoming trades on is the only
	// one ever mutated by this pass.
	if incoming.Side == order.Buy {
		book.Asks = levels
	} else {
		book.Bids = levels
	}

	res := Result{Trades: trades}

	if incoming.LeavesQuantity.Sign() == 0 {
		return res
	}

	switch incoming.TimeInForce {
	case order.IOC, order.FOK:
		// residual expires, never rests
	default:
		if incoming.Type == order.Market {
			// market orders never rest regardless of TIF validation upstream
			break
		}
		book.insertResting(incoming)
		res.Resting = true
	}

	return res
}
