package matchengine

import (
	"testing"
	"time"

	"github.com/openmarket-sim/matchcore/internal/order"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

func incomingOrder(b *Book, side order.Side, typ order.OrderType, price, qty string, tif order.TimeInForce, sessionID, clientID string) *order.Order {
	return &order.Order{
		OrderId:        b.NextOrderID(),
		ClientOrderId:  clientID,
		Side:           side,
		Type:           typ,
		Price:          dec(price),
		Quantity:       dec(qty),
		LeavesQuantity: dec(qty),
		TimeInForce:    tif,
		SessionId:      sessionID,
	}
}

// Scenario A: a simple cross. A resting sell order at 10.00 is fully
// filled by an incoming buy at 10.00.
func TestMatchSimpleCross(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Sell, "10.00", "100", "maker", "m1")

	m := NewMatcher(time.Now)
	var nextTrade uint64
	incoming := incomingOrder(b, order.Buy, order.Limit, "10.00", "100", order.Day, "taker", "t1")

	res := m.Match(b, incoming, func() uint64 { nextTrade++; return nextTrade })

	if res.Rejected != wire.RejectNone {
		t.Fatalf("unexpected rejection: %v", res.Rejected)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !tr.Price.Equal(dec("10.00")) || !tr.Quantity.Equal(dec("100")) {
		t.Fatalf("unexpected trade terms: %+v", tr)
	}
	if incoming.LeavesQuantity.Sign() != 0 {
		t.Fatalf("expected incoming fully filled, leaves=%s", incoming.LeavesQuantity)
	}
	if _, ok := b.BestAsk(); ok {
		t.Fatal("expected resting maker order fully consumed")
	}
}

// Scenario B: FOK cannot be filled in full against available liquidity and
// is rejected outright, leaving the book untouched.
func TestMatchFOKInsufficientLiquidityRejectsWithoutPartialFill(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Sell, "10.00", "50", "maker", "m1")

	m := NewMatcher(time.Now)
	incoming := incomingOrder(b, order.Buy, order.Limit, "10.00", "100", order.FOK, "taker", "t1")

	res := m.Match(b, incoming, func() uint64 { return 1 })

	if res.Rejected != wire.InsufficientLiquidity {
		t.Fatalf("expected InsufficientLiquidity, got %v", res.Rejected)
	}
	if len(res.Trades) != 0 {
		t.Fatal("expected no trades on FOK rejection")
	}
	ask, ok := b.BestAsk()
	if !ok || !ask.Orders[0].LeavesQuantity.Equal(dec("50")) {
		t.Fatal("expected resting maker order untouched by a rejected FOK")
	}
}

func TestMatchFOKFillsInFullWhenLiquiditySuffices(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Sell, "10.00", "100", "maker", "m1")

	m := NewMatcher(time.Now)
	incoming := incomingOrder(b, order.Buy, order.Limit, "10.00", "100", order.FOK, "taker", "t1")

	res := m.Match(b, incoming, func() uint64 { return 1 })
	if res.Rejected != wire.RejectNone {
		t.Fatalf("unexpected rejection: %v", res.Rejected)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
}

// IOC residual must expire rather than rest.
func TestMatchIOCResidualExpiresWithoutResting(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Sell, "10.00", "50", "maker", "m1")

	m := NewMatcher(time.Now)
	incoming := incomingOrder(b, order.Buy, order.Limit, "10.00", "100", order.IOC, "taker", "t1")

	res := m.Match(b, incoming, func() uint64 { return 1 })
	if res.Resting {
		t.Fatal("expected IOC residual not to rest")
	}
	if incoming.LeavesQuantity.Sign() == 0 {
		t.Fatal("expected IOC to have an unfilled residual in this scenario")
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 partial trade, got %d", len(res.Trades))
	}
}

// A Day order with no cross simply rests.
func TestMatchDayOrderRestsWhenNoCross(t *testing.T) {
	b := NewBook()
	m := NewMatcher(time.Now)
	incoming := incomingOrder(b, order.Buy, order.Limit, "10.00", "100", order.Day, "taker", "t1")

	res := m.Match(b, incoming, func() uint64 { return 1 })
	if !res.Resting {
		t.Fatal("expected order to rest")
	}
	bid, ok := b.BestBid()
	if !ok || bid.Orders[0].OrderId != incoming.OrderId {
		t.Fatal("expected incoming order to be resting on the book")
	}
}

// Price-time priority: at the same price, the earliest resting order fills
// first.
func TestMatchRespectsFIFOPriorityAtSamePrice(t *testing.T) {
	b := NewBook()
	first := restingOrder(b, order.Sell, "10.00", "50", "maker1", "m1")
	restingOrder(b, order.Sell, "10.00", "50", "maker2", "m2")

	m := NewMatcher(time.Now)
	incoming := incomingOrder(b, order.Buy, order.Limit, "10.00", "50", order.Day, "taker", "t1")

	res := m.Match(b, incoming, func() uint64 { return 1 })
	if len(res.Trades) != 1 || res.Trades[0].MakerOrderId != first.OrderId {
		t.Fatalf("expected the earliest resting order to be filled first, got %+v", res.Trades)
	}
}
