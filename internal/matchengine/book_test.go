package matchengine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/order"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func restingOrder(b *Book, side order.Side, price, qty string, sessionID, clientID string) *order.Order {
	o := &order.Order{
		OrderId:        b.NextOrderID(),
		ClientOrderId:  clientID,
		Side:           side,
		Type:           order.Limit,
		Price:          dec(price),
		Quantity:       dec(qty),
		LeavesQuantity: dec(qty),
		TimeInForce:    order.Day,
		SessionId:      sessionID,
	}
	b.mu.Lock()
	b.insertResting(o)
	b.mu.Unlock()
	return o
}

func TestBookBestBidAskOrdering(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")
	restingOrder(b, order.Buy, "10.50", "100", "s1", "c2")
	restingOrder(b, order.Sell, "11.00", "100", "s2", "c3")
	restingOrder(b, order.Sell, "10.75", "100", "s2", "c4")

	bid, ok := b.BestBid()
	if !ok || !bid.Price.Equal(dec("10.50")) {
		t.Fatalf("expected best bid 10.50, got %v", bid)
	}
	ask, ok := b.BestAsk()
	if !ok || !ask.Price.Equal(dec("10.75")) {
		t.Fatalf("expected best ask 10.75, got %v", ask)
	}
}

func TestBookCancelOrderRemovesFromLevel(t *testing.T) {
	b := NewBook()
	o := restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")

	canceled, ok := b.CancelOrder(o.OrderId)
	if !ok || canceled.OrderId != o.OrderId {
		t.Fatal("expected cancel to succeed")
	}
	if _, ok := b.BestBid(); ok {
		t.Fatal("expected book to be empty after cancel")
	}
}

func TestBookCancelAllBySession(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")
	restingOrder(b, order.Buy, "9.50", "100", "s1", "c2")
	restingOrder(b, order.Sell, "11.00", "100", "s2", "c3")

	canceled := b.CancelAllBySession("s1")
	if len(canceled) != 2 {
		t.Fatalf("expected 2 orders canceled for s1, got %d", len(canceled))
	}
	if _, ok := b.BestBid(); ok {
		t.Fatal("expected no bids left after canceling s1's orders")
	}
	if _, ok := b.BestAsk(); !ok {
		t.Fatal("expected s2's ask to remain")
	}
}

func TestBookDepthAggregatesQuantityPerLevel(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")
	restingOrder(b, order.Buy, "10.00", "50", "s1", "c2")

	d := b.Depth(0)
	if len(d.Bids) != 1 {
		t.Fatalf("expected 1 bid level, got %d", len(d.Bids))
	}
	if !d.Bids[0].Quantity.Equal(dec("150")) {
		t.Fatalf("expected aggregated quantity 150, got %s", d.Bids[0].Quantity)
	}
}

func TestBookReduceQuantityPreservesCum(t *testing.T) {
	b := NewBook()
	o := restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")
	o.LeavesQuantity = dec("70") // simulate 30 already executed

	reduced, ok := b.ReduceQuantity(o.OrderId, dec("50"))
	if !ok {
		t.Fatal("expected reduce to succeed")
	}
	if !reduced.Quantity.Equal(dec("50")) {
		t.Fatalf("expected Quantity 50, got %s", reduced.Quantity)
	}
	if !reduced.LeavesQuantity.Equal(dec("20")) {
		t.Fatalf("expected leaves 20 (50 - 30 cum), got %s", reduced.LeavesQuantity)
	}
}

func TestBookRenameClientOrderIdUpdatesLookup(t *testing.T) {
	b := NewBook()
	o := restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")

	b.RenameClientOrderId(o, "c1b")

	if _, ok := b.GetByClientOrderId("s1", "c1"); ok {
		t.Fatal("expected old client order id to no longer resolve")
	}
	renamed, ok := b.GetByClientOrderId("s1", "c1b")
	if !ok || renamed.OrderId != o.OrderId {
		t.Fatal("expected new client order id to resolve to the same order")
	}
}

func TestBookDepthExcludingSessionSubtractsOwnQuantity(t *testing.T) {
	b := NewBook()
	restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")
	restingOrder(b, order.Buy, "10.00", "40", "s2", "c2")
	restingOrder(b, order.Buy, "9.50", "30", "s1", "c3")

	d := b.DepthExcludingSession(0, "s1")
	if len(d.Bids) != 1 {
		t.Fatalf("expected the 9.50 level to be dropped (entirely s1's own), got %d levels", len(d.Bids))
	}
	if !d.Bids[0].Price.Equal(dec("10.00")) || !d.Bids[0].Quantity.Equal(dec("40")) {
		t.Fatalf("expected 10.00 x 40 with s1's 100 excluded, got %+v", d.Bids[0])
	}
}

func TestBookFIFOPriorityWithinLevel(t *testing.T) {
	b := NewBook()
	first := restingOrder(b, order.Buy, "10.00", "100", "s1", "c1")
	second := restingOrder(b, order.Buy, "10.00", "100", "s1", "c2")

	lvl, _ := b.BestBid()
	if lvl.Orders[0].OrderId != first.OrderId || lvl.Orders[1].OrderId != second.OrderId {
		t.Fatal("expected FIFO ordering within a price level")
	}
}
