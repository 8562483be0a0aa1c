package matchengine

import (
	"testing"
	"time"

	"github.com/openmarket-sim/matchcore/internal/fabric"
	"github.com/openmarket-sim/matchcore/internal/instrument"
	"github.com/openmarket-sim/matchcore/internal/order"
	"github.com/openmarket-sim/matchcore/internal/phase"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

func testInstrument() instrument.Instrument {
	return instrument.Instrument{
		InstrumentId:  1,
		Symbol:        "ACME",
		SecurityType:  instrument.Equity,
		PriceCurrency: "USD",
		TickSize:      dec("0.01"),
		MinQuantity:   dec("1"),
	}
}

func newOpenEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(testInstrument(), fabric.Inline, DefaultConfig())
	e.OnPhaseTransition(phase.Transition{Kind: phase.Open}, false)
	return e
}

func TestEnginePlaceOrderRejectedWhenClosed(t *testing.T) {
	e := NewEngine(testInstrument(), fabric.Inline, DefaultConfig())

	var reports []wire.ExecutionReport
	e.OnExecutionReport(func(r wire.ExecutionReport) { reports = append(reports, r) })

	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	if len(reports) != 1 || reports[0].Status != wire.OrdStatusRejected || reports[0].RejectReason != wire.PhaseRejectsOrder {
		t.Fatalf("expected PhaseRejectsOrder rejection, got %+v", reports)
	}
}

// Scenario C: cancel-on-disconnect. A session's resting orders are
// canceled when NotifyClientDisconnected fires.
func TestEngineCancelOnDisconnect(t *testing.T) {
	e := newOpenEngine(t)

	var reports []wire.ExecutionReport
	e.OnExecutionReport(func(r wire.ExecutionReport) { reports = append(reports, r) })

	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	if e.book.byID == nil || len(e.book.AllOrders()) != 1 {
		t.Fatal("expected one resting order before disconnect")
	}

	reports = nil
	e.NotifyClientDisconnected("s1")

	if len(e.book.AllOrders()) != 0 {
		t.Fatal("expected the session's resting order to be canceled on disconnect")
	}
	if len(reports) != 1 || reports[0].Status != wire.OrdStatusCanceled {
		t.Fatalf("expected a cancel execution report, got %+v", reports)
	}
}

// Scenario D: a GTD order past its expiry is swept and reported expired on
// the next tick.
func TestEngineGTDExpirySweep(t *testing.T) {
	e := newOpenEngine(t)

	var reports []wire.ExecutionReport
	e.OnExecutionReport(func(r wire.ExecutionReport) { reports = append(reports, r) })

	expiry := time.Now().Add(-time.Minute) // already in the past
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"),
		TimeInForce: order.GTD, ExpireTime: expiry,
	}, time.Now())

	reports = nil
	e.OnTick(phase.TickEvent{SysTickTime: time.Now()})

	if len(e.book.AllOrders()) != 0 {
		t.Fatal("expected expired GTD order to be removed from the book")
	}
	if len(reports) != 1 || reports[0].Status != wire.OrdStatusExpired {
		t.Fatalf("expected an expired execution report, got %+v", reports)
	}
}

func TestEngineAmendDownAllowedWhileHaltedWithAllowCancels(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	e.OnPhaseTransition(phase.Transition{Kind: phase.Open, Halted: true}, false)
	e.mu.Lock()
	e.currentPhase.AllowCancels = true
	e.mu.Unlock()

	var rejects []wire.OrderCancelReject
	e.OnOrderCancelReject(func(r wire.OrderCancelReject) { rejects = append(rejects, r) })

	e.AmendOrder(order.Amendment{OrigClientOrderId: "c1", NewClientOrderId: "c1b", NewQuantity: dec("50")}, "s1", time.Now())

	if len(rejects) != 0 {
		t.Fatalf("expected amend-down to succeed while halted with allow-cancels, got reject %+v", rejects)
	}
	orders := e.book.AllOrders()
	if len(orders) != 1 || !orders[0].LeavesQuantity.Equal(dec("50")) {
		t.Fatalf("expected leaves quantity reduced to 50, got %+v", orders)
	}
}

func TestEngineAmendUpRejectedWhileHalted(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	e.OnPhaseTransition(phase.Transition{Kind: phase.Open, Halted: true}, false)
	e.mu.Lock()
	e.currentPhase.AllowCancels = true
	e.mu.Unlock()

	var rejects []wire.OrderCancelReject
	e.OnOrderCancelReject(func(r wire.OrderCancelReject) { rejects = append(rejects, r) })

	e.AmendOrder(order.Amendment{OrigClientOrderId: "c1", NewClientOrderId: "c1b", NewQuantity: dec("150")}, "s1", time.Now())

	if len(rejects) != 1 || rejects[0].RejectReason != wire.PhaseRejectsAmend {
		t.Fatalf("expected PhaseRejectsAmend, got %+v", rejects)
	}
}

// Amend-down in place: new_qty stays above cum, leaves is recomputed as
// new_qty - cum rather than set directly, and priority is preserved.
func TestEngineAmendDownPreservesCumAndPriority(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	resting := e.book.AllOrders()[0]
	resting.LeavesQuantity = dec("70") // 30 already executed

	e.AmendOrder(order.Amendment{OrigClientOrderId: "c1", NewClientOrderId: "c1", NewQuantity: dec("50")}, "s1", time.Now())

	orders := e.book.AllOrders()
	if len(orders) != 1 {
		t.Fatalf("expected the order to remain resting, got %d orders", len(orders))
	}
	if !orders[0].Quantity.Equal(dec("50")) || !orders[0].LeavesQuantity.Equal(dec("20")) {
		t.Fatalf("expected Quantity 50 / leaves 20 (cum 30 preserved), got %+v", orders[0])
	}
	if orders[0].OrderId != resting.OrderId {
		t.Fatal("expected amend-down to keep the same order id (no priority loss)")
	}
}

// A price change is not a pure reduction: the order is removed and
// re-placed, losing its original order id and FIFO priority.
func TestEngineAmendPriceChangeReplacesOrder(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())
	original := e.book.AllOrders()[0].OrderId

	e.AmendOrder(order.Amendment{OrigClientOrderId: "c1", NewClientOrderId: "c1", NewPrice: dec("10.50"), NewQuantity: dec("100")}, "s1", time.Now())

	orders := e.book.AllOrders()
	if len(orders) != 1 {
		t.Fatalf("expected one resting order after replace, got %d", len(orders))
	}
	if orders[0].OrderId == original {
		t.Fatal("expected a price-change amend to lose the original order id")
	}
	if !orders[0].Price.Equal(dec("10.50")) {
		t.Fatalf("expected replacement at the new price, got %s", orders[0].Price)
	}
}

// A quantity increase also loses priority: it goes through remove+replace,
// not an in-place bump.
func TestEngineAmendQuantityIncreaseReplacesOrder(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())
	original := e.book.AllOrders()[0].OrderId

	e.AmendOrder(order.Amendment{OrigClientOrderId: "c1", NewClientOrderId: "c1", NewQuantity: dec("150")}, "s1", time.Now())

	orders := e.book.AllOrders()
	if len(orders) != 1 || orders[0].OrderId == original {
		t.Fatalf("expected a quantity increase to replace the order, got %+v", orders)
	}
	if !orders[0].Quantity.Equal(dec("150")) {
		t.Fatalf("expected replacement quantity 150, got %s", orders[0].Quantity)
	}
}

// new_qty == cum_qty fully consumes the order: it is reported filled and
// removed rather than left resting at zero leaves.
func TestEngineAmendDownToCumReportsFilled(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())
	resting := e.book.AllOrders()[0]
	resting.LeavesQuantity = dec("70")

	var reports []wire.ExecutionReport
	e.OnExecutionReport(func(r wire.ExecutionReport) { reports = append(reports, r) })

	e.AmendOrder(order.Amendment{OrigClientOrderId: "c1", NewClientOrderId: "c1", NewQuantity: dec("30")}, "s1", time.Now())

	if len(e.book.AllOrders()) != 0 {
		t.Fatal("expected the order to be removed once amended down to its cum quantity")
	}
	if len(reports) != 1 || reports[0].Status != wire.OrdStatusFilled {
		t.Fatalf("expected a filled report, got %+v", reports)
	}
}

func TestEnginePlaceOrderRejectsUnsupportedTIF(t *testing.T) {
	e := NewEngine(testInstrument(), fabric.Inline, configWithoutIOC())
	e.OnPhaseTransition(phase.Transition{Kind: phase.Open}, false)

	var reports []wire.ExecutionReport
	e.OnExecutionReport(func(r wire.ExecutionReport) { reports = append(reports, r) })

	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.IOC,
	}, time.Now())

	if len(reports) != 1 || reports[0].RejectReason != wire.UnsupportedTIF {
		t.Fatalf("expected UnsupportedTIF rejection, got %+v", reports)
	}
}

func configWithoutIOC() Config {
	cfg := DefaultConfig()
	cfg.SupportIOC = false
	return cfg
}

func TestEngineOnPhaseTransitionEmitsSecurityStatus(t *testing.T) {
	e := NewEngine(testInstrument(), fabric.Inline, DefaultConfig())

	var statuses []wire.SecurityStatus
	e.OnSecurityStatus(func(s wire.SecurityStatus) { statuses = append(statuses, s) })

	e.OnPhaseTransition(phase.Transition{Kind: phase.Open}, false)
	e.OnPhaseTransition(phase.Transition{Kind: phase.Open, Halted: true}, false)
	e.OnPhaseTransition(phase.Transition{Kind: phase.Closed}, true)

	if len(statuses) != 3 {
		t.Fatalf("expected a SecurityStatus per transition, got %d", len(statuses))
	}
	if statuses[0].Status != wire.TradingOpen || statuses[1].Status != wire.TradingHalted || statuses[2].Status != wire.TradingClosed {
		t.Fatalf("unexpected status sequence: %+v", statuses)
	}
}

func TestEngineProcessSecurityStatusRequestReplies(t *testing.T) {
	e := newOpenEngine(t)

	var statuses []wire.SecurityStatus
	e.OnSecurityStatus(func(s wire.SecurityStatus) { statuses = append(statuses, s) })

	e.ProcessSecurityStatusRequest(wire.SecurityStatusRequest{SessionId: "s1", InstrumentId: e.InstrumentID()})

	if len(statuses) != 1 || statuses[0].SessionId != "s1" || statuses[0].Status != wire.TradingOpen {
		t.Fatalf("expected a TradingOpen reply to s1, got %+v", statuses)
	}
}

func TestEngineProcessMarketDataRequestSnapshotOnly(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	var snap wire.MarketDataSnapshotFullRefresh
	e.ProcessMarketDataRequest(wire.MarketDataRequest{SessionId: "s1", MarketDepth: 5, SubscriptionOn: false}, func(s wire.MarketDataSnapshotFullRefresh) { snap = s }, nil)

	if len(snap.Bids) != 1 || !snap.Bids[0].Quantity.Equal(dec("100")) {
		t.Fatalf("expected one bid level of 100, got %+v", snap.Bids)
	}
	if e.MarketData().SubscriberCount() != 0 {
		t.Fatal("expected a reply-once request to create no subscription")
	}
}

func TestEngineProcessMarketDataRequestRejectsBadDepth(t *testing.T) {
	e := newOpenEngine(t)

	var rejects []wire.MarketDataRequestReject
	e.OnMarketDataReject(func(r wire.MarketDataRequestReject) { rejects = append(rejects, r) })

	e.ProcessMarketDataRequest(wire.MarketDataRequest{SessionId: "s1", MDReqId: "md1", MarketDepth: 0}, nil, nil)

	if len(rejects) != 1 || rejects[0].RejectReason != wire.BadQuantity || rejects[0].MDReqId != "md1" {
		t.Fatalf("expected a BadQuantity MarketDataRequestReject, got %+v", rejects)
	}
}

func TestEngineScheduledCloseCancelsRestingOrders(t *testing.T) {
	e := newOpenEngine(t)
	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.Day,
	}, time.Now())

	var reports []wire.ExecutionReport
	e.OnExecutionReport(func(r wire.ExecutionReport) { reports = append(reports, r) })

	e.OnPhaseTransition(phase.Transition{Kind: phase.Closed, Scheduled: true}, true)

	if len(e.book.AllOrders()) != 0 {
		t.Fatal("expected resting orders canceled on scheduled close")
	}
	if len(reports) != 1 || reports[0].Status != wire.OrdStatusCanceled {
		t.Fatalf("expected a cancel report for the swept order, got %+v", reports)
	}
}
