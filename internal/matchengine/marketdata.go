package matchengine

import (
	"sync"
	"time"

	"github.com/openmarket-sim/matchcore/internal/wire"
)

// MarketDataFacade reads the book's current depth on demand and fans out
// updates to subscribed sessions. It keeps no copy of previously published
// state, so every update carries a subscriber's full depth view rather than
// only the levels that changed. Grounded on the teacher's
// session.Manager.Broadcast (internal/session/manager.go): a lazy,
// encode-on-demand fan-out to a set of subscriber handles, generalized
// from "all WebSocket clients subscribed to a ticker" to "all FIX sessions
// subscribed to an instrument's market data", and from ITCH messages to
// wire.MarketDataIncrementalRefresh/Snapshot.
type MarketDataFacade struct {
	book             *Book
	excludeOwnOrders bool

	mu            sync.Mutex
	subscriptions map[string]subscription // sessionID -> subscription
}

type subscription struct {
	mdReqID   string
	depth     int
	sessionID string
	send      func(wire.MarketDataIncrementalRefresh)
}

// NewMarketDataFacade wraps book. When excludeOwnOrders is set (venue
// config DepthOrdersExclusion, spec.md §6), every subscriber's view of
// depth has their own resting quantity subtracted out.
func NewMarketDataFacade(book *Book, excludeOwnOrders bool) *MarketDataFacade {
	return &MarketDataFacade{book: book, excludeOwnOrders: excludeOwnOrders, subscriptions: make(map[string]subscription)}
}

// Subscribe registers sessionID for incremental updates on this
// instrument, delivered via send, and immediately returns a full-refresh
// snapshot for the caller to deliver as the initial response.
func (f *MarketDataFacade) Subscribe(sessionID, mdReqID string, depth int, send func(wire.MarketDataIncrementalRefresh)) wire.MarketDataSnapshotFullRefresh {
	f.mu.Lock()
	f.subscriptions[sessionID] = subscription{mdReqID: mdReqID, depth: depth, sessionID: sessionID, send: send}
	f.mu.Unlock()
	return f.snapshotFor(depth, sessionID)
}

// Snapshot returns a one-off full-refresh snapshot for sessionID without
// creating a subscription (a reply-once MarketDataRequest, spec.md §4.4).
func (f *MarketDataFacade) Snapshot(sessionID string, depth int) wire.MarketDataSnapshotFullRefresh {
	return f.snapshotFor(depth, sessionID)
}

// Unsubscribe removes sessionID's subscription.
func (f *MarketDataFacade) Unsubscribe(sessionID string) {
	f.mu.Lock()
	delete(f.subscriptions, sessionID)
	f.mu.Unlock()
}

func (f *MarketDataFacade) depthFor(depth int, sessionID string) DepthSnapshot {
	if f.excludeOwnOrders {
		return f.book.DepthExcludingSession(depth, sessionID)
	}
	return f.book.Depth(depth)
}

func (f *MarketDataFacade) snapshotFor(depth int, sessionID string) wire.MarketDataSnapshotFullRefresh {
	d := f.depthFor(depth, sessionID)
	return wire.MarketDataSnapshotFullRefresh{
		Bids:         toViews(d.Bids),
		Asks:         toViews(d.Asks),
		TransactTime: time.Now(),
	}
}

func toViews(levels []DepthLevel) []wire.PriceLevelView {
	out := make([]wire.PriceLevelView, len(levels))
	for i, l := range levels {
		out[i] = wire.PriceLevelView{Price: l.Price, Quantity: l.Quantity}
	}
	return out
}

// Publish sends every subscriber a fresh incremental refresh reflecting
// the book's current state for instrumentID. Called by the engine after
// any command that mutates the book.
func (f *MarketDataFacade) Publish(instrumentID uint64) {
	f.mu.Lock()
	subs := make([]subscription, 0, len(f.subscriptions))
	for _, s := range f.subscriptions {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		d := f.depthFor(s.depth, s.sessionID)
		s.send(wire.MarketDataIncrementalRefresh{
			InstrumentId: instrumentID,
			Bids:         toViews(d.Bids),
			Asks:         toViews(d.Asks),
			TransactTime: time.Now(),
		})
	}
}

// SubscriberCount reports the number of active subscriptions, for tests
// and diagnostics.
func (f *MarketDataFacade) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscriptions)
}
