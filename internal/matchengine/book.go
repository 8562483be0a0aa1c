// Package matchengine implements the per-instrument trading engine
// (spec.md §4.4): the price-time FIFO order book, the matching algorithm,
// the command surface an engine exposes through its ChainedMux, and the
// market-data fan-out facade.
//
// Book is adapted from the teacher's internal/orderbook/book.go: the same
// price-level-slice-plus-id-map shape, generalized from "accept random
// simulated mutations" to "accept and match real client orders", and with
// decimal.Decimal prices in place of the teacher's float64 (the book must
// never compare prices with a tolerance epsilon).
package matchengine

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/order"
)

// PriceLevel is one price point on one side of the book: the resting
// orders at that price, in FIFO priority order.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*order.Order
}

// Book is the price-time FIFO order book for a single instrument. Bids are
// kept sorted highest-price-first, Asks lowest-price-first, matching the
// teacher's addToSide/removeFromSide sort.Slice idiom.
type Book struct {
	mu   sync.RWMutex
	Bids []*PriceLevel
	Asks []*PriceLevel

	byID     map[uint64]*order.Order
	byClient map[string]*order.Order // key: SessionId + "\x00" + ClientOrderId

	nextOrderID  uint64
	nextPriority uint64
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		byID:     make(map[uint64]*order.Order),
		byClient: make(map[string]*order.Order),
	}
}

func clientKey(sessionID, clientOrderID string) string {
	return sessionID + "\x00" + clientOrderID
}

// NextOrderID assigns the next order id for this book's instrument. Order
// ids are unique within an instrument (spec.md §3), so each Book owns its
// own counter rather than sharing one process-global counter the way the
// teacher's orderbook.NextOrderID does.
func (b *Book) NextOrderID() uint64 {
	return atomic.AddUint64(&b.nextOrderID, 1)
}

func (b *Book) nextPriorityValue() uint64 {
	return atomic.AddUint64(&b.nextPriority, 1)
}

func sideSlice(b *Book, side order.Side) *[]*PriceLevel {
	if side == order.Buy {
		return &b.Bids
	}
	return &b.Asks
}

// insertResting adds o to the book as a new resting order (or the residual
// of a partially-filled one), assigning it FIFO priority within its price
// level. Caller must hold b.mu.
func (b *Book) insertResting(o *order.Order) {
	if o.Priority == 0 {
		o.Priority = b.nextPriorityValue()
	}
	levels := sideSlice(b, o.Side)

	idx := sort.Search(len(*levels), func(i int) bool {
		if o.Side == order.Buy {
			return (*levels)[i].Price.LessThanOrEqual(o.Price)
		}
		return (*levels)[i].Price.GreaterThanOrEqual(o.Price)
	})

	if idx < len(*levels) && (*levels)[idx].Price.Equal(o.Price) {
		(*levels)[idx].Orders = append((*levels)[idx].Orders, o)
	} else {
		lvl := &PriceLevel{Price: o.Price, Orders: []*order.Order{o}}
		*levels = append(*levels, nil)
		copy((*levels)[idx+1:], (*levels)[idx:])
		(*levels)[idx] = lvl
	}

	b.byID[o.OrderId] = o
	if o.SessionId != "" && o.ClientOrderId != "" {
		b.byClient[clientKey(o.SessionId, o.ClientOrderId)] = o
	}
}

// removeResting removes o from its price level entirely (full cancel, full
// fill, or expiry). Caller must hold b.mu.
func (b *Book) removeResting(o *order.Order) {
	levels := sideSlice(b, o.Side)
	for li, lvl := range *levels {
		for oi, resting := range lvl.Orders {
			if resting.OrderId == o.OrderId {
				lvl.Orders = append(lvl.Orders[:oi], lvl.Orders[oi+1:]...)
				if len(lvl.Orders) == 0 {
					*levels = append((*levels)[:li], (*levels)[li+1:]...)
				}
				b.forgetOrder(o)
				return
			}
		}
	}
}

// forgetOrder removes o from the id/client-order-id maps only, without
// touching either side's price-level slices. Used by the matcher, which
// walks and rewrites the opposing side's levels itself in one pass and
// would otherwise race its own slice surgery against removeResting's.
func (b *Book) forgetOrder(o *order.Order) {
	delete(b.byID, o.OrderId)
	if o.SessionId != "" && o.ClientOrderId != "" {
		delete(b.byClient, clientKey(o.SessionId, o.ClientOrderId))
	}
}

// GetOrder returns the resting order with the given id.
func (b *Book) GetOrder(id uint64) (*order.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byID[id]
	return o, ok
}

// GetByClientOrderId returns the resting order a session placed under the
// given ClientOrderId, used to resolve OrderCancelRequest/
// OrderCancelReplaceRequest, which address orders by ClientOrderId rather
// than the venue-assigned OrderId.
func (b *Book) GetByClientOrderId(sessionID, clientOrderID string) (*order.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byClient[clientKey(sessionID, clientOrderID)]
	return o, ok
}

// CancelOrder removes a resting order outright.
func (b *Book) CancelOrder(id uint64) (*order.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	b.removeResting(o)
	return o, true
}

// CancelAllBySession removes every resting order owned by sessionID,
// returning the canceled orders. Used for cancel-on-disconnect (spec.md
// §4.6); the scheduled-Closed-transition cancel sweep uses CancelAll.
func (b *Book) CancelAllBySession(sessionID string) []*order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var canceled []*order.Order
	for _, o := range b.byID {
		if o.SessionId == sessionID {
			canceled = append(canceled, o)
		}
	}
	for _, o := range canceled {
		b.removeResting(o)
	}
	return canceled
}

// CancelAll removes every resting order, returning them.
func (b *Book) CancelAll() []*order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	all := make([]*order.Order, 0, len(b.byID))
	for _, o := range b.byID {
		all = append(all, o)
	}
	for _, o := range all {
		b.removeResting(o)
	}
	return all
}

// RemoveExpiredGTD removes and returns every resting order for which
// isExpired reports true (the engine passes a GTD expiry check). The now
// argument is not consulted.
func (b *Book) RemoveExpiredGTD(now func() bool, isExpired func(*order.Order) bool) []*order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expired []*order.Order
	for _, o := range b.byID {
		if isExpired(o) {
			expired = append(expired, o)
		}
	}
	for _, o := range expired {
		b.removeResting(o)
	}
	return expired
}

// ReduceQuantity reduces a resting order's total Quantity to newQty and
// recomputes LeavesQuantity as newQty minus whatever has already executed,
// leaving price and FIFO priority untouched. Caller must already have
// checked newQty is within [cum, Quantity).
func (b *Book) ReduceQuantity(id uint64, newQty decimal.Decimal) (*order.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	cum := o.Quantity.Sub(o.LeavesQuantity)
	o.Quantity = newQty
	o.LeavesQuantity = newQty.Sub(cum)
	return o, true
}

// RenameClientOrderId updates o's ClientOrderId and keeps byClient's lookup
// key in sync. o must currently be resting in this book.
func (b *Book) RenameClientOrderId(o *order.Order, newClientOrderId string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.SessionId != "" && o.ClientOrderId != "" {
		delete(b.byClient, clientKey(o.SessionId, o.ClientOrderId))
	}
	o.ClientOrderId = newClientOrderId
	if o.SessionId != "" && newClientOrderId != "" {
		b.byClient[clientKey(o.SessionId, newClientOrderId)] = o
	}
}

// BestBid returns the best (highest) bid price level, if any.
func (b *Book) BestBid() (*PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.Bids) == 0 {
		return nil, false
	}
	return b.Bids[0], true
}

// BestAsk returns the best (lowest) ask price level, if any.
func (b *Book) BestAsk() (*PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.Asks) == 0 {
		return nil, false
	}
	return b.Asks[0], true
}

// DepthLevel is one row of a depth snapshot.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// DepthSnapshot is a read-only view of both sides of the book, trimmed to
// at most maxLevels rows per side.
type DepthSnapshot struct {
	Bids []DepthLevel
	Asks []DepthLevel
}

// Depth returns a snapshot of the book trimmed to maxLevels per side (0
// means unbounded). Grounded on the teacher's Book.Depth().
func (b *Book) Depth(maxLevels int) DepthSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	toDepth := func(levels []*PriceLevel) []DepthLevel {
		n := len(levels)
		if maxLevels > 0 && n > maxLevels {
			n = maxLevels
		}
		out := make([]DepthLevel, n)
		for i := 0; i < n; i++ {
			qty := decimal.Zero
			for _, o := range levels[i].Orders {
				qty = qty.Add(o.LeavesQuantity)
			}
			out[i] = DepthLevel{Price: levels[i].Price, Quantity: qty}
		}
		return out
	}

	return DepthSnapshot{Bids: toDepth(b.Bids), Asks: toDepth(b.Asks)}
}

// DepthExcludingSession is Depth with sessionID's own resting quantity
// subtracted from every level (spec.md §4.4 "exclude own orders"). A level
// that nets to zero or below is dropped rather than shown as an empty row.
func (b *Book) DepthExcludingSession(maxLevels int, sessionID string) DepthSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	toDepth := func(levels []*PriceLevel) []DepthLevel {
		out := make([]DepthLevel, 0, len(levels))
		for _, lvl := range levels {
			if maxLevels > 0 && len(out) >= maxLevels {
				break
			}
			qty := decimal.Zero
			for _, o := range lvl.Orders {
				if o.SessionId == sessionID {
					continue
				}
				qty = qty.Add(o.LeavesQuantity)
			}
			if qty.Sign() > 0 {
				out = append(out, DepthLevel{Price: lvl.Price, Quantity: qty})
			}
		}
		return out
	}

	return DepthSnapshot{Bids: toDepth(b.Bids), Asks: toDepth(b.Asks)}
}

// AllOrders returns every resting order, for snapshot/restore.
func (b *Book) AllOrders() []*order.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*order.Order, 0, len(b.byID))
	for _, o := range b.byID {
		out = append(out, o)
	}
	return out
}

// RestoreOrder re-inserts a previously persisted resting order without
// reassigning its id or priority, used by RecoverState.
func (b *Book) RestoreOrder(o *order.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertResting(o)

	if o.OrderId > b.nextOrderID {
		atomic.StoreUint64(&b.nextOrderID, o.OrderId)
	}
	if o.Priority > b.nextPriority {
		atomic.StoreUint64(&b.nextPriority, o.Priority)
	}
}
