package wire

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/order"
)

// --- Inbound ---------------------------------------------------------

// NewOrderSingle is the Go-native equivalent of FIX MsgType=D.
type NewOrderSingle struct {
	ClientOrderId string
	SessionId     string
	InstrumentId  uint64
	Side          order.Side
	Type          order.OrderType
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	TimeInForce   order.TimeInForce
	ExpireTime    time.Time
}

// OrderCancelReplaceRequest is the Go-native equivalent of FIX MsgType=G.
type OrderCancelReplaceRequest struct {
	SessionId         string
	InstrumentId      uint64
	OrigClientOrderId string
	NewClientOrderId  string
	NewPrice          decimal.Decimal
	NewQuantity       decimal.Decimal
}

// OrderCancelRequest is the Go-native equivalent of FIX MsgType=F.
type OrderCancelRequest struct {
	SessionId         string
	InstrumentId      uint64
	OrigClientOrderId string
}

// MarketDataRequest is the Go-native equivalent of FIX MsgType=V.
type MarketDataRequest struct {
	SessionId      string
	MDReqId        string
	InstrumentId   uint64
	SubscriptionOn bool // true = subscribe to incremental updates, false = snapshot-only (reply once)
	MarketDepth    int
}

// SecurityStatusRequest is the Go-native equivalent of FIX MsgType=e.
type SecurityStatusRequest struct {
	SessionId    string
	InstrumentId uint64
}

// --- Outbound ----------------------------------------------------------

// ExecOrdStatus mirrors FIX tag 39 (OrdStatus).
type ExecOrdStatus int

const (
	OrdStatusNew ExecOrdStatus = iota
	OrdStatusPartiallyFilled
	OrdStatusFilled
	OrdStatusCanceled
	OrdStatusRejected
	OrdStatusExpired
	OrdStatusReplaced
)

// ExecutionReport is the Go-native equivalent of FIX MsgType=8.
type ExecutionReport struct {
	OrderId        uint64
	ClientOrderId  string
	SessionId      string
	InstrumentId   uint64
	Status         ExecOrdStatus
	Side           order.Side
	LastPrice      decimal.Decimal
	LastQuantity   decimal.Decimal
	LeavesQuantity decimal.Decimal
	CumQuantity    decimal.Decimal
	RejectReason   RejectReason
	TransactTime   time.Time
}

// OrderCancelReject is the Go-native equivalent of FIX MsgType=9.
type OrderCancelReject struct {
	SessionId         string
	OrigClientOrderId string
	InstrumentId      uint64
	RejectReason      RejectReason
	TransactTime      time.Time
}

// BusinessMessageReject is the Go-native equivalent of FIX MsgType=j, used
// when a request cannot even be matched to an instrument or session.
type BusinessMessageReject struct {
	SessionId    string
	RefMsgType   string
	RejectReason RejectReason
	Text         string
}

// MarketDataSnapshotFullRefresh is the Go-native equivalent of FIX
// MsgType=W.
type MarketDataSnapshotFullRefresh struct {
	InstrumentId uint64
	Bids         []PriceLevelView
	Asks         []PriceLevelView
	TransactTime time.Time
}

// MarketDataIncrementalRefresh is the Go-native equivalent of FIX
// MsgType=X.
type MarketDataIncrementalRefresh struct {
	InstrumentId uint64
	Bids         []PriceLevelView
	Asks         []PriceLevelView
	TransactTime time.Time
}

// PriceLevelView is one row of a market-data update.
type PriceLevelView struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// MarketDataRequestReject is the Go-native equivalent of FIX MsgType=Y.
type MarketDataRequestReject struct {
	SessionId    string
	MDReqId      string
	RejectReason RejectReason
}

// SecurityTradingStatus mirrors FIX tag 326 (SecurityTradingStatus).
type SecurityTradingStatus int

const (
	TradingOpen SecurityTradingStatus = iota
	TradingClosed
	TradingHalted
)

// SecurityStatus is the Go-native equivalent of FIX MsgType=f.
type SecurityStatus struct {
	SessionId    string
	InstrumentId uint64
	Status       SecurityTradingStatus
	TransactTime time.Time
}
