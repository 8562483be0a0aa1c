package matchengine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/openmarket-sim/matchcore/internal/fabric"
	"github.com/openmarket-sim/matchcore/internal/instrument"
	"github.com/openmarket-sim/matchcore/internal/order"
	"github.com/openmarket-sim/matchcore/internal/phase"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

// Config carries the venue-wide knobs an Engine needs that don't belong to
// any single instrument.
type Config struct {
	// AllowAmendDownOnHalt, when true, permits a pure quantity-reduction
	// amend while the venue is (Open, Halted, AllowCancels=true).
	// SPEC_FULL.md §4.4 resolution of spec.md's first open question.
	AllowAmendDownOnHalt bool

	// SupportDay/SupportIOC/SupportFOK gate which TimeInForce values this
	// venue accepts on order entry (spec.md §4.4, §6). GTC and GTD are
	// never gateable.
	SupportDay bool
	SupportIOC bool
	SupportFOK bool

	// DepthOrdersExclusion, when true, subtracts each subscriber's own
	// resting quantity from the depth view it is shown (spec.md §4.4,
	// venue config "exclude own orders").
	DepthOrdersExclusion bool
}

// DefaultConfig returns the spec's chosen default.
func DefaultConfig() Config {
	return Config{AllowAmendDownOnHalt: true, SupportDay: true, SupportIOC: true, SupportFOK: true}
}

// tifAllowed reports whether tif is permitted by cfg. Day/IOC/FOK are the
// only gateable terms; GTC and GTD are always accepted.
func (cfg Config) tifAllowed(tif order.TimeInForce) bool {
	switch tif {
	case order.Day:
		return cfg.SupportDay
	case order.IOC:
		return cfg.SupportIOC
	case order.FOK:
		return cfg.SupportFOK
	default:
		return true
	}
}

// Engine is the single trading engine for one instrument (spec.md §4.4).
// Every command runs to completion on the engine's own ChainedMux, so
// commands against this instrument are strictly ordered relative to each
// other while commands against other instruments proceed independently on
// the shared Pool.
type Engine struct {
	inst    instrument.Instrument
	book    *Book
	matcher *Matcher
	mux     *fabric.ChainedMux
	cfg     Config

	mu           sync.Mutex
	currentPhase phase.State
	nextTradeID  uint64

	onExecutionReport   func(wire.ExecutionReport)
	onOrderCancelReject func(wire.OrderCancelReject)
	onTrade             func(Trade)
	onMarketData        *MarketDataFacade
	onSecurityStatus    func(wire.SecurityStatus)
	onMarketDataReject  func(wire.MarketDataRequestReject)
}

// NewEngine returns an Engine for inst, submitting work through svc
// (normally a shared *fabric.Pool).
func NewEngine(inst instrument.Instrument, svc fabric.Service, cfg Config) *Engine {
	e := &Engine{
		inst:         inst,
		book:         NewBook(),
		matcher:      NewMatcher(time.Now),
		mux:          fabric.NewChainedMux(svc),
		cfg:          cfg,
		currentPhase: phase.State{Kind: phase.Closed},
	}
	e.onMarketData = NewMarketDataFacade(e.book, cfg.DepthOrdersExclusion)
	return e
}

// InstrumentID implements repository.Engine.
func (e *Engine) InstrumentID() uint64 { return e.inst.InstrumentId }

// Execute implements fabric.Service / repository.Engine by running task on
// this engine's ChainedMux, preserving per-instrument command ordering.
func (e *Engine) Execute(task func()) { e.mux.Post(task) }

// OnExecutionReport registers the callback used to deliver outbound
// ExecutionReports. Must be set before the engine processes any command.
func (e *Engine) OnExecutionReport(fn func(wire.ExecutionReport)) { e.onExecutionReport = fn }

// OnOrderCancelReject registers the callback used to deliver outbound
// OrderCancelRejects.
func (e *Engine) OnOrderCancelReject(fn func(wire.OrderCancelReject)) { e.onOrderCancelReject = fn }

// OnTrade registers a callback invoked once per executed Trade, independent
// of the ExecutionReport pair reportTrade also emits. Used by the
// supplementary trade tape (internal/persist.MongoStore.SaveTrade), which
// wants the structured Trade value rather than parsing it back out of a
// wire.ExecutionReport.
func (e *Engine) OnTrade(fn func(Trade)) { e.onTrade = fn }

// OnSecurityStatus registers the callback used to deliver outbound
// SecurityStatus messages, emitted on every phase transition and in reply
// to a ProcessSecurityStatusRequest.
func (e *Engine) OnSecurityStatus(fn func(wire.SecurityStatus)) { e.onSecurityStatus = fn }

// OnMarketDataReject registers the callback used to deliver a
// MarketDataRequestReject when ProcessMarketDataRequest cannot honor a
// request.
func (e *Engine) OnMarketDataReject(fn func(wire.MarketDataRequestReject)) { e.onMarketDataReject = fn }

// MarketData exposes the engine's market-data facade for subscription
// management.
func (e *Engine) MarketData() *MarketDataFacade { return e.onMarketData }

// Book exposes the engine's order book, primarily for adminapi read
// endpoints and tests.
func (e *Engine) Book() *Book { return e.book }

func (e *Engine) phaseSnapshot() phase.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPhase
}

func (e *Engine) allocTradeID() uint64 {
	return atomic.AddUint64(&e.nextTradeID, 1)
}

// OnTick implements phase.TickReceiver: sweeps expired GTD orders once per
// second.
func (e *Engine) OnTick(ev phase.TickEvent) {
	expired := e.book.RemoveExpiredGTD(nil, func(o *order.Order) bool {
		return o.IsExpiredGTD(ev.SysTickTime)
	})
	for _, o := range expired {
		e.reportExpired(o)
	}
}

// OnPhaseTransition implements phase.TransitionReceiver.
func (e *Engine) OnPhaseTransition(t phase.Transition, cancelResting bool) {
	e.mu.Lock()
	e.currentPhase = phase.State{Kind: t.Kind, Halted: t.Halted}
	e.mu.Unlock()

	if e.onSecurityStatus != nil {
		e.onSecurityStatus(e.securityStatusFor(""))
	}

	if cancelResting {
		for _, o := range e.book.CancelAll() {
			e.reportCanceled(o)
		}
	}
}

// securityStatusFor builds the SecurityStatus reflecting the engine's
// current phase, addressed to sessionID (empty for a broadcast on phase
// transition rather than a reply to one session's request).
func (e *Engine) securityStatusFor(sessionID string) wire.SecurityStatus {
	st := e.phaseSnapshot()
	status := wire.TradingOpen
	switch {
	case st.Kind == phase.Closed:
		status = wire.TradingClosed
	case st.Halted:
		status = wire.TradingHalted
	}
	return wire.SecurityStatus{
		SessionId:    sessionID,
		InstrumentId: e.inst.InstrumentId,
		Status:       status,
		TransactTime: time.Now(),
	}
}

// ProcessSecurityStatusRequest replies with the instrument's current
// phase/book trading status (spec.md §4.4). Must be called on the engine's
// mux.
func (e *Engine) ProcessSecurityStatusRequest(req wire.SecurityStatusRequest) {
	if e.onSecurityStatus != nil {
		e.onSecurityStatus(e.securityStatusFor(req.SessionId))
	}
}

// ProcessMarketDataRequest subscribes sessionID to ongoing incremental
// updates (req.SubscriptionOn) or replies once with a snapshot, delivered
// through reply; a non-positive MarketDepth produces a
// MarketDataRequestReject instead. Must be called on the engine's mux.
func (e *Engine) ProcessMarketDataRequest(req wire.MarketDataRequest, reply func(wire.MarketDataSnapshotFullRefresh), send func(wire.MarketDataIncrementalRefresh)) {
	if req.MarketDepth <= 0 {
		e.reportMarketDataReject(req, wire.BadQuantity)
		return
	}

	var snap wire.MarketDataSnapshotFullRefresh
	if req.SubscriptionOn {
		snap = e.onMarketData.Subscribe(req.SessionId, req.MDReqId, req.MarketDepth, send)
	} else {
		snap = e.onMarketData.Snapshot(req.SessionId, req.MarketDepth)
	}
	snap.InstrumentId = e.inst.InstrumentId
	if reply != nil {
		reply(snap)
	}
}

func (e *Engine) reportMarketDataReject(req wire.MarketDataRequest, reason wire.RejectReason) {
	if e.onMarketDataReject != nil {
		e.onMarketDataReject(wire.MarketDataRequestReject{
			SessionId:    req.SessionId,
			MDReqId:      req.MDReqId,
			RejectReason: reason,
		})
	}
}

// canAcceptNewOrder reports whether the venue's current phase accepts new
// order entry.
func (e *Engine) canAcceptNewOrder() bool {
	st := e.phaseSnapshot()
	return st.Kind == phase.Open && !st.Halted
}

// canCancel reports whether the venue's current phase accepts a cancel
// request.
func (e *Engine) canCancel() bool {
	st := e.phaseSnapshot()
	if st.Kind != phase.Open {
		return false
	}
	if !st.Halted {
		return true
	}
	return st.AllowCancels
}

// canAmend reports whether amd is permitted against the current phase,
// applying the configurable amend-down-only exception while halted.
func (e *Engine) canAmend(existing *order.Order, amd order.Amendment) bool {
	st := e.phaseSnapshot()
	if st.Kind != phase.Open {
		return false
	}
	if !st.Halted {
		return true
	}
	if !st.AllowCancels || !e.cfg.AllowAmendDownOnHalt {
		return false
	}
	return amd.IsQuantityReductionOnly(*existing)
}

// PlaceOrder processes a NewOrderSingle. Must be called on the engine's
// mux (i.e. from within a task submitted via Execute).
func (e *Engine) PlaceOrder(req wire.NewOrderSingle, now time.Time) {
	if !e.canAcceptNewOrder() {
		e.reportReject(req.ClientOrderId, req.SessionId, wire.PhaseRejectsOrder)
		return
	}
	if !e.cfg.tifAllowed(req.TimeInForce) {
		e.reportReject(req.ClientOrderId, req.SessionId, wire.UnsupportedTIF)
		return
	}

	o := &order.Order{
		OrderId:        e.book.NextOrderID(),
		ClientOrderId:  req.ClientOrderId,
		InstrumentId:   e.inst.InstrumentId,
		Side:           req.Side,
		Type:           req.Type,
		Price:          req.Price,
		Quantity:       req.Quantity,
		LeavesQuantity: req.Quantity,
		TimeInForce:    req.TimeInForce,
		ExpireTime:     req.ExpireTime,
		SessionId:      req.SessionId,
		SubmittedAt:    now,
	}

	if err := o.Validate(e.inst); err != nil {
		e.reportReject(req.ClientOrderId, req.SessionId, mapValidationReject(err))
		return
	}
	if _, exists := e.book.GetByClientOrderId(req.SessionId, req.ClientOrderId); exists {
		e.reportReject(req.ClientOrderId, req.SessionId, wire.DuplicateClientOrderId)
		return
	}

	res := e.matcher.Match(e.book, o, e.allocTradeID)
	if res.Rejected != wire.RejectNone {
		e.reportReject(req.ClientOrderId, req.SessionId, res.Rejected)
		return
	}

	for _, tr := range res.Trades {
		e.reportTrade(tr)
	}
	e.onMarketData.Publish(e.inst.InstrumentId)

	if o.LeavesQuantity.Sign() == 0 {
		e.reportFilled(o)
	} else if res.Resting {
		e.reportNew(o)
	} else {
		e.reportExpiredResidual(o) // IOC/FOK residual, or market residual
	}
}

// mapValidationReject maps an order.Validate failure onto the wire reject
// vocabulary (spec.md §7): BadPrice/BadQuantity/UnsupportedTIF/MissingField.
func mapValidationReject(err error) wire.RejectReason {
	verr, ok := err.(*order.ValidationError)
	if !ok {
		return wire.BadPrice
	}
	switch verr.Reason {
	case order.ValidationBadQuantity:
		return wire.BadQuantity
	case order.ValidationUnsupportedTIF:
		return wire.UnsupportedTIF
	case order.ValidationMissingField:
		return wire.MissingField
	default:
		return wire.BadPrice
	}
}

// AmendOrder processes an OrderCancelReplaceRequest (spec.md §4.4). A pure
// quantity reduction (new_qty in [cum, Quantity)) reduces in place,
// preserving time priority and emitting OrderReduced (a Replaced execution
// report); new_qty == cum is reported as a completion instead. Any other
// change — a price change, a quantity increase, or any change while the
// order isn't a pure reduction candidate — loses time priority: the
// resting order is canceled and the amendment is re-entered as a new
// placement. Must be called on the engine's mux.
func (e *Engine) AmendOrder(amd order.Amendment, sessionID string, now time.Time) {
	existing, ok := e.book.GetByClientOrderId(sessionID, amd.OrigClientOrderId)
	if !ok {
		e.rejectAmend(amd, sessionID, wire.UnknownOrder)
		return
	}
	if !e.canAmend(existing, amd) {
		e.rejectAmend(amd, sessionID, wire.PhaseRejectsAmend)
		return
	}
	if amd.NewQuantity.Sign() <= 0 {
		e.rejectAmend(amd, sessionID, wire.BadQuantity)
		return
	}

	if amd.IsQuantityReductionOnly(*existing) {
		cum := order.CumQuantity(*existing)
		if newClientID := amd.NewClientOrderId; newClientID != "" && newClientID != existing.ClientOrderId {
			e.book.RenameClientOrderId(existing, newClientID)
		}
		if amd.NewQuantity.Equal(cum) {
			e.book.CancelOrder(existing.OrderId)
			e.onMarketData.Publish(e.inst.InstrumentId)
			e.reportFilled(existing)
			return
		}
		e.book.ReduceQuantity(existing.OrderId, amd.NewQuantity)
		e.onMarketData.Publish(e.inst.InstrumentId)
		e.reportAmended(existing)
		return
	}

	replacementPrice := existing.Price
	if !amd.NewPrice.IsZero() {
		replacementPrice = amd.NewPrice
	}
	replacementClientID := amd.NewClientOrderId
	if replacementClientID == "" {
		replacementClientID = amd.OrigClientOrderId
	}

	e.book.CancelOrder(existing.OrderId)
	e.reportCanceled(existing)

	e.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: replacementClientID,
		SessionId:     sessionID,
		InstrumentId:  e.inst.InstrumentId,
		Side:          existing.Side,
		Type:          existing.Type,
		Price:         replacementPrice,
		Quantity:      amd.NewQuantity,
		TimeInForce:   existing.TimeInForce,
		ExpireTime:    existing.ExpireTime,
	}, now)
}

// CancelOrder processes an OrderCancelRequest.
func (e *Engine) CancelOrder(origClientOrderID, sessionID string) {
	existing, ok := e.book.GetByClientOrderId(sessionID, origClientOrderID)
	if !ok {
		e.reportCancelReject(origClientOrderID, sessionID, wire.UnknownOrder)
		return
	}
	if !e.canCancel() {
		e.reportCancelReject(origClientOrderID, sessionID, wire.PhaseRejectsCancel)
		return
	}
	e.book.CancelOrder(existing.OrderId)
	e.onMarketData.Publish(e.inst.InstrumentId)
	e.reportCanceled(existing)
}

// NotifyClientDisconnected implements cancel-on-disconnect (spec.md §4.6):
// every resting order owned by sessionID is canceled.
func (e *Engine) NotifyClientDisconnected(sessionID string) {
	canceled := e.book.CancelAllBySession(sessionID)
	if len(canceled) > 0 {
		e.onMarketData.Publish(e.inst.InstrumentId)
	}
	for _, o := range canceled {
		e.reportCanceled(o)
	}
}

// CaptureInstrumentState snapshots the engine's full state for persistence.
func (e *Engine) CaptureInstrumentState() InstrumentState {
	return InstrumentState{
		Instrument:     e.inst,
		RestingOrders:  e.book.AllOrders(),
		NextTradeID:    atomic.LoadUint64(&e.nextTradeID),
	}
}

// RestoreInstrumentState re-seeds the engine's book from a persisted
// InstrumentState (RecoverState, spec.md §4.7).
func (e *Engine) RestoreInstrumentState(st InstrumentState) {
	for _, o := range st.RestingOrders {
		e.book.RestoreOrder(o)
	}
	atomic.StoreUint64(&e.nextTradeID, st.NextTradeID)
}

// InstrumentState is the persisted-state unit (spec.md §4.7, §6): one JSON
// document per instrument.
type InstrumentState struct {
	Instrument    instrument.Instrument
	RestingOrders []*order.Order
	NextTradeID   uint64
}
