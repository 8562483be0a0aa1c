package matchengine

import (
	"time"

	"github.com/openmarket-sim/matchcore/internal/order"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

func (e *Engine) emit(r wire.ExecutionReport) {
	if e.onExecutionReport != nil {
		e.onExecutionReport(r)
	}
}

func (e *Engine) reportReject(clientOrderID, sessionID string, reason wire.RejectReason) {
	e.emit(wire.ExecutionReport{
		ClientOrderId: clientOrderID,
		SessionId:     sessionID,
		InstrumentId:  e.inst.InstrumentId,
		Status:        wire.OrdStatusRejected,
		RejectReason:  reason,
		TransactTime:  time.Now(),
	})
}

func (e *Engine) reportNew(o *order.Order) {
	e.emit(wire.ExecutionReport{
		OrderId:        o.OrderId,
		ClientOrderId:  o.ClientOrderId,
		SessionId:      o.SessionId,
		InstrumentId:   e.inst.InstrumentId,
		Status:         wire.OrdStatusNew,
		Side:           o.Side,
		LeavesQuantity: o.LeavesQuantity,
		CumQuantity:    o.Quantity.Sub(o.LeavesQuantity),
		TransactTime:   time.Now(),
	})
}

func (e *Engine) reportTrade(tr Trade) {
	if e.onTrade != nil {
		e.onTrade(tr)
	}
	e.emit(wire.ExecutionReport{
		OrderId:      tr.AggressorOrderId,
		SessionId:    tr.AggressorSession,
		InstrumentId: tr.InstrumentId,
		Status:       wire.OrdStatusPartiallyFilled,
		Side:         tr.AggressorSide,
		LastPrice:    tr.Price,
		LastQuantity: tr.Quantity,
		TransactTime: tr.ExecutedAt,
	})
	e.emit(wire.ExecutionReport{
		OrderId:      tr.MakerOrderId,
		SessionId:    tr.MakerSession,
		InstrumentId: tr.InstrumentId,
		Status:       wire.OrdStatusPartiallyFilled,
		Side:         tr.AggressorSide.Opposite(),
		LastPrice:    tr.Price,
		LastQuantity: tr.Quantity,
		TransactTime: tr.ExecutedAt,
	})
}

func (e *Engine) reportFilled(o *order.Order) {
	e.emit(wire.ExecutionReport{
		OrderId:        o.OrderId,
		ClientOrderId:  o.ClientOrderId,
		SessionId:      o.SessionId,
		InstrumentId:   e.inst.InstrumentId,
		Status:         wire.OrdStatusFilled,
		Side:           o.Side,
		LeavesQuantity: o.LeavesQuantity,
		CumQuantity:    o.Quantity,
		TransactTime:   time.Now(),
	})
}

func (e *Engine) reportExpiredResidual(o *order.Order) {
	e.emit(wire.ExecutionReport{
		OrderId:        o.OrderId,
		ClientOrderId:  o.ClientOrderId,
		SessionId:      o.SessionId,
		InstrumentId:   e.inst.InstrumentId,
		Status:         wire.OrdStatusExpired,
		Side:           o.Side,
		LeavesQuantity: o.LeavesQuantity,
		CumQuantity:    o.Quantity.Sub(o.LeavesQuantity),
		TransactTime:   time.Now(),
	})
}

func (e *Engine) reportExpired(o *order.Order) {
	e.emit(wire.ExecutionReport{
		OrderId:        o.OrderId,
		ClientOrderId:  o.ClientOrderId,
		SessionId:      o.SessionId,
		InstrumentId:   e.inst.InstrumentId,
		Status:         wire.OrdStatusExpired,
		Side:           o.Side,
		LeavesQuantity: o.LeavesQuantity,
		TransactTime:   time.Now(),
	})
}

func (e *Engine) reportCanceled(o *order.Order) {
	e.emit(wire.ExecutionReport{
		OrderId:        o.OrderId,
		ClientOrderId:  o.ClientOrderId,
		SessionId:      o.SessionId,
		InstrumentId:   e.inst.InstrumentId,
		Status:         wire.OrdStatusCanceled,
		Side:           o.Side,
		LeavesQuantity: o.LeavesQuantity,
		TransactTime:   time.Now(),
	})
}

func (e *Engine) reportAmended(o *order.Order) {
	e.emit(wire.ExecutionReport{
		OrderId:        o.OrderId,
		ClientOrderId:  o.ClientOrderId,
		SessionId:      o.SessionId,
		InstrumentId:   e.inst.InstrumentId,
		Status:         wire.OrdStatusReplaced,
		Side:           o.Side,
		LeavesQuantity: o.LeavesQuantity,
		TransactTime:   time.Now(),
	})
}

func (e *Engine) emitCancelReject(r wire.OrderCancelReject) {
	if e.onOrderCancelReject != nil {
		e.onOrderCancelReject(r)
	}
}

func (e *Engine) reportCancelReject(origClientOrderID, sessionID string, reason wire.RejectReason) {
	e.emitCancelReject(wire.OrderCancelReject{
		SessionId:         sessionID,
		OrigClientOrderId: origClientOrderID,
		InstrumentId:      e.inst.InstrumentId,
		RejectReason:      reason,
		TransactTime:      time.Now(),
	})
}

func (e *Engine) rejectAmend(amd order.Amendment, sessionID string, reason wire.RejectReason) {
	e.emitCancelReject(wire.OrderCancelReject{
		SessionId:         sessionID,
		OrigClientOrderId: amd.OrigClientOrderId,
		InstrumentId:      e.inst.InstrumentId,
		RejectReason:      reason,
		TransactTime:      time.Now(),
	})
}
