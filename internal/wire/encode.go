package wire

import (
	"encoding/json"
	"fmt"
)

// EncodeJSON renders an outbound message as a tagged JSON object, grounded
// on the teacher's itch.EncodeJSON: a "type" discriminator plus a flat map
// of fields, rather than Go's default struct-name-free encoding. This is
// the format the demo transports in cmd/matchengine render notifications
// through; it is not a FIX wire codec (out of scope,
// spec.md §1) and carries no framing or session-level envelope.
func EncodeJSON(v any) ([]byte, error) {
	obj := msgToMap(v)
	if obj == nil {
		return nil, fmt.Errorf("wire: unsupported message type %T", v)
	}
	return json.Marshal(obj)
}

func msgToMap(v any) map[string]any {
	switch m := v.(type) {
	case ExecutionReport:
		return map[string]any{
			"type":           "execution_report",
			"orderId":        m.OrderId,
			"clientOrderId":  m.ClientOrderId,
			"sessionId":      m.SessionId,
			"instrumentId":   m.InstrumentId,
			"status":         m.Status.String(),
			"side":           m.Side.String(),
			"lastPrice":      m.LastPrice.String(),
			"lastQuantity":   m.LastQuantity.String(),
			"leavesQuantity": m.LeavesQuantity.String(),
			"cumQuantity":    m.CumQuantity.String(),
			"rejectReason":   m.RejectReason.String(),
			"transactTime":   m.TransactTime,
		}

	case OrderCancelReject:
		return map[string]any{
			"type":              "order_cancel_reject",
			"sessionId":         m.SessionId,
			"origClientOrderId": m.OrigClientOrderId,
			"instrumentId":      m.InstrumentId,
			"rejectReason":      m.RejectReason.String(),
			"transactTime":      m.TransactTime,
		}

	case BusinessMessageReject:
		return map[string]any{
			"type":         "business_message_reject",
			"sessionId":    m.SessionId,
			"refMsgType":   m.RefMsgType,
			"rejectReason": m.RejectReason.String(),
			"text":         m.Text,
		}

	case MarketDataSnapshotFullRefresh:
		return map[string]any{
			"type":         "market_data_snapshot_full_refresh",
			"instrumentId": m.InstrumentId,
			"bids":         levelsToMaps(m.Bids),
			"asks":         levelsToMaps(m.Asks),
			"transactTime": m.TransactTime,
		}

	case MarketDataIncrementalRefresh:
		return map[string]any{
			"type":         "market_data_incremental_refresh",
			"instrumentId": m.InstrumentId,
			"bids":         levelsToMaps(m.Bids),
			"asks":         levelsToMaps(m.Asks),
			"transactTime": m.TransactTime,
		}

	case MarketDataRequestReject:
		return map[string]any{
			"type":         "market_data_request_reject",
			"sessionId":    m.SessionId,
			"mdReqId":      m.MDReqId,
			"rejectReason": m.RejectReason.String(),
		}

	case SecurityStatus:
		return map[string]any{
			"type":         "security_status",
			"sessionId":    m.SessionId,
			"instrumentId": m.InstrumentId,
			"status":       m.Status.String(),
			"transactTime": m.TransactTime,
		}

	default:
		return nil
	}
}

func levelsToMaps(levels []PriceLevelView) []map[string]any {
	out := make([]map[string]any, len(levels))
	for i, l := range levels {
		out[i] = map[string]any{
			"price":    l.Price.String(),
			"quantity": l.Quantity.String(),
		}
	}
	return out
}

func (s ExecOrdStatus) String() string {
	switch s {
	case OrdStatusNew:
		return "New"
	case OrdStatusPartiallyFilled:
		return "PartiallyFilled"
	case OrdStatusFilled:
		return "Filled"
	case OrdStatusCanceled:
		return "Canceled"
	case OrdStatusRejected:
		return "Rejected"
	case OrdStatusExpired:
		return "Expired"
	case OrdStatusReplaced:
		return "Replaced"
	default:
		return "Unknown"
	}
}

func (s SecurityTradingStatus) String() string {
	switch s {
	case TradingOpen:
		return "Open"
	case TradingClosed:
		return "Closed"
	case TradingHalted:
		return "Halted"
	default:
		return "Unknown"
	}
}
