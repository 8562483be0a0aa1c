// The demo order-entry transport. Grounded on the teacher's
// cmd/feedsim/main.go WebSocket wiring (session.Handler mounted directly
// on the process's http.ServeMux), generalized from "broadcast simulated
// ticks" to "accept one inbound order-entry request". It is intentionally
// thin per SPEC_FULL.md §1/§6: decode into wire.NewOrderSingle, dispatch
// through the target engine's own mux, and let the engine's own
// OnExecutionReport callback (registered in main.go) re-encode and log the
// reply. It is not a FIX codec and never will be — a real FIX/HTTP gateway
// is out of scope and only reachable through this stand-in.
package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openmarket-sim/matchcore/internal/matchengine"
	"github.com/openmarket-sim/matchcore/internal/repository"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

// handleNewOrder decodes a wire.NewOrderSingle from the request body and
// dispatches it onto the target instrument's engine. The HTTP response
// only acknowledges receipt (202) — the actual outcome (fill, reject,
// resting) arrives asynchronously through the engine's execution-report
// callback, exactly as a real order-entry gateway would deliver it over a
// separate drop-copy channel rather than in the acknowledgement itself.
func handleNewOrder(repo *repository.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.NewOrderSingle
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed order", http.StatusBadRequest)
			return
		}

		eng, ok := repo.Find(req.InstrumentId)
		if !ok {
			http.Error(w, "unknown instrument", http.StatusNotFound)
			return
		}
		me, ok := eng.(*matchengine.Engine)
		if !ok {
			http.Error(w, "engine does not accept orders", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		me.Execute(func() { me.PlaceOrder(req, now) })

		w.WriteHeader(http.StatusAccepted)
	}
}

// logExecutionReport is installed as every engine's OnExecutionReport
// callback: it renders the report through wire.EncodeJSON and writes it as
// a structured log line, standing in for the outbound leg of the transport
// the real FIX gateway would own.
func logExecutionReport(r wire.ExecutionReport) {
	b, err := wire.EncodeJSON(r)
	if err != nil {
		log.Error().Err(err).Msg("encode execution report")
		return
	}
	log.Info().RawJSON("report", b).Msg("execution report")
}

func logCancelReject(r wire.OrderCancelReject) {
	b, err := wire.EncodeJSON(r)
	if err != nil {
		log.Error().Err(err).Msg("encode cancel reject")
		return
	}
	log.Info().RawJSON("report", b).Msg("cancel reject")
}

func logSecurityStatus(s wire.SecurityStatus) {
	b, err := wire.EncodeJSON(s)
	if err != nil {
		log.Error().Err(err).Msg("encode security status")
		return
	}
	log.Info().RawJSON("status", b).Msg("security status")
}

func logMarketDataReject(r wire.MarketDataRequestReject) {
	b, err := wire.EncodeJSON(r)
	if err != nil {
		log.Error().Err(err).Msg("encode market data reject")
		return
	}
	log.Info().RawJSON("reject", b).Msg("market data request reject")
}
