// Package adminapi is the admin HTTP/JSON transport shim (spec.md §6):
// POST /halt and POST /resume backed by phase.Controller.Halt/.Resume,
// plus read-only instrument/book/trade/candle/stats endpoints grounded
// on the teacher's internal/api package. Routing logic here is a
// transport concern only — every mutating decision is made by
// phase.Controller or internal/matchengine, never by this package.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/openmarket-sim/matchcore/internal/instrument"
	"github.com/openmarket-sim/matchcore/internal/matchengine"
	"github.com/openmarket-sim/matchcore/internal/persist"
	"github.com/openmarket-sim/matchcore/internal/phase"
	"github.com/openmarket-sim/matchcore/internal/repository"
)

// Server provides the admin HTTP/JSON endpoints. Grounded on the
// teacher's api.Server: a thin struct of read-only dependencies,
// registered onto a router by Register/NewRouter.
type Server struct {
	controller *phase.Controller
	repo       *repository.Repository
	lookup     *instrument.Lookup
	reader     persist.TradeReader
	startAt    time.Time
	rateLimit  int
}

// NewServer builds a Server. rateLimitRPS bounds requests/sec per client
// IP to /halt and /resume (an admin-abuse control the teacher's plain
// http.ServeMux never needed since it had no mutating endpoints).
func NewServer(controller *phase.Controller, repo *repository.Repository, lookup *instrument.Lookup, reader persist.TradeReader, rateLimitRPS int) *Server {
	return &Server{
		controller: controller,
		repo:       repo,
		lookup:     lookup,
		reader:     reader,
		startAt:    time.Now(),
		rateLimit:  rateLimitRPS,
	}
}

// NewRouter builds the chi router for this Server.
func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.rateLimit, time.Second))
		r.Post("/halt", s.handleHalt)
		r.Post("/resume", s.handleResume)
	})

	r.Get("/instruments", s.handleInstruments)
	r.Get("/instruments/{id}/book", s.handleBook)
	r.Get("/instruments/{id}/trades", s.handleTrades)
	r.Get("/instruments/{id}/candles", s.handleCandles)
	r.Get("/stats", s.handleStats)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type haltRequest struct {
	AllowCancels bool `json:"allowCancels"`
}

type haltResponse struct {
	Result string `json:"result"`
}

// handleHalt implements POST /halt, spec.md §6.
func (s *Server) handleHalt(w http.ResponseWriter, r *http.Request) {
	var req haltRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	result := s.controller.Halt(req.AllowCancels)
	writeJSON(w, http.StatusOK, haltResponse{Result: result.String()})
}

// handleResume implements POST /resume, spec.md §6.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	result := s.controller.Resume()
	writeJSON(w, http.StatusOK, haltResponse{Result: result.String()})
}

type instrumentSummary struct {
	InstrumentId uint64 `json:"instrumentId"`
	Symbol       string `json:"symbol"`
	SecurityType string `json:"securityType"`
}

// handleInstruments lists every instrument in the repository.
func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	var out []instrumentSummary
	s.repo.ForEach(func(e repository.Engine) {
		inst, ok := s.lookup.Get(e.InstrumentID())
		if !ok {
			return
		}
		out = append(out, instrumentSummary{
			InstrumentId: inst.InstrumentId,
			Symbol:       inst.Symbol,
			SecurityType: inst.SecurityType.String(),
		})
	})
	if out == nil {
		out = []instrumentSummary{}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseInstrumentID(r *http.Request) (uint64, bool) {
	return parseUint64(chi.URLParam(r, "id"))
}

func parseUint64(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// handleBook returns the current book depth for one instrument, dispatched
// synchronously through the engine's own mux so the snapshot reflects a
// consistent point in its command sequence.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInstrumentID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	engine, ok := s.repo.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "instrument not found")
		return
	}

	me, ok := engine.(*matchengine.Engine)
	if !ok {
		writeError(w, http.StatusInternalServerError, "engine does not expose a book")
		return
	}

	done := make(chan matchengine.DepthSnapshot, 1)
	engine.Execute(func() {
		done <- me.Book().Depth(0)
	})
	writeJSON(w, http.StatusOK, <-done)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseTimeQuery(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// handleTrades returns paginated trade-tape history for one instrument.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "trade tape disabled")
		return
	}

	id, ok := parseInstrumentID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trades, err := s.reader.QueryTrades(ctx, persist.TradeFilter{
		InstrumentId: id,
		Limit:        parseIntQuery(r, "limit", 100),
		Offset:       parseIntQuery(r, "offset", 0),
		From:         parseTimeQuery(r, "from"),
		To:           parseTimeQuery(r, "to"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// handleCandles returns OHLCV bars for one instrument.
func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "trade tape disabled")
		return
	}

	id, ok := parseInstrumentID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1m"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	candles, err := s.reader.QueryCandles(ctx, persist.CandleFilter{
		InstrumentId: id,
		Interval:     interval,
		Limit:        parseIntQuery(r, "limit", 100),
		From:         parseTimeQuery(r, "from"),
		To:           parseTimeQuery(r, "to"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, candles)
}

type statsResponse struct {
	Uptime      string `json:"uptime"`
	Instruments int    `json:"instruments"`
}

// handleStats returns process-level runtime statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Uptime:      time.Since(s.startAt).Truncate(time.Second).String(),
		Instruments: s.repo.Len(),
	})
}
