// Market-data push transport. Grounded on the teacher's
// internal/session/handler.go + client.go (websocket.Upgrader, a buffered
// send channel drained by a dedicated writer goroutine, a read pump that
// exists only to detect disconnect and drive ping/pong) — the same shape,
// pointed at one instrument's matchengine.MarketDataFacade instead of the
// teacher's multi-ticker ITCH broadcast, and re-encoded through
// wire.EncodeJSON instead of itch.EncodeJSON/EncodeBinary. There is only
// ever one wire format here (JSON); the teacher's per-client binary/JSON
// format switch does not apply to a demo transport.
package main

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/openmarket-sim/matchcore/internal/matchengine"
	"github.com/openmarket-sim/matchcore/internal/repository"
	"github.com/openmarket-sim/matchcore/internal/session"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

const (
	mdWriteWait  = 10 * time.Second
	mdPongWait   = 60 * time.Second
	mdPingPeriod = 30 * time.Second
	mdSendBuffer = 64
)

var mdUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// mdSubscriber owns one WebSocket connection streaming one instrument's
// market data. Writes are serialized onto sendCh so the facade's Publish
// callback (invoked from the engine's own goroutine) never touches the
// connection directly.
type mdSubscriber struct {
	conn   *websocket.Conn
	sendCh chan []byte
	once   sync.Once
	done   chan struct{}
}

func (s *mdSubscriber) send(r wire.MarketDataIncrementalRefresh) {
	data, err := wire.EncodeJSON(r)
	if err != nil {
		log.Error().Err(err).Msg("marketdata: encode incremental refresh")
		return
	}
	select {
	case s.sendCh <- data:
	default:
		log.Warn().Msg("marketdata: subscriber send buffer full, dropping update")
	}
}

func (s *mdSubscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// handleMarketDataStream upgrades to a WebSocket, subscribes the
// connection to one instrument's MarketDataFacade, and streams incremental
// refreshes until the client disconnects. Usage:
//
//	GET /marketdata?instrument=1&depth=10
func handleMarketDataStream(repo *repository.Repository, registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instrumentID, err := strconv.ParseUint(r.URL.Query().Get("instrument"), 10, 64)
		if err != nil {
			http.Error(w, "missing or malformed instrument", http.StatusBadRequest)
			return
		}
		depth := 10
		if raw := r.URL.Query().Get("depth"); raw != "" {
			if d, err := strconv.Atoi(raw); err == nil && d > 0 {
				depth = d
			}
		}

		eng, ok := repo.Find(instrumentID)
		if !ok {
			http.Error(w, "unknown instrument", http.StatusNotFound)
			return
		}
		me, ok := eng.(*matchengine.Engine)
		if !ok {
			http.Error(w, "engine does not publish market data", http.StatusInternalServerError)
			return
		}

		conn, err := mdUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("marketdata: websocket upgrade failed")
			return
		}

		sub := &mdSubscriber{conn: conn, sendCh: make(chan []byte, mdSendBuffer), done: make(chan struct{})}
		sessionID := uuid.NewString()
		registry.Register(&session.Session{ID: uuid.MustParse(sessionID), CancelOnDisconnect: false})

		snapshot := me.MarketData().Subscribe(sessionID, "", depth, sub.send)
		if data, err := wire.EncodeJSON(snapshot); err == nil {
			sub.sendCh <- data
		}

		go mdWritePump(sub)
		go mdReadPump(sub, me, registry, sessionID)
	}
}

func mdWritePump(s *mdSubscriber) {
	ticker := time.NewTicker(mdPingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case data, ok := <-s.sendCh:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(mdWriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(mdWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// mdReadPump exists only to detect disconnect (market data is one-way);
// any inbound message is ignored. On exit it unsubscribes from the
// facade and terminates the session so session.Registry's bookkeeping
// stays accurate even for non-order-entry connections.
func mdReadPump(s *mdSubscriber, me *matchengine.Engine, registry *session.Registry, sessionID string) {
	defer func() {
		me.MarketData().Unsubscribe(sessionID)
		registry.Terminate(sessionID)
		s.close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(mdPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(mdPongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
