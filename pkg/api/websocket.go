package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/aodr3w/order-book-engine/pkg/broadcast"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled by the outer handler.
		return true
	},
}

// handleWebSocket upgrades GET /ws/{pair} and streams frames until the
// client goes away. The subscription seeds one BookSnapshot and then
// delivers trades and post-state snapshots in engine order; a slow client
// loses its oldest frames rather than stalling the engine.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	engine, err := s.app.Engine(mux.Vars(r)["pair"])
	if err != nil {
		s.respondCommandError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	sub := engine.Subscribe()
	s.log.Infow("ws_client_connected", "pair", engine.Pair().Code(), "remote", conn.RemoteAddr().String())

	go s.writePump(conn, sub)
	go s.readPump(conn, sub)
}

// writePump forwards frames to the socket and keeps the connection alive
// with pings.
func (s *Server) writePump(conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.Frames():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}

// readPump drains the socket so close frames and pongs are processed;
// unsubscribe is implicit on stream close.
func (s *Server) readPump(conn *websocket.Conn, sub *broadcast.Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warnw("ws_read_error", "err", err)
			}
			return
		}
	}
}
