// Package transport implements the HTTP/WebSocket edge of the server:
// connection upgrade, the read/write-pump goroutine pair per connection,
// and the chi mux serving /ws, /health, /stats, and /metrics. Grounded
// on the teacher's ClientConnection/GameServer pair in
// cmd/gameserver/main.go for the pump shape and deadline handling, and on
// iamvalenciia-kick-game-stream/fight-club-go's internal/api/router.go
// for the chi + chi/cors route wiring.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bokeefe123/modaltron/internal/controller"
	"github.com/bokeefe123/modaltron/internal/metrics"
	"github.com/bokeefe123/modaltron/internal/room"
	"github.com/bokeefe123/modaltron/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingWait   = 30 * time.Second
	maxMessage = 1 << 16
)

// Server is the HTTP front door: it upgrades /ws connections, wires each
// one into the lobby controller, and exposes /health, /stats, and
// /metrics for operators.
type Server struct {
	repo   *room.Repository
	lobby  *controller.RoomsController
	log    *slog.Logger
	router *chi.Mux

	upgrader websocket.Upgrader
	nextID   uint64
}

// Config is the subset of process configuration the transport layer
// needs: which origins to allow over WebSocket and CORS.
type Config struct {
	CORSOrigins []string
	EnableCORS  bool
}

// NewServer builds the router. No goroutine is started and no listener
// is opened — call http.ListenAndServe(addr, srv.Router()) to actually
// serve, matching the teacher's NewGameServer/Start split.
func NewServer(repo *room.Repository, lobby *controller.RoomsController, log *slog.Logger, cfg Config) *Server {
	s := &Server{
		repo:  repo,
		lobby: lobby,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return cfg.EnableCORS },
		},
	}
	s.router = s.newRouter(cfg)
	return s
}

// Router returns the HTTP handler, for use directly with
// http.ListenAndServe or httptest.NewServer.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) newRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/ws", s.handleWS)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// statsPayload is the JSON body for /stats, generalizing the teacher's
// handleStats {rooms, players} shape: the number of rooms and the number
// of players seated across them.
type statsPayload struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rooms := s.repo.List()
	players := 0
	for _, rm := range rooms {
		players += len(rm.Players())
	}
	data, _ := json.Marshal(statsPayload{Rooms: len(rooms), Players: players})
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordConnectionRejected("upgrade_failed")
		s.log.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}

	id := atomic.AddUint64(&s.nextID, 1)
	conn := newWSConn(ws)
	sess := session.New(id, conn, session.GameFlushInterval)
	sess.Run()

	s.log.Info("session connected", "session_id", id, "remote", ws.RemoteAddr().String())
	s.lobby.Attach(sess)

	go readPump(sess, conn, s.log)
}

// wsConn adapts *websocket.Conn to session.Conn. gorilla's Conn forbids
// concurrent writers, but a Session's outbox flush, ping loop, and an
// inbound handler's immediate reply can all call WriteMessage from
// different goroutines — writes are serialized onto writeCh and drained
// by a single goroutine, the same division of labor as the teacher's
// ClientConnection.sendChan/writePump.
type wsConn struct {
	ws      *websocket.Conn
	writeCh chan []byte
	done    chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{ws: ws, writeCh: make(chan []byte, 256), done: make(chan struct{})}
	go c.writePump()
	return c
}

func (c *wsConn) WriteMessage(data []byte) error {
	select {
	case c.writeCh <- data:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	}
}

func (c *wsConn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return c.ws.Close()
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingWait)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.writeCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound frames until the connection closes, then
// unwinds the session so every controller holding it detaches before the
// next tick (spec.md §5).
func readPump(sess *session.Session, conn *wsConn, log *slog.Logger) {
	defer sess.Close()

	conn.ws.SetReadLimit(maxMessage)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read error", "session_id", sess.ID(), "err", err)
			}
			return
		}
		if err := sess.HandleFrame(data); err != nil {
			log.Warn("malformed frame", "session_id", sess.ID(), "err", err)
		}
	}
}
