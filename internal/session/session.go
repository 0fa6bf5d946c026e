// Package session implements the per-connection client described in
// spec.md §4.10: an outbound event queue with interval flush, request/
// reply call-id correlation, and application-level latency ping. It is
// grounded on the teacher's ClientConnection read/write-pump pair
// (cmd/gameserver/main.go in the source repo) for the goroutine shape,
// and on original_source/python_server/server/socket_client.py for the
// exact message-array dispatch and ping/pong semantics.
package session

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/bokeefe123/modaltron/internal/protocol"
	"github.com/bokeefe123/modaltron/internal/pubsub"
	"github.com/bokeefe123/modaltron/internal/room"
)

// GameFlushInterval is the outbox flush cadence for a session attached to
// at least one game (spec.md §4.10: "interval = 1ms for game clients").
const GameFlushInterval = time.Millisecond

// LobbyFlushInterval is the flush cadence for a lobby-only client: 0
// means "send immediately", i.e. every AddEvent behaves like force=true.
const LobbyFlushInterval = 0

const pingInterval = time.Second

// Conn is the minimal duplex transport a Session writes frames to. The
// concrete implementation (gorilla/websocket) lives in internal/transport
// — session never imports gorilla directly, so it can be driven by a fake
// in tests.
type Conn interface {
	WriteMessage(data []byte) error
	Close() error
}

// ReplyHandler is invoked with an inbound reply or ack payload.
type ReplyHandler func(json.RawMessage)

// Handler processes one inbound named event. reply is non-nil only when
// the client attached a callId expecting a `[callId, result]` response.
type Handler func(payload json.RawMessage, reply func(result interface{}))

// SessionEvent is the discriminated union a Session publishes.
type SessionEvent interface{ sessionEvent() }

// EvClose is emitted exactly once, synchronously, when the session
// disconnects (spec.md §5: "emit close synchronously so controllers
// detach... before any further tick observes the stale session").
type EvClose struct{}

func (EvClose) sessionEvent() {}

// Session is one connected client (spec.md §4.10). It owns its outbox
// exclusively; every other component reaches it only through AddEvent,
// On, and Events.
type Session struct {
	id   uint64
	conn Conn

	mu            sync.Mutex
	active        bool
	connected     bool
	flushInterval time.Duration
	outbox        []protocol.OutMessage
	handlers      map[string]map[int]Handler
	nextHandlerID int
	pending       map[int64]ReplyHandler
	nextCallID    int64

	notify chan struct{}
	done   chan struct{}

	attachedGames int32
	latencyMs     int64

	players []*room.Player

	Events *pubsub.Topic[SessionEvent]
}

// New constructs a session bound to id and conn, with the given outbox
// flush cadence (GameFlushInterval or LobbyFlushInterval).
func New(id uint64, conn Conn, flushInterval time.Duration) *Session {
	s := &Session{
		id:            id,
		conn:          conn,
		active:        true,
		connected:     true,
		flushInterval: flushInterval,
		handlers:      make(map[string]map[int]Handler),
		pending:       make(map[int64]ReplyHandler),
		notify:        make(chan struct{}, 1),
		done:          make(chan struct{}),
		Events:        pubsub.NewTopic[SessionEvent](),
	}
	s.registerDefaultHandlers()
	return s
}

// ID implements room.Client.
func (s *Session) ID() uint64 { return s.id }

// Active implements room.Client: whether the client last reported itself
// foreground-active (spec.md §6 `activity` event), independent of the
// transport connection state.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Connected reports whether the transport is still open.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Players returns the room players currently owned by this session.
func (s *Session) Players() []*room.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*room.Player(nil), s.players...)
}

// AddPlayer records a player as owned by this session.
func (s *Session) AddPlayer(p *room.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = append(s.players, p)
}

// RemovePlayer drops p from this session's owned players.
func (s *Session) RemovePlayer(p *room.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.players {
		if existing == p {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return
		}
	}
}

// ClearPlayers drops every player this session owns, used by the
// `players:clear` event.
func (s *Session) ClearPlayers() []*room.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := s.players
	s.players = nil
	return cleared
}

// IsPlaying reports whether the session currently owns any player.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players) > 0
}

// On registers handler for inbound events named name, returning an
// Unsubscribe handle so a controller can detach its handlers when a
// session leaves its room without disturbing other listeners (spec §9
// Open Question 1: explicit handles, no by-name listener removal).
func (s *Session) On(name string, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandlerID
	s.nextHandlerID++
	if s.handlers[name] == nil {
		s.handlers[name] = make(map[int]Handler)
	}
	s.handlers[name][id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[name], id)
	}
}

func (s *Session) registerDefaultHandlers() {
	s.On("whoami", func(_ json.RawMessage, reply func(interface{})) {
		if reply != nil {
			reply(s.id)
		}
	})
	s.On("activity", func(payload json.RawMessage, _ func(interface{})) {
		var active bool
		if err := json.Unmarshal(payload, &active); err == nil {
			s.mu.Lock()
			s.active = active
			s.mu.Unlock()
		}
	})
	s.On("pong", func(payload json.RawMessage, _ func(interface{})) {
		var sentAtMs int64
		if err := json.Unmarshal(payload, &sentAtMs); err != nil {
			return
		}
		now := nowMillis()
		latency := now - sentAtMs
		atomic.StoreInt64(&s.latencyMs, latency)
		s.AddEvent("latency", roundToInt(latency), nil, true)
	})
}

// HandleFrame decodes one inbound text frame and dispatches every message
// it carries: a numeric head resolves a pending callback, a named event
// with a callId builds a reply closure, a plain named event runs with a
// nil reply (spec.md §4.10, §6).
func (s *Session) HandleFrame(data []byte) error {
	msgs, err := protocol.DecodeFrame(data)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		s.dispatch(m)
	}
	return nil
}

func (s *Session) dispatch(m protocol.Message) {
	if m.IsReply {
		s.mu.Lock()
		handler, ok := s.pending[m.CallID]
		if ok {
			delete(s.pending, m.CallID)
		}
		s.mu.Unlock()
		if ok {
			handler(m.Payload)
		}
		return
	}

	s.mu.Lock()
	handlers := make([]Handler, 0, len(s.handlers[m.Name]))
	for _, h := range s.handlers[m.Name] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	var reply func(interface{})
	if m.HasCallID {
		callID := m.CallID
		reply = func(result interface{}) { s.reply(callID, result) }
	}
	for _, h := range handlers {
		h(m.Payload, reply)
	}
}

func (s *Session) reply(callID int64, result interface{}) {
	data, err := protocol.EncodeFrame([]protocol.OutMessage{protocol.Reply(callID, result)})
	if err != nil {
		return
	}
	s.send(data)
}

// AddEvent enqueues an outbound event, optionally with a reply handler
// (allocating a call id so the client's answer can be correlated back) or
// forced immediate delivery, bypassing the outbox (spec.md §4.10).
func (s *Session) AddEvent(name string, data interface{}, replyHandler ReplyHandler, force bool) {
	msg := protocol.Event(name, data)
	if replyHandler != nil {
		s.mu.Lock()
		callID := s.nextCallID
		s.nextCallID++
		s.pending[callID] = replyHandler
		s.mu.Unlock()
		msg.CallID = &callID
	}

	s.mu.Lock()
	immediate := force || s.flushInterval <= 0
	if !immediate {
		s.outbox = append(s.outbox, msg)
	}
	s.mu.Unlock()

	if immediate {
		s.sendOne(msg)
		return
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) sendOne(msg protocol.OutMessage) {
	data, err := protocol.EncodeFrame([]protocol.OutMessage{msg})
	if err != nil {
		return
	}
	s.send(data)
}

// Flush drains the outbox and writes it as a single frame, if non-empty.
func (s *Session) Flush() {
	s.mu.Lock()
	if len(s.outbox) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	data, err := protocol.EncodeFrame(batch)
	if err != nil {
		return
	}
	s.send(data)
}

func (s *Session) send(data []byte) {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if !connected {
		return
	}
	if err := s.conn.WriteMessage(data); err != nil {
		s.Close()
	}
}

// AttachGame marks the session as attached to one more game, resuming the
// latency ping if this is the first attachment.
func (s *Session) AttachGame() {
	atomic.AddInt32(&s.attachedGames, 1)
}

// DetachGame marks the session as detached from one game, pausing the
// ping loop once it is detached from every game (spec.md §4.10).
func (s *Session) DetachGame() {
	for {
		cur := atomic.LoadInt32(&s.attachedGames)
		if cur == 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&s.attachedGames, cur, cur-1) {
			return
		}
	}
}

// Run starts the session's background flush and ping loops. It returns
// immediately; the loops run until Close.
func (s *Session) Run() {
	go s.flushLoop()
	go s.pingLoop()
}

func (s *Session) flushLoop() {
	if s.flushInterval <= 0 {
		// Lobby-only sessions send immediately from AddEvent; nothing to
		// flush on a timer, but we still drain on close in case a
		// force=false caller slipped through.
		<-s.done
		s.Flush()
		return
	}

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	tickWake := make(chan struct{})
	go func() {
		defer close(tickWake)
		for range channerics.OrDone(s.done, ticker.C) {
			select {
			case tickWake <- struct{}{}:
			case <-s.done:
				return
			}
		}
	}()

	notifyWake := channerics.OrDone(s.done, s.notify)
	wake := channerics.Merge(s.done, tickWake, notifyWake)

	for range wake {
		s.Flush()
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range channerics.OrDone(s.done, ticker.C) {
		if atomic.LoadInt32(&s.attachedGames) == 0 {
			continue
		}
		s.AddEvent("ping", nowMillis(), nil, true)
	}
}

// Close marks the session disconnected, cancels its flush and ping loops,
// and emits EvClose synchronously so subscribers (room/game controllers)
// detach before returning (spec.md §4.10, §5).
func (s *Session) Close() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	s.mu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
	_ = s.conn.Close()
	s.Events.Emit(EvClose{})
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func roundToInt(v int64) int64 { return v }
