package controller

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bokeefe123/modaltron/internal/apperr"
	"github.com/bokeefe123/modaltron/internal/metrics"
	"github.com/bokeefe123/modaltron/internal/pubsub"
	"github.com/bokeefe123/modaltron/internal/room"
	"github.com/bokeefe123/modaltron/internal/session"
)

// RoomsController is the single process-wide lobby: every connected
// session attaches here regardless of room membership, answers
// room:fetch/create/join, and relays the repository's open/close/state
// fanout as compact room summaries (spec.md §4.13). It also spins up and
// tears down one RoomController per open room.
type RoomsController struct {
	repo *room.Repository

	mu       sync.Mutex
	sessions map[uint64]*session.Session
	unsubs   map[uint64][]func()
	rooms    map[string]*RoomController
	current  map[uint64]*RoomController // sessionID -> room currently joined, if any

	repoUnsub pubsub.Unsubscribe
}

// NewRoomsController wires repo's lifecycle fanout and starts a
// RoomController for every room already registered.
func NewRoomsController(repo *room.Repository) *RoomsController {
	lc := &RoomsController{
		repo:     repo,
		sessions: make(map[uint64]*session.Session),
		unsubs:   make(map[uint64][]func()),
		rooms:    make(map[string]*RoomController),
		current:  make(map[uint64]*RoomController),
	}
	lc.repoUnsub = repo.Events.Subscribe(lc.onRepositoryEvent)
	for _, r := range repo.List() {
		lc.ensureController(r)
	}
	return lc
}

func (lc *RoomsController) ensureController(r *room.Room) *RoomController {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if ctrl, ok := lc.rooms[r.Name]; ok {
		return ctrl
	}
	ctrl := NewRoomController(r)
	lc.rooms[r.Name] = ctrl
	go ctrl.Run()
	metrics.RoomsActive.Set(float64(len(lc.rooms)))
	return ctrl
}

func (lc *RoomsController) removeController(name string) {
	lc.mu.Lock()
	ctrl, ok := lc.rooms[name]
	delete(lc.rooms, name)
	count := len(lc.rooms)
	lc.mu.Unlock()
	if ok {
		ctrl.Close()
	}
	metrics.RoomsActive.Set(float64(count))
}

func (lc *RoomsController) onRepositoryEvent(ev room.RepositoryEvent) {
	switch e := ev.(type) {
	case room.EvRoomOpen:
		lc.ensureController(e.Room)
		lc.broadcast(wireRoomOpen, e.Room.Serialize(false))
	case room.EvRoomClose:
		lc.removeController(e.Room.Name)
		lc.broadcast(wireRoomClose, roomCloseSummary{Name: e.Room.Name})
	case room.EvRoomPlayers:
		lc.broadcast(wireRoomPlayers, e.Room.Serialize(false))
	case room.EvRoomGame:
		lc.broadcast(wireRoomGame, e.Room.Serialize(false))
	case room.EvRoomConfigOpen:
		lc.broadcast(wireRoomConfigOpen, e.Room.Serialize(false))
	}
}

// roomCloseSummary is the payload for room:close, which (unlike the other
// lobby events) carries no player/open/game state to summarize.
type roomCloseSummary struct {
	Name string `json:"name"`
}

func (lc *RoomsController) broadcast(name string, data interface{}) {
	lc.mu.Lock()
	sessions := make([]*session.Session, 0, len(lc.sessions))
	for _, s := range lc.sessions {
		sessions = append(sessions, s)
	}
	lc.mu.Unlock()
	for _, s := range sessions {
		s.AddEvent(name, data, nil, false)
	}
}

// Attach registers sess as a lobby listener and wires the handlers for
// its lobby-scoped requests. Every session attaches here exactly once,
// independent of whatever room it later joins.
func (lc *RoomsController) Attach(sess *session.Session) {
	lc.mu.Lock()
	lc.sessions[sess.ID()] = sess
	count := len(lc.sessions)
	lc.mu.Unlock()
	metrics.SessionsActive.Set(float64(count))

	lc.wireHandlers(sess)

	unsub := sess.Events.Subscribe(func(ev session.SessionEvent) {
		if _, ok := ev.(session.EvClose); ok {
			lc.Detach(sess)
		}
	})
	lc.mu.Lock()
	lc.unsubs[sess.ID()] = append(lc.unsubs[sess.ID()], unsub)
	lc.mu.Unlock()
}

// Detach removes sess from the lobby and, if it is currently a room
// member, detaches it from that room too (spec.md §5: a closing session
// must be fully unwound before the next tick).
func (lc *RoomsController) Detach(sess *session.Session) {
	lc.mu.Lock()
	delete(lc.sessions, sess.ID())
	unsubs := lc.unsubs[sess.ID()]
	delete(lc.unsubs, sess.ID())
	ctrl := lc.current[sess.ID()]
	delete(lc.current, sess.ID())
	count := len(lc.sessions)
	lc.mu.Unlock()
	metrics.SessionsActive.Set(float64(count))

	for _, u := range unsubs {
		u()
	}
	if ctrl != nil {
		ctrl.Detach(sess)
	}
}

func (lc *RoomsController) wireHandlers(sess *session.Session) {
	add := func(name string, h session.Handler) {
		lc.mu.Lock()
		lc.unsubs[sess.ID()] = append(lc.unsubs[sess.ID()], sess.On(name, h))
		lc.mu.Unlock()
	}

	add(evRoomFetch, func(json.RawMessage, func(interface{})) {
		for _, r := range lc.repo.List() {
			sess.AddEvent(wireRoomOpen, r.Serialize(false), nil, false)
		}
	})

	add(evRoomCreate, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(payload, &req)

		r := lc.repo.Create(req.Name)
		if reply == nil {
			return
		}
		if r == nil {
			reply(apperr.Ack(apperr.Validationf("room name taken")))
			return
		}
		reply(apperr.AckWith(nil, map[string]interface{}{"room": r.Serialize(false)}))
	})

	add(evRoomJoin, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			replyAck(reply, apperr.Validationf("invalid request"))
			return
		}
		r, err := lc.repo.Join(req.Name, req.Password)
		if err != nil {
			replyAck(reply, apperr.Validationf("%s", joinErrorMessage(err, req.Name)))
			return
		}
		ctrl := lc.ensureController(r)
		lc.mu.Lock()
		lc.current[sess.ID()] = ctrl
		lc.mu.Unlock()
		ctrl.Attach(sess, reply)
	})
}

func joinErrorMessage(err error, name string) string {
	switch err {
	case room.ErrRoomNotFound:
		return fmt.Sprintf("Unknown room %q.", name)
	case room.ErrWrongPassword:
		return "Wrong password."
	default:
		return err.Error()
	}
}
