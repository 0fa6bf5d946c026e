package controller

import (
	"encoding/json"
	"time"

	"github.com/bokeefe123/modaltron/internal/apperr"
	"github.com/bokeefe123/modaltron/internal/game"
	"github.com/bokeefe123/modaltron/internal/pubsub"
	"github.com/bokeefe123/modaltron/internal/room"
	"github.com/bokeefe123/modaltron/internal/session"
)

const chatHistoryOnJoin = 100

// RoomController mediates every non-game operation against one room:
// membership, chat, readiness, launch countdown, master nomination, and
// config changes (spec.md §4.9, §4.12).
type RoomController struct {
	r *room.Room

	sessions map[uint64]*session.Session
	unsubs   map[uint64][]func()

	master uint64

	launching    bool
	launchCancel func()

	closeCancel func()

	current *GameController

	roomUnsubs []pubsub.Unsubscribe

	cmdCh  chan func()
	stopCh chan struct{}
}

// NewRoomController wires r's lifecycle events (new game, game end,
// close) into this controller. The returned controller does not yet own
// any sessions; call Run on its own goroutine, then Attach for each
// joining client.
func NewRoomController(r *room.Room) *RoomController {
	rc := &RoomController{
		r:        r,
		sessions: make(map[uint64]*session.Session),
		unsubs:   make(map[uint64][]func()),
		cmdCh:    make(chan func(), 64),
		stopCh:   make(chan struct{}),
	}
	// onRoomEvent/onConfigEvent may fire from the game's own goroutine
	// (e.g. EvGameEnd) as well as rc's, so route them through Post too.
	rc.roomUnsubs = append(rc.roomUnsubs, r.Events.Subscribe(func(ev room.RoomEvent) {
		rc.Post(func() { rc.onRoomEvent(ev) })
	}))
	rc.roomUnsubs = append(rc.roomUnsubs, r.Config.Events.Subscribe(func(ev room.ConfigEvent) {
		rc.Post(func() { rc.onConfigEvent(ev) })
	}))
	return rc
}

// Run drains rc's command queue until Close, serializing every mutation
// of this room's controller state onto one goroutine, mirroring the
// single-writer-per-game model of internal/game.Game.
func (rc *RoomController) Run() {
	for {
		select {
		case <-rc.stopCh:
			return
		case fn := <-rc.cmdCh:
			fn()
		}
	}
}

// Close stops Run, tearing down any in-progress game controller.
func (rc *RoomController) Close() {
	select {
	case <-rc.stopCh:
	default:
		close(rc.stopCh)
	}
	if rc.current != nil {
		rc.current.Close()
		rc.current = nil
	}
}

// Post submits fn to run on rc's own goroutine.
func (rc *RoomController) Post(fn func()) {
	select {
	case rc.cmdCh <- fn:
	case <-rc.stopCh:
	}
}

// After schedules fn to run on rc's own goroutine after d elapses,
// returning a canceler (spec.md §5 timer semantics).
func (rc *RoomController) After(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, func() { rc.Post(fn) })
	return func() { timer.Stop() }
}

func (rc *RoomController) onRoomEvent(ev room.RoomEvent) {
	switch e := ev.(type) {
	case room.EvPlayerJoin:
		rc.broadcast(wireRoomJoin, e.Player.Serialize())
		rc.ensureMaster()
	case room.EvPlayerLeave:
		rc.broadcast(wireRoomLeave, e.Player.ID())
		rc.ensureMaster()
	case room.EvGameNew:
		rc.startGame(e.Game)
	case room.EvGameEnd:
		rc.endGame()
	case room.EvClose:
		for _, u := range rc.roomUnsubs {
			u()
		}
	}
}

func (rc *RoomController) onConfigEvent(ev room.ConfigEvent) {
	if e, ok := ev.(room.EvConfigOpen); ok {
		rc.broadcast(wireRoomConfigOpen, e.Open)
	}
}

func (rc *RoomController) startGame(g *game.Game) {
	rc.current = NewGameController(g)
	// EvGameEnd fires from g's own goroutine; route the room mutation it
	// triggers back onto rc's goroutine rather than applying it inline.
	g.Events.Subscribe(func(ev game.GameEvent) {
		if _, ok := ev.(game.EvGameEnd); ok {
			rc.Post(rc.endGame)
		}
	})
	go g.Run()
	for _, p := range rc.r.Players() {
		sess, ok := rc.sessionOf(p)
		if !ok {
			continue
		}
		rc.current.Attach(sess, []*game.Avatar{p.GetAvatar()})
	}
	rc.broadcast(wireRoomGameStart, nil)
}

func (rc *RoomController) endGame() {
	if rc.current != nil {
		rc.current.Close()
		rc.current = nil
	}
	rc.r.CloseGame()
}

func (rc *RoomController) sessionOf(p *room.Player) (*session.Session, bool) {
	c := p.Client()
	if c == nil {
		return nil, false
	}
	sess, ok := c.(*session.Session)
	return sess, ok
}

func (rc *RoomController) broadcast(name string, data interface{}) {
	for _, sess := range rc.sessions {
		sess.AddEvent(name, data, nil, false)
	}
}

// Attach registers sess as present in this room, acking the join through
// reply with `{room, master, clients, messages, votes}` and wiring its
// inbound event handlers (spec.md §4.12). Runs on rc's own goroutine.
func (rc *RoomController) Attach(sess *session.Session, reply func(interface{})) {
	rc.Post(func() { rc.doAttach(sess, reply) })
}

func (rc *RoomController) doAttach(sess *session.Session, reply func(interface{})) {
	if _, already := rc.sessions[sess.ID()]; already {
		replyAck(reply, apperr.Validationf("already in room %q", rc.r.Name))
		return
	}

	rc.sessions[sess.ID()] = sess
	rc.cancelCloseTimer()
	rc.wireHandlers(sess)
	rc.ensureMaster()

	if reply != nil {
		reply(apperr.AckWith(nil, map[string]interface{}{
			"room":     rc.r.Serialize(true),
			"master":   rc.master,
			"clients":  rc.clientSnapshots(),
			"messages": rc.r.Chat.Serialize(chatHistoryOnJoin),
			"votes":    rc.readyVotes(),
		}))
	}
	rc.broadcast(wireClientAdd, sess.ID())

	if rc.current != nil {
		if owned := rc.ownedAvatars(sess); len(owned) > 0 {
			rc.current.Attach(sess, owned)
		}
		sess.AddEvent(wireRoomGameStart, nil, nil, false)
	}
}

func (rc *RoomController) clientSnapshots() []room.PlayerSnapshot {
	players := rc.r.Players()
	out := make([]room.PlayerSnapshot, len(players))
	for i, p := range players {
		out[i] = p.Serialize()
	}
	return out
}

func (rc *RoomController) ownedAvatars(sess *session.Session) []*game.Avatar {
	var out []*game.Avatar
	for _, p := range sess.Players() {
		out = append(out, p.GetAvatar())
	}
	return out
}

func (rc *RoomController) readyVotes() map[string]bool {
	votes := make(map[string]bool)
	for _, p := range rc.r.Players() {
		votes[fmtUint(p.ID())] = p.Ready()
	}
	return votes
}

// Detach removes sess from the room entirely: drops its players, cancels
// its handlers, re-nominates a master, and starts the empty-room close
// timer if no one is left (spec.md §4.9, §4.12). Runs on rc's own
// goroutine.
func (rc *RoomController) Detach(sess *session.Session) {
	rc.Post(func() { rc.doDetach(sess) })
}

func (rc *RoomController) doDetach(sess *session.Session) {
	if _, present := rc.sessions[sess.ID()]; !present {
		return
	}
	for _, u := range rc.unsubs[sess.ID()] {
		u()
	}
	delete(rc.unsubs, sess.ID())
	delete(rc.sessions, sess.ID())

	if rc.current != nil {
		rc.current.Detach(sess)
	}
	for _, p := range sess.ClearPlayers() {
		rc.r.RemovePlayer(p)
	}

	rc.broadcast(wireClientRemove, sess.ID())
	rc.ensureMaster()
	if len(rc.sessions) == 0 {
		rc.startCloseTimer()
	}
}

func (rc *RoomController) startCloseTimer() {
	if rc.closeCancel != nil {
		return
	}
	rc.closeCancel = rc.After(time.Duration(room.CloseTimeout)*time.Millisecond, func() {
		rc.r.Close()
	})
}

func (rc *RoomController) cancelCloseTimer() {
	if rc.closeCancel != nil {
		rc.closeCancel()
		rc.closeCancel = nil
	}
}

// ensureMaster nominates the first active, playing client as room master
// whenever the current one is gone (spec.md §4.12).
func (rc *RoomController) ensureMaster() {
	if rc.isValidMaster(rc.master) {
		return
	}
	for _, p := range rc.r.Players() {
		if p.Active() {
			rc.master = p.ID()
			rc.broadcast(wireRoomMaster, rc.master)
			return
		}
	}
	rc.master = 0
}

func (rc *RoomController) isValidMaster(id uint64) bool {
	if id == 0 {
		return false
	}
	for _, p := range rc.r.Players() {
		if p.ID() == id {
			return p.Active()
		}
	}
	return false
}

func (rc *RoomController) isMaster(sess *session.Session) bool {
	for _, p := range sess.Players() {
		if p.ID() == rc.master {
			return true
		}
	}
	return false
}

func fmtUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

// wireHandlers registers every client->server handler this controller
// answers, storing the Unsubscribe handles so Detach can remove exactly
// this session's listeners without disturbing another room's (spec.md §9
// Open Question 1).
func (rc *RoomController) wireHandlers(sess *session.Session) {
	// add registers h to run on rc's own goroutine: every handler body
	// below assumes exclusive access to room/controller state, matching
	// the single-writer model internal/game.Game uses for its own timers.
	add := func(name string, h session.Handler) {
		wrapped := func(payload json.RawMessage, reply func(interface{})) {
			rc.Post(func() { h(payload, reply) })
		}
		rc.unsubs[sess.ID()] = append(rc.unsubs[sess.ID()], sess.On(name, wrapped))
	}

	add(evPlayerAdd, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		if !rc.r.IsNameAvailable(req.Name) {
			replyAck(reply, apperr.Validationf("name taken"))
			return
		}
		p := rc.r.AddPlayer(sess, req.Name, req.Color)
		sess.AddPlayer(p)
		replyAck(reply, nil)
	})

	add(evPlayerRemove, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Player uint64 `json:"player"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		for _, p := range sess.Players() {
			if p.ID() == req.Player {
				sess.RemovePlayer(p)
				rc.r.RemovePlayer(p)
				replyAck(reply, nil)
				return
			}
		}
		replyAck(reply, apperr.Validationf("no such player"))
	})

	add(evPlayersClear, func(json.RawMessage, func(interface{})) {
		for _, p := range sess.ClearPlayers() {
			rc.r.RemovePlayer(p)
		}
	})

	add(evRoomTalk, func(payload json.RawMessage, reply func(interface{})) {
		var content string
		if err := json.Unmarshal(payload, &content); err != nil {
			return
		}
		msg := rc.r.Chat.Add(sess.ID(), content)
		rc.broadcast(wireRoomTalk, msg)
		replyAck(reply, nil)
	})

	add(evRoomReady, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Player uint64 `json:"player"`
		}
		_ = json.Unmarshal(payload, &req)
		for _, p := range sess.Players() {
			if p.ID() == req.Player {
				p.ToggleReady(nil)
				rc.broadcast(wirePlayerReady, p.Serialize())
				rc.onReadyChanged()
				replyAck(reply, nil)
				return
			}
		}
		replyAck(reply, apperr.Validationf("no such player"))
	})

	add(evRoomColor, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Player uint64 `json:"player"`
			Color  string `json:"color"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		for _, p := range sess.Players() {
			if p.ID() == req.Player {
				if !p.SetColor(req.Color) {
					replyAck(reply, apperr.Validationf("invalid color"))
					return
				}
				rc.broadcast(wirePlayerColor, []interface{}{p.ID(), p.Color()})
				replyAck(reply, nil)
				return
			}
		}
		replyAck(reply, apperr.Validationf("no such player"))
	})

	add(evRoomName, func(payload json.RawMessage, reply func(interface{})) {
		var req struct {
			Player uint64 `json:"player"`
			Name   string `json:"name"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		for _, p := range sess.Players() {
			if p.ID() == req.Player {
				p.SetName(req.Name)
				rc.broadcast(wirePlayerName, []interface{}{p.ID(), p.Name()})
				replyAck(reply, nil)
				return
			}
		}
		replyAck(reply, apperr.Validationf("no such player"))
	})

	add(evRoomConfigOpen, func(payload json.RawMessage, reply func(interface{})) {
		if !rc.isMaster(sess) {
			replyAck(reply, apperr.Authorizationf("not room master"))
			return
		}
		var req struct {
			Open bool `json:"open"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		rc.r.Config.SetOpen(req.Open)
		replyAck(reply, nil)
	})

	add(evRoomConfigMaxScore, func(payload json.RawMessage, reply func(interface{})) {
		if !rc.isMaster(sess) {
			replyAck(reply, apperr.Authorizationf("not room master"))
			return
		}
		var req struct {
			MaxScore int `json:"maxScore"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		rc.r.Config.SetMaxScore(&req.MaxScore)
		replyAck(reply, nil)
	})

	add(evRoomLaunch, func(json.RawMessage, func(interface{})) {
		if !rc.isMaster(sess) {
			return
		}
		rc.onLaunch()
	})

	add(evReady, func(json.RawMessage, func(interface{})) {
		if rc.current != nil {
			rc.current.HandleReady(sess)
		}
	})

	add(evPlayerMove, func(payload json.RawMessage, _ func(interface{})) {
		var req struct {
			Avatar uint64  `json:"avatar"`
			Move   float64 `json:"move"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		if rc.current != nil {
			rc.current.HandleMove(sess, req.Avatar, req.Move)
		}
	})

	add(evRoomLeave, func(json.RawMessage, func(interface{})) {
		rc.doDetach(sess)
	})
}

func replyAck(reply func(interface{}), err error) {
	if reply != nil {
		reply(apperr.Ack(err))
	}
}

func (rc *RoomController) onReadyChanged() {
	if rc.launching && !rc.r.IsReady() {
		rc.cancelLaunch()
	}
}

// onLaunch starts the launch countdown or, if a countdown is already
// running, cancels it and starts the game immediately
// (spec.md §4.9: "when the countdown fires (or the room master re-presses
// launch), call newGame()").
func (rc *RoomController) onLaunch() {
	if rc.launching {
		rc.cancelLaunch()
		rc.r.NewGame()
		return
	}
	if !rc.r.IsReady() {
		return
	}
	rc.launching = true
	rc.broadcast(wireRoomLaunchStart, nil)
	rc.launchCancel = rc.After(time.Duration(room.LaunchTime)*time.Millisecond, func() {
		rc.launching = false
		rc.r.NewGame()
	})
}

func (rc *RoomController) cancelLaunch() {
	if rc.launchCancel != nil {
		rc.launchCancel()
		rc.launchCancel = nil
	}
	if rc.launching {
		rc.launching = false
		rc.broadcast(wireRoomLaunchCancel, nil)
	}
}
