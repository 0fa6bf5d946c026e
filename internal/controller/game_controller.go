package controller

import (
	"time"

	"github.com/bokeefe123/modaltron/internal/game"
	"github.com/bokeefe123/modaltron/internal/metrics"
	"github.com/bokeefe123/modaltron/internal/protocol"
	"github.com/bokeefe123/modaltron/internal/pubsub"
	"github.com/bokeefe123/modaltron/internal/session"
)

// waitingTimeout is how long the controller waits for every newly loading
// avatar to signal ready before starting the round anyway, dropping the
// stragglers (spec.md §4.11, matching game_controller.py's waiting_time).
const waitingTimeout = 30 * time.Second

// GameController is the single per-game translator between model events
// and wire events, and between inbound player input and model mutation
// (spec.md §4.11). One is created per game.Game and torn down when the
// game ends.
type GameController struct {
	game *game.Game

	sessions map[uint64]*session.Session
	owned    map[uint64][]*game.Avatar // sessionID -> avatars it owns in this game

	loading      map[*game.Avatar]bool
	waitingTimer func()

	unsubs []pubsub.Unsubscribe
}

// NewGameController wires g's events into wire translation and begins
// waiting for every avatar to load.
func NewGameController(g *game.Game) *GameController {
	gc := &GameController{
		game:     g,
		sessions: make(map[uint64]*session.Session),
		owned:    make(map[uint64][]*game.Avatar),
		loading:  make(map[*game.Avatar]bool),
	}
	gc.unsubs = append(gc.unsubs, g.Events.Subscribe(gc.onGameEvent))
	for _, a := range g.Avatars() {
		avatar := a
		gc.unsubs = append(gc.unsubs, avatar.Events.Subscribe(func(ev game.AvatarEvent) { gc.onAvatarEvent(avatar, ev) }))
		gc.unsubs = append(gc.unsubs, avatar.BonusStackEvents().Subscribe(func(ev game.BonusStackEvent) { gc.onStackEvent(avatar, ev) }))
		gc.loading[avatar] = true
	}
	gc.unsubs = append(gc.unsubs, g.BonusManager().Events.Subscribe(gc.onBonusManagerEvent))
	return gc
}

// Close releases every subscription this controller installed, used when
// the game ends and the room drops its reference.
func (gc *GameController) Close() {
	if gc.waitingTimer != nil {
		gc.waitingTimer()
		gc.waitingTimer = nil
	}
	for _, u := range gc.unsubs {
		u()
	}
	gc.unsubs = nil
}

func (gc *GameController) broadcast(name string, data interface{}) {
	for _, sess := range gc.sessions {
		sess.AddEvent(name, data, nil, false)
	}
}

// Attach registers sess as observing this game, owning the given avatars
// (empty for a pure spectator). If the game has not started, the owned
// avatars enter the loading set and waiting begins; otherwise sess
// receives an immediate spectator snapshot (spec.md §4.11). All of gc's
// own bookkeeping runs on the game's goroutine via Post, matching the
// single-writer-per-game model the broadcast callbacks already run under.
func (gc *GameController) Attach(sess *session.Session, owned []*game.Avatar) {
	sess.AttachGame()
	gc.game.Post(func() {
		gc.sessions[sess.ID()] = sess
		gc.owned[sess.ID()] = owned

		if !gc.game.Started() {
			if len(gc.loading) > 0 && gc.waitingTimer == nil {
				gc.startWaitingTimer()
			}
		} else {
			gc.sendSpectatorSnapshot(sess)
		}
		gc.broadcast(wireGameSpectators, gc.countSpectators())
	})
}

// Detach releases sess from this game: its owned avatars are destroyed
// and it stops receiving broadcasts (spec.md §4.11 "On detach... destroy
// the session's avatar(s), stop ping").
func (gc *GameController) Detach(sess *session.Session) {
	sess.DetachGame()
	gc.game.Post(func() {
		owned := gc.owned[sess.ID()]
		delete(gc.sessions, sess.ID())
		delete(gc.owned, sess.ID())

		for _, avatar := range owned {
			delete(gc.loading, avatar)
			gc.game.RemoveAvatar(avatar)
		}
		gc.maybeStartRound()
		gc.broadcast(wireGameSpectators, gc.countSpectators())
	})
}

// countSpectators counts attached sessions that own no avatar in this
// game — clients watching without playing (spec.md §4.11, matching
// game_controller.py's _count_spectators).
func (gc *GameController) countSpectators() int {
	n := 0
	for id := range gc.sessions {
		if len(gc.owned[id]) == 0 {
			n++
		}
	}
	return n
}

// HandleReady marks every loading avatar sess owns as ready, starting the
// round once every loading avatar has reported in.
func (gc *GameController) HandleReady(sess *session.Session) {
	gc.game.Post(func() {
		for _, avatar := range gc.owned[sess.ID()] {
			if gc.loading[avatar] {
				avatar.Ready = true
				delete(gc.loading, avatar)
			}
		}
		gc.maybeStartRound()
	})
}

// maybeStartRound must only be called from the game's own goroutine (via
// Post or from a game-scheduled timer callback).
func (gc *GameController) maybeStartRound() {
	if len(gc.loading) > 0 {
		return
	}
	if gc.waitingTimer != nil {
		gc.waitingTimer()
		gc.waitingTimer = nil
	}
	gc.game.NewRound(0)
}

func (gc *GameController) startWaitingTimer() {
	gc.waitingTimer = gc.game.After(waitingTimeout, gc.onWaitingTimeout)
}

func (gc *GameController) onWaitingTimeout() {
	for avatar := range gc.loading {
		gc.game.RemoveAvatar(avatar)
	}
	gc.loading = make(map[*game.Avatar]bool)
	gc.game.NewRound(0)
}

// HandleMove applies a steering input from an avatar owned by sess.
func (gc *GameController) HandleMove(sess *session.Session, avatarID uint64, move float64) {
	gc.game.Post(func() {
		for _, avatar := range gc.owned[sess.ID()] {
			if avatar.Player().ID() == avatarID {
				avatar.UpdateAngularVelocity(&move)
				return
			}
		}
	})
}

type spectateSnapshot struct {
	InRound  bool `json:"inRound"`
	Rendered bool `json:"rendered"`
	MaxScore int  `json:"maxScore"`
}

func (gc *GameController) sendSpectatorSnapshot(sess *session.Session) {
	sess.AddEvent(wireSpectate, spectateSnapshot{
		InRound:  gc.game.InRound(),
		Rendered: !gc.game.Rendered().IsZero(),
		MaxScore: gc.game.MaxScore(),
	}, nil, false)

	for _, a := range gc.game.Avatars() {
		gc.sendAvatarSnapshot(sess, a)
	}
	if gc.game.InRound() {
		for _, b := range gc.game.BonusManager().Active() {
			sess.AddEvent(wireBonusPop, bonusPopPayload(b), nil, false)
		}
	}
	if winner := gc.game.RoundWinner(); !gc.game.InRound() {
		var winnerID *uint64
		if winner != nil {
			id := winner.Player().ID()
			winnerID = &id
		}
		sess.AddEvent(wireRoundEnd, winnerID, nil, false)
	}
	sess.AddEvent(wireGameSpectators, gc.countSpectators(), nil, false)
}

// spectator snapshot per avatar: position, then exactly five `property`
// events — angle, radius, color, printing, score, in that order — plus a
// die for the dead (spec.md §4.11 scenario 6: "five property events per
// avatar"; property set and order from `_attach_spectator` in
// original_source/python_server/server/controllers/game_controller.py).
func (gc *GameController) sendAvatarSnapshot(sess *session.Session, a *game.Avatar) {
	id := a.Player().ID()
	sess.AddEvent(wirePosition, positionPayload(id, a.X, a.Y), nil, false)

	props := []struct {
		name  string
		value interface{}
	}{
		{"angle", protocol.Compress(a.Angle)},
		{game.PropRadius.String(), a.Radius()},
		{game.PropColor.String(), a.Serialize().Color},
		{game.PropPrinting.String(), a.Printing()},
		{"score", a.Score},
	}
	for _, pv := range props {
		sess.AddEvent(wireProperty, []interface{}{id, pv.name, pv.value}, nil, false)
	}
	if !a.Alive {
		sess.AddEvent(wireDie, []interface{}{id, nil, false}, nil, false)
	}
}

func positionPayload(id uint64, x, y float64) []interface{} {
	return []interface{}{id, protocol.Compress(x), protocol.Compress(y)}
}

func bonusPopPayload(b *game.Bonus) []interface{} {
	return []interface{}{b.ID, protocol.Compress(b.X), protocol.Compress(b.Y), b.Kind.String()}
}

func (gc *GameController) onGameEvent(ev game.GameEvent) {
	switch e := ev.(type) {
	case game.EvGameStart:
		gc.broadcast(wireGameStart, nil)
	case game.EvGameStop:
		gc.broadcast(wireGameStop, nil)
	case game.EvGameEnd:
		gc.broadcast(wireEnd, nil)
	case game.EvGameClear:
		gc.broadcast(wireClear, nil)
	case game.EvPlayerLeave:
		gc.broadcast(wireGameLeave, e.Player.ID())
	case game.EvRoundNew:
		metrics.AvatarsAlive.Set(float64(len(gc.game.Avatars())))
		gc.broadcast(wireRoundNew, nil)
	case game.EvRoundEnd:
		var winnerID *uint64
		if e.Winner != nil {
			id := e.Winner.Player().ID()
			winnerID = &id
		}
		gc.broadcast(wireRoundEnd, winnerID)
	case game.EvBorderless:
		gc.broadcast(wireBorderless, e.Borderless)
	}
}

func (gc *GameController) onAvatarEvent(a *game.Avatar, ev game.AvatarEvent) {
	id := a.Player().ID()
	switch e := ev.(type) {
	case game.EvPosition:
		gc.broadcast(wirePosition, positionPayload(id, e.Avatar.X, e.Avatar.Y))
	case game.EvAngle:
		gc.broadcast(wireAngle, []interface{}{id, protocol.Compress(e.Avatar.Angle)})
	case game.EvProperty:
		gc.broadcast(wireProperty, []interface{}{id, e.Property.String(), e.Value})
	case game.EvPoint:
		if e.Important {
			gc.broadcast(wirePoint, id)
		}
	case game.EvScore:
		gc.broadcast(wireScore, []interface{}{id, e.Avatar.Score})
	case game.EvRoundScore:
		gc.broadcast(wireScoreRound, []interface{}{id, e.Avatar.RoundScore})
	case game.EvDie:
		var killerID interface{}
		if e.Killer != nil {
			killerID = e.Killer.Player().ID()
			metrics.CollisionsResolvedTotal.Inc()
		}
		var old bool
		if e.Old != nil {
			old = *e.Old
		}
		metrics.AvatarsAlive.Set(float64(countAlive(gc.game.Avatars())))
		gc.broadcast(wireDie, []interface{}{id, killerID, old})
	}
}

func (gc *GameController) onStackEvent(a *game.Avatar, ev game.BonusStackEvent) {
	e, ok := ev.(game.EvStackChange)
	if !ok {
		return
	}
	gc.broadcast(wireBonusStack, []interface{}{
		a.Player().ID(), e.Method, e.Bonus.ID, e.Bonus.Kind.String(), e.Bonus.Duration().Milliseconds(),
	})
}

func countAlive(avatars []*game.Avatar) int {
	n := 0
	for _, a := range avatars {
		if a.Alive {
			n++
		}
	}
	return n
}

func (gc *GameController) onBonusManagerEvent(ev game.BonusManagerEvent) {
	switch e := ev.(type) {
	case game.EvBonusPop:
		metrics.RecordBonusSpawn()
		gc.broadcast(wireBonusPop, bonusPopPayload(e.Bonus))
	case game.EvBonusClear:
		gc.broadcast(wireBonusClear, e.Bonus.ID)
	}
}
