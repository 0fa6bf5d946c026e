package room

import (
	"github.com/bokeefe123/modaltron/internal/game"
	"github.com/bokeefe123/modaltron/internal/pubsub"
)

const (
	minPlayers  = 1
	maxRoomName = 25
	// LaunchTime is how long the controller waits after a launch vote
	// before starting the first game (spec.md §4.1).
	LaunchTime = 5000
	// CloseTimeout is how long an empty room is kept around before the
	// repository reclaims it.
	CloseTimeout = 10000
)

// RoomEvent is the discriminated union a Room publishes.
type RoomEvent interface{ roomEvent() }

type EvPlayerJoin struct{ Player *Player }
type EvPlayerLeave struct{ Player *Player }
type EvGameNew struct{ Game *game.Game }
type EvGameEnd struct{}
type EvClose struct{}

func (EvPlayerJoin) roomEvent()  {}
func (EvPlayerLeave) roomEvent() {}
func (EvGameNew) roomEvent()     {}
func (EvGameEnd) roomEvent()     {}
func (EvClose) roomEvent()       {}

// Room is one lobby/match instance: a roster of players, its launch
// configuration, and at most one game in progress (spec.md §4.1).
type Room struct {
	Name string

	players      []*Player
	nextPlayerID uint64

	Config *Config
	Chat   *Chat
	Game   *game.Game

	Events *pubsub.Topic[RoomEvent]
}

// NewRoom constructs an empty room with default configuration.
func NewRoom(name string) *Room {
	r := &Room{Name: name, Chat: newChat(), Events: pubsub.NewTopic[RoomEvent]()}
	r.Config = newConfig(r)
	return r
}

// Players returns the room's current roster in join order.
func (r *Room) Players() []*Player { return append([]*Player(nil), r.players...) }

// IsNameAvailable reports whether no current player already uses name.
func (r *Room) IsNameAvailable(name string) bool {
	for _, p := range r.players {
		if p.Name() == name {
			return false
		}
	}
	return true
}

// AddPlayer admits a new client to the room under the given name/color.
func (r *Room) AddPlayer(client Client, name, color string) *Player {
	r.nextPlayerID++
	id := r.nextPlayerID
	p := NewPlayer(id, client, name, color)
	r.players = append(r.players, p)
	r.Events.Emit(EvPlayerJoin{Player: p})
	return p
}

// RemovePlayer drops p from the roster, reporting whether it was present.
func (r *Room) RemovePlayer(p *Player) bool {
	for i, existing := range r.players {
		if existing == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			r.Events.Emit(EvPlayerLeave{Player: p})
			return true
		}
	}
	return false
}

// IsReady reports whether the room can launch: no game running, the
// minimum player count met, and every player marked ready.
func (r *Room) IsReady() bool {
	if r.Game != nil {
		return false
	}
	if len(r.players) < minPlayers {
		return false
	}
	for _, p := range r.players {
		if !p.Ready() {
			return false
		}
	}
	return true
}

// NewGame starts a fresh game from the current roster, or returns nil if
// one is already running. The caller (RoomController) is responsible for
// calling CloseGame once the game reports EvGameEnd, keeping that
// mutation on the controller's own goroutine rather than the game's.
func (r *Room) NewGame() *game.Game {
	if r.Game != nil {
		return nil
	}
	avatars := make([]*game.Avatar, 0, len(r.players))
	for _, p := range r.players {
		avatars = append(avatars, p.GetAvatar())
	}
	g := game.NewGame(avatars, r.Config)
	r.Game = g
	r.Events.Emit(EvGameNew{Game: g})
	return g
}

// CloseGame clears the finished game, drops players whose connection is
// gone, and resets everyone else's readiness for the next launch.
func (r *Room) CloseGame() {
	if r.Game == nil {
		return
	}
	r.Game = nil
	r.Events.Emit(EvGameEnd{})

	kept := r.players[:0:0]
	for _, p := range r.players {
		if p.client == nil {
			continue
		}
		p.Reset()
		kept = append(kept, p)
	}
	r.players = kept
}

// Close announces that the room should be torn down; the repository
// listens for this and removes it from the registry.
func (r *Room) Close() { r.Events.Emit(EvClose{}) }

// Snapshot is the public serialization of a room (spec.md §6).
type Snapshot struct {
	Name    string      `json:"name"`
	Players interface{} `json:"players"`
	Game    bool        `json:"game"`
	Open    bool        `json:"open"`
	Config  *ConfigSnapshot `json:"config,omitempty"`
}

// Serialize returns the room's public state. full also includes the
// per-player roster and room config; otherwise only the player count.
func (r *Room) Serialize(full bool) Snapshot {
	s := Snapshot{Name: r.Name, Game: r.Game != nil, Open: r.Config.open}
	if full {
		snaps := make([]interface{}, 0, len(r.players))
		for _, p := range r.players {
			snaps = append(snaps, p.Serialize())
		}
		s.Players = snaps
		cfg := r.Config.Serialize()
		s.Config = &cfg
	} else {
		s.Players = len(r.players)
	}
	return s
}
