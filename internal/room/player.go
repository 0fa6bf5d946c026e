package room

import (
	"strings"

	"github.com/bokeefe123/modaltron/internal/game"
)

const (
	maxNameLength  = 25
	maxColorLength = 20
)

// Client is the minimal, non-owning view a Player needs of its live
// connection. The concrete session type lives in package session; room
// never imports it, breaking the player↔session cycle the same way
// spec.md §9 asks the avatar↔player cycle to be broken. Grounded on the
// teacher's own `PlayerConnection` interface in `internal/game/player.go`.
type Client interface {
	ID() uint64
	Active() bool
}

// Player is one connected participant in a room (spec.md §4.2). It
// lazily owns a *game.Avatar, constructed on first use and reused across
// rounds within the same game.
type Player struct {
	id     uint64
	client Client
	name   string
	color  string
	ready  bool

	avatar *game.Avatar
}

// NewPlayer constructs a player bound to client with the given name. If
// color is empty, a random bright color is generated.
func NewPlayer(id uint64, client Client, name, color string) *Player {
	if color == "" || !validateColor(color, true) {
		color = randomColor()
	}
	p := &Player{id: id, client: client, color: color}
	p.SetName(name)
	return p
}

// ID implements game.PlayerRef.
func (p *Player) ID() uint64 { return p.id }

// Name implements game.PlayerRef.
func (p *Player) Name() string { return p.name }

// Color implements game.PlayerRef.
func (p *Player) Color() string { return p.color }

// Ready reports whether the player has marked themselves ready to launch.
func (p *Player) Ready() bool { return p.ready }

// Active reports whether the player's underlying connection is live.
func (p *Player) Active() bool { return p.client != nil && p.client.Active() }

// Client returns the player's current connection reference.
func (p *Player) Client() Client { return p.client }

// SetClient rebinds the player to a new connection (reconnect).
func (p *Player) SetClient(c Client) { p.client = c }

// Equal compares players by identity.
func (p *Player) Equal(other *Player) bool { return other != nil && p.id == other.id }

// SetName trims and length-caps name.
func (p *Player) SetName(name string) {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	p.name = name
}

// SetColor validates and applies color, reporting success.
func (p *Player) SetColor(color string) bool {
	if len(color) > maxColorLength || !validateColor(color, true) {
		return false
	}
	p.color = color
	return true
}

// ToggleReady flips ready, or sets it directly when toggle is non-nil.
func (p *Player) ToggleReady(toggle *bool) {
	if toggle != nil {
		p.ready = *toggle
		return
	}
	p.ready = !p.ready
}

// GetAvatar lazily constructs and caches the player's game avatar.
func (p *Player) GetAvatar() *game.Avatar {
	if p.avatar == nil {
		p.avatar = game.NewAvatar(p)
	}
	p.avatar.Present = true
	return p.avatar
}

// Reset retires the player's avatar and clears readiness ahead of a new
// game, keeping the player and its room membership intact.
func (p *Player) Reset() {
	if p.avatar != nil {
		p.avatar.Destroy()
		p.avatar = nil
	}
	p.ready = false
}

// PlayerSnapshot is the public serialization of a player (spec.md §6).
type PlayerSnapshot struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Ready  bool   `json:"ready"`
	Active bool   `json:"active"`
}

// Serialize returns the player's current public state.
func (p *Player) Serialize() PlayerSnapshot {
	return PlayerSnapshot{ID: p.id, Name: p.name, Color: p.color, Ready: p.ready, Active: p.Active()}
}
