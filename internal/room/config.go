package room

import (
	"math/rand"

	"github.com/bokeefe123/modaltron/internal/game"
	"github.com/bokeefe123/modaltron/internal/pubsub"
)

const passwordLength = 4

// ConfigEvent is published by Config when its open/password state flips.
type ConfigEvent interface{ configEvent() }

// EvConfigOpen reports that a room toggled between public and invite-only.
type EvConfigOpen struct{ Open bool }

func (EvConfigOpen) configEvent() {}

// Config holds one room's launch settings: score target, password
// gating, per-game variables, and the enabled bonus catalog (spec.md
// §4.1). It implements game.RoomConfigRef so a Game can read it without
// importing this package.
type Config struct {
	room *Room

	maxScore *int
	open     bool
	password string

	variables map[string]float64
	bonuses   map[game.BonusKind]bool

	Events *pubsub.Topic[ConfigEvent]
}

func newConfig(r *Room) *Config {
	bonuses := make(map[game.BonusKind]bool, len(game.AllBonusKinds))
	for _, k := range game.AllBonusKinds {
		bonuses[k] = true
	}
	return &Config{
		room:      r,
		open:      true,
		variables: map[string]float64{"bonusRate": 0},
		bonuses:   bonuses,
		Events:    pubsub.NewTopic[ConfigEvent](),
	}
}

// SetMaxScore overrides the score target; a nil or non-positive value
// reverts to the room-size-derived default. Always succeeds.
func (c *Config) SetMaxScore(value *int) bool {
	if value == nil || *value <= 0 {
		c.maxScore = nil
		return true
	}
	c.maxScore = value
	return true
}

// MaxScore implements game.RoomConfigRef: the configured score target, or
// a default derived from the room's current player count.
func (c *Config) MaxScore() int {
	if c.maxScore != nil {
		return *c.maxScore
	}
	return c.defaultMaxScore()
}

func (c *Config) defaultMaxScore() int {
	n := (len(c.room.players) - 1) * 10
	if n < 1 {
		n = 1
	}
	return n
}

func (c *Config) variableExists(name string) bool {
	_, ok := c.variables[name]
	return ok
}

// SetVariable clamps value to [-1, 1] and reports whether name is a known
// variable.
func (c *Config) SetVariable(name string, value float64) bool {
	if !c.variableExists(name) {
		return false
	}
	if value < -1 {
		value = -1
	} else if value > 1 {
		value = 1
	}
	c.variables[name] = value
	return true
}

// GetVariable returns a configured variable's value, or 0 if unknown.
func (c *Config) GetVariable(name string) float64 { return c.variables[name] }

// BonusRate implements game.RoomConfigRef.
func (c *Config) BonusRate() float64 { return c.GetVariable("bonusRate") }

func (c *Config) bonusExists(kind game.BonusKind) bool {
	_, ok := c.bonuses[kind]
	return ok
}

// ToggleBonus flips a bonus kind's enabled flag.
func (c *Config) ToggleBonus(kind game.BonusKind) bool {
	if !c.bonusExists(kind) {
		return false
	}
	c.bonuses[kind] = !c.bonuses[kind]
	return true
}

// SetBonus enables or disables a bonus kind directly.
func (c *Config) SetBonus(kind game.BonusKind, enabled bool) bool {
	if !c.bonusExists(kind) {
		return false
	}
	c.bonuses[kind] = enabled
	return true
}

// EnabledBonusKinds implements game.RoomConfigRef.
func (c *Config) EnabledBonusKinds() []game.BonusKind {
	var out []game.BonusKind
	for _, k := range game.AllBonusKinds {
		if c.bonuses[k] {
			out = append(out, k)
		}
	}
	return out
}

// Allow reports whether password grants entry to a closed room; always
// true for an open room.
func (c *Config) Allow(password string) bool {
	return c.open || password == c.password
}

// SetOpen toggles public/invite-only, regenerating or clearing the
// password, and publishes EvConfigOpen only on an actual change.
func (c *Config) SetOpen(open bool) bool {
	if open == c.open {
		return false
	}
	c.open = open
	if open {
		c.password = ""
	} else {
		c.password = generatePassword()
	}
	c.Events.Emit(EvConfigOpen{Open: open})
	return true
}

func generatePassword() string {
	digits := make([]byte, passwordLength)
	for i := range digits {
		digits[i] = byte('1' + rand.Intn(9))
	}
	return string(digits)
}

// ConfigSnapshot is the public serialization of a room's config (spec.md
// §4.1/§6). Password is always present (empty for an open room), matching
// `base_room_config.py::serialize` — a client must already know it to
// have joined a closed room in the first place.
type ConfigSnapshot struct {
	MaxScore  int             `json:"maxScore"`
	Variables map[string]float64 `json:"variables"`
	Bonuses   map[string]bool `json:"bonuses"`
	Open      bool            `json:"open"`
	Password  string          `json:"password"`
}

// Serialize returns the config's public snapshot.
func (c *Config) Serialize() ConfigSnapshot {
	bonuses := make(map[string]bool, len(c.bonuses))
	for k, v := range c.bonuses {
		bonuses[k.String()] = v
	}
	return ConfigSnapshot{
		MaxScore:  c.MaxScore(),
		Variables: c.variables,
		Bonuses:   bonuses,
		Open:      c.open,
		Password:  c.password,
	}
}
