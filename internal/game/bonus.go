package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/bokeefe123/modaltron/internal/spatial"
)

const bonusRadius = 3.0

// Affect selects which avatars a bonus's effects apply to when it is
// picked up (spec.md §4.6).
type Affect int

const (
	AffectSelf Affect = iota
	AffectEnemy
	AffectAll
	AffectGame
)

// BonusKind enumerates the fixed catalog of pickups a room can enable,
// replacing the original implementation's one-class-per-kind hierarchy
// with a tagged enum plus a static effect table (spec.md §9 Design Notes).
type BonusKind int

const (
	BonusSelfSmall BonusKind = iota
	BonusSelfSlow
	BonusSelfFast
	BonusSelfMaster
	BonusEnemySlow
	BonusEnemyFast
	BonusEnemyBig
	BonusEnemyInverse
	BonusEnemyStraightAngle
	BonusGameBorderless
	BonusGameClear
	BonusAllColor
)

// AllBonusKinds lists every kind in catalog order, for room config defaults.
var AllBonusKinds = []BonusKind{
	BonusSelfSmall, BonusSelfSlow, BonusSelfFast, BonusSelfMaster,
	BonusEnemySlow, BonusEnemyFast, BonusEnemyBig, BonusEnemyInverse, BonusEnemyStraightAngle,
	BonusGameBorderless, BonusGameClear,
	BonusAllColor,
}

func (k BonusKind) String() string {
	switch k {
	case BonusSelfSmall:
		return "selfSmall"
	case BonusSelfSlow:
		return "selfSlow"
	case BonusSelfFast:
		return "selfFast"
	case BonusSelfMaster:
		return "selfMaster"
	case BonusEnemySlow:
		return "enemySlow"
	case BonusEnemyFast:
		return "enemyFast"
	case BonusEnemyBig:
		return "enemyBig"
	case BonusEnemyInverse:
		return "enemyInverse"
	case BonusEnemyStraightAngle:
		return "enemyStraightAngle"
	case BonusGameBorderless:
		return "gameBorderless"
	case BonusGameClear:
		return "gameClear"
	case BonusAllColor:
		return "allColor"
	default:
		return "unknown"
	}
}

type bonusDef struct {
	Affect      Affect
	Duration    time.Duration
	Probability float64
	Effects     func(b *Bonus) []Effect
}

// Effect is one (property, value) pair a bonus feeds into a stack's
// resolve pass.
type Effect struct {
	Prop  Property
	Value interface{}
}

var bonusDefs = map[BonusKind]bonusDef{
	BonusSelfSmall: {Affect: AffectSelf, Duration: 7500 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropRadius, -1.0}} }},
	BonusSelfSlow: {Affect: AffectSelf, Duration: 4000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropVelocity, -0.5 * defaultVelocity}} }},
	BonusSelfFast: {Affect: AffectSelf, Duration: 4000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropVelocity, 0.5 * defaultVelocity}} }},
	BonusSelfMaster: {Affect: AffectSelf, Duration: 2000 * time.Millisecond, Probability: 0.1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropInvincible, 1.0}} }},
	BonusEnemySlow: {Affect: AffectEnemy, Duration: 6000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropVelocity, -0.75 * defaultVelocity}} }},
	BonusEnemyFast: {Affect: AffectEnemy, Duration: 6000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropVelocity, 0.75 * defaultVelocity}} }},
	BonusEnemyBig: {Affect: AffectEnemy, Duration: 7500 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropRadius, 1.0}} }},
	BonusEnemyInverse: {Affect: AffectEnemy, Duration: 5000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropInverse, 1.0}} }},
	BonusEnemyStraightAngle: {Affect: AffectEnemy, Duration: 5000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect {
			return []Effect{{PropDirectionInLoop, false}, {PropAngularVelocityBase, math.Pi / 2}}
		}},
	BonusGameBorderless: {Affect: AffectGame, Duration: 8000 * time.Millisecond, Probability: 1,
		Effects: func(*Bonus) []Effect { return []Effect{{PropBorderless, 1.0}} }},
	BonusGameClear: {Affect: AffectGame, Duration: 0, Probability: 1,
		Effects: func(*Bonus) []Effect { return nil }},
	BonusAllColor: {Affect: AffectAll, Duration: 8000 * time.Millisecond, Probability: 0.3,
		Effects: func(b *Bonus) []Effect { return []Effect{{PropColor, b.color}} }},
}

// Bonus is a single spawned pickup instance (spec.md §4.6).
type Bonus struct {
	ID   int
	Kind BonusKind
	X, Y float64

	color string // sampled once at spawn for BonusAllColor

	body   *spatial.Body
	target interface{} // *Avatar, []*Avatar, or *Game

	cancelTimer func()
}

// NewBonus constructs a bonus of kind at (x,y), sampling a fresh random
// color up front for BonusAllColor so every pickup of that kind differs.
func NewBonus(kind BonusKind, x, y float64) *Bonus {
	b := &Bonus{Kind: kind, X: x, Y: y}
	b.body = spatial.NewBody(x, y, bonusRadius, b)
	if kind == BonusAllColor {
		b.color = randomBrightColor()
	}
	return b
}

func (b *Bonus) def() bonusDef { return bonusDefs[b.Kind] }

// Affect reports which avatars this bonus targets.
func (b *Bonus) Affect() Affect { return b.def().Affect }

// Duration reports how long the effect lasts once picked up; zero means
// instantaneous (e.g. BonusGameClear).
func (b *Bonus) Duration() time.Duration { return b.def().Duration }

// Effects returns the (property, value) pairs this bonus contributes.
func (b *Bonus) Effects() []Effect { return b.def().Effects(b) }

// Probability returns this bonus's spawn weight given the current game
// state. Every kind but BonusGameClear returns a static constant;
// BonusGameClear keeps its base probability while fewer than half of the
// present avatars have died, then falls as the round thins out, so a
// clear becomes less likely the fewer survivors are left.
func (b *Bonus) Probability(g *Game) float64 {
	if b.Kind != BonusGameClear {
		return b.def().Probability
	}
	present := len(g.PresentAvatars())
	if present == 0 {
		return 0
	}
	alive := len(g.AliveAvatars())
	ratio := 1 - float64(alive)/float64(present)
	if ratio < 0.5 {
		return b.def().Probability
	}
	p := pythonRound((b.def().Probability-ratio)*10) / 10
	if p < 0 {
		return 0
	}
	return p
}

// pythonRound replicates Python's round() — round-half-to-even — which
// the original implementation's GameClear probability curve depends on
// (spec.md §4.5 worked example: round(2.5) == 2, not 3).
func pythonRound(x float64) float64 {
	floor := math.Floor(x)
	diff := x - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			return floor
		}
		return floor + 1
	}
}

// ApplyTo engages this bonus's effect against the avatar that picked it
// up, scheduling Off via schedule (the game's command queue) after
// Duration if it is non-zero.
func (b *Bonus) ApplyTo(avatar *Avatar, g *Game, schedule func(time.Duration, func())) {
	b.target = b.resolveTarget(avatar, g)
	if d := b.Duration(); d > 0 {
		cancelled := false
		schedule(d, func() {
			if !cancelled {
				b.off(g)
			}
		})
		b.cancelTimer = func() { cancelled = true }
	}
	b.on(g)
}

func (b *Bonus) resolveTarget(avatar *Avatar, g *Game) interface{} {
	switch b.Affect() {
	case AffectSelf:
		if avatar.Alive {
			return avatar
		}
		return nil
	case AffectEnemy:
		var others []*Avatar
		for _, a := range g.avatars {
			if a.Alive && !a.equal(avatar) {
				others = append(others, a)
			}
		}
		return others
	case AffectAll:
		return g.AliveAvatars()
	case AffectGame:
		return g
	default:
		return nil
	}
}

func (b *Bonus) on(g *Game) {
	switch t := b.target.(type) {
	case *Avatar:
		t.bonusStack.Add(b)
	case []*Avatar:
		for _, a := range t {
			a.bonusStack.Add(b)
		}
	case *Game:
		if b.Kind == BonusGameClear {
			t.ClearTrails()
			return
		}
		t.bonusStack.Add(b)
	}
}

func (b *Bonus) off(g *Game) {
	switch t := b.target.(type) {
	case *Avatar:
		t.bonusStack.Remove(b)
	case []*Avatar:
		for _, a := range t {
			a.bonusStack.Remove(b)
		}
	case *Game:
		t.bonusStack.Remove(b)
	}
}

// Clear cancels any pending expiry timer without running it, used when a
// bonus is removed by the manager (player disconnect, round reset) rather
// than by natural expiry.
func (b *Bonus) Clear() {
	if b.cancelTimer != nil {
		b.cancelTimer()
		b.cancelTimer = nil
	}
}

func randomBrightColor() string {
	for {
		r := 100 + rand.Intn(156)
		g := 100 + rand.Intn(156)
		bch := 100 + rand.Intn(156)
		if (0.4*float64(r)+0.5*float64(g)+0.3*float64(bch))/255 > 0.3 {
			return fmt.Sprintf("#%02x%02x%02x", r, g, bch)
		}
	}
}
