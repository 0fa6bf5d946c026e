package game

import (
	"math"

	"github.com/bokeefe123/modaltron/internal/pubsub"
)

const (
	defaultVelocity            = 16.0
	defaultAngularVelocityBase = 2.8 / 1000
	defaultRadius              = 0.6
	defaultTrailLatency        = 3
)

// Avatar is a single player's moving circle for the lifetime of one game
// (spec.md §4.2). It owns a Trail, a PrintManager and a BonusStack, and
// publishes every state change on Events so the game controller can
// translate them into wire messages without reaching into its internals.
type Avatar struct {
	player PlayerRef

	X, Y            float64
	Angle           float64
	VelocityX       float64
	VelocityY       float64
	AngularVelocity float64
	Alive           bool
	Ready           bool
	Present         bool

	Score      int
	RoundScore int

	printing bool

	velocity            float64
	radius              float64
	angularVelocityBase float64
	inverse             bool
	invincible          bool
	directionInLoop     bool
	trailLatency        int
	color               string

	bodyCount int
	body      *AvatarBody
	trail     *Trail
	bonusStack *BonusStack
	printMgr  *PrintManager

	Events *pubsub.Topic[AvatarEvent]
}

// NewAvatar constructs an avatar bound to player, at rest at the origin
// until Clear or SetPosition places it.
func NewAvatar(player PlayerRef) *Avatar {
	a := &Avatar{
		player: player,
		color:  player.Color(),
		Events: pubsub.NewTopic[AvatarEvent](),
	}
	a.resetFields()
	a.body = newAvatarBody(a.X, a.Y, a)
	a.trail = newTrail(a.color, a.radius)
	a.printMgr = newPrintManager(a)
	a.bonusStack = newBonusStack(a)
	return a
}

// Player returns the owning player's non-owning reference.
func (a *Avatar) Player() PlayerRef { return a.player }

// Body returns the avatar's current head collision primitive.
func (a *Avatar) Body() *AvatarBody { return a.body }

// Trail returns the avatar's accumulated trail points.
func (a *Avatar) Trail() *Trail { return a.trail }

// BonusStackEvents returns the topic the avatar's bonus stack publishes
// add/remove changes on, used by the game controller to emit `bonus:stack`
// without reaching into the avatar's internals.
func (a *Avatar) BonusStackEvents() *pubsub.Topic[BonusStackEvent] { return a.bonusStack.Events }

// Radius returns the avatar's current collision radius.
func (a *Avatar) Radius() float64 { return a.radius }

// Velocity returns the avatar's current scalar speed.
func (a *Avatar) Velocity() float64 { return a.velocity }

// Printing reports whether the avatar is currently laying trail.
func (a *Avatar) Printing() bool { return a.printing }

// Invincible reports whether the avatar currently ignores collisions.
func (a *Avatar) Invincible() bool { return a.invincible }

func (a *Avatar) equal(other *Avatar) bool { return a == other }

func (a *Avatar) getDistance(x, y float64) float64 {
	dx := a.X - x
	dy := a.Y - y
	return math.Hypot(dx, dy)
}

// SetPosition moves the avatar and re-anchors its head body at the new
// location, publishing an EvPosition.
func (a *Avatar) SetPosition(x, y float64) {
	a.X, a.Y = x, y
	a.body.X, a.body.Y = x, y
	a.body.num = a.bodyCount
	a.Events.Emit(EvPosition{Avatar: a})
}

// SetAngle updates the facing angle, recomputing velocity components,
// only if it actually changed.
func (a *Avatar) SetAngle(angle float64) {
	if angle == a.Angle {
		return
	}
	a.Angle = angle
	a.updateVelocities()
	a.Events.Emit(EvAngle{Avatar: a})
}

// SetAngularVelocity sets the raw angular velocity (radians/ms).
func (a *Avatar) SetAngularVelocity(v float64) { a.AngularVelocity = v }

// UpdateAngularVelocity re-derives angular velocity from factor (the sign
// of the turn: -1, 0 or 1) and the current angular velocity base. Passing
// nil factor re-derives from the current sign instead of changing it.
func (a *Avatar) UpdateAngularVelocity(factor *float64) {
	if factor == nil {
		if a.AngularVelocity == 0 {
			return
		}
		sign := 1.0
		if a.AngularVelocity < 0 {
			sign = -1.0
		}
		if a.inverse {
			sign = -sign
		}
		a.UpdateAngularVelocity(&sign)
		return
	}
	sign := -1.0
	if !a.inverse {
		sign = 1.0
	}
	a.SetAngularVelocity(*factor * a.angularVelocityBase * sign)
}

// UpdateAngle advances Angle by one tick, per spec.md §4.2's loop-vs-turn
// distinction: when directionInLoop, angle keeps turning every tick;
// otherwise it turns once then the angular velocity is zeroed.
func (a *Avatar) UpdateAngle(step float64) {
	if a.directionInLoop {
		a.SetAngle(a.Angle + a.AngularVelocity*step)
		return
	}
	a.SetAngle(a.Angle + a.AngularVelocity)
	zero := 0.0
	a.UpdateAngularVelocity(&zero)
}

// UpdatePosition advances the avatar along its current velocity vector.
func (a *Avatar) UpdatePosition(step float64) {
	a.SetPosition(a.X+a.VelocityX*step, a.Y+a.VelocityY*step)
}

// SetVelocity clamps v to at least half the default velocity and, if
// changed, recomputes the velocity components and angular velocity base.
func (a *Avatar) SetVelocity(v float64) {
	if v < defaultVelocity/2 {
		v = defaultVelocity / 2
	}
	if v == a.velocity {
		return
	}
	a.velocity = v
	a.updateVelocities()
	a.Events.Emit(EvProperty{Avatar: a, Property: PropVelocity, Value: v})
}

func (a *Avatar) updateVelocities() {
	scaled := a.velocity / 1000
	a.VelocityX = math.Cos(a.Angle) * scaled
	a.VelocityY = math.Sin(a.Angle) * scaled
	a.updateAngularVelocityBase()
}

// updateAngularVelocityBase re-derives the turn-rate scaling used while
// directionInLoop is set, matching the tuned curve of the original
// simulation: faster avatars turn relatively more slowly.
func (a *Avatar) updateAngularVelocityBase() {
	if !a.directionInLoop {
		return
	}
	ratio := a.velocity / defaultVelocity
	a.angularVelocityBase = ratio*defaultAngularVelocityBase + math.Log(1/ratio)/1000
	a.UpdateAngularVelocity(nil)
}

// SetRadius clamps r to a minimum and, if changed, applies it.
func (a *Avatar) SetRadius(r float64) {
	if r < defaultRadius/8 {
		r = defaultRadius / 8
	}
	if r == a.radius {
		return
	}
	a.radius = r
	a.body.Radius = r
	a.Events.Emit(EvProperty{Avatar: a, Property: PropRadius, Value: r})
}

// SetInverse flips the turn direction, re-deriving angular velocity only
// if the flag actually changed.
func (a *Avatar) SetInverse(inverse bool) {
	changed := inverse != a.inverse
	a.inverse = inverse
	if changed {
		a.UpdateAngularVelocity(nil)
	}
	a.Events.Emit(EvProperty{Avatar: a, Property: PropInverse, Value: inverse})
}

// SetInvincible toggles collision immunity.
func (a *Avatar) SetInvincible(invincible bool) {
	a.invincible = invincible
	a.Events.Emit(EvProperty{Avatar: a, Property: PropInvincible, Value: invincible})
}

// SetColor overrides the avatar's render color (e.g. the all-color bonus).
func (a *Avatar) SetColor(color string) {
	a.color = color
	a.trail.Color = color
	a.Events.Emit(EvProperty{Avatar: a, Property: PropColor, Value: color})
}

// setDirectionInLoop and setAngularVelocityBase back the two remaining
// bonus-stack properties that are plain field writes in the original.
func (a *Avatar) setDirectionInLoop(v bool)        { a.directionInLoop = v }
func (a *Avatar) setAngularVelocityBase(v float64) { a.angularVelocityBase = v }

// setPrinting updates the printing flag, drops a final point at the
// transition, and clears the trail once printing stops — called only by
// PrintManager and BonusStack, never directly.
func (a *Avatar) setPrinting(printing bool) {
	if printing == a.printing {
		return
	}
	a.printing = printing
	a.AddPoint(a.X, a.Y, false)
	if !a.printing {
		a.trail.Clear()
	}
	a.Events.Emit(EvProperty{Avatar: a, Property: PropPrinting, Value: printing})
}

// AddPoint records a trail point and publishes it for the game's
// collision world to pick up.
func (a *Avatar) AddPoint(x, y float64, important bool) {
	a.trail.AddPoint(x, y)
	a.Events.Emit(EvPoint{Avatar: a, X: x, Y: y, Important: important})
}

// IsTimeToDraw reports whether the avatar has moved far enough since its
// last trail point to warrant dropping a new one.
func (a *Avatar) IsTimeToDraw() bool {
	lx, ly, ok := a.trail.Last()
	if !ok {
		return true
	}
	return a.getDistance(lx, ly) > a.radius
}

// Update advances the avatar by one simulation step, run only while
// alive (spec.md §4.8's per-tick avatar update).
func (a *Avatar) Update(step float64) {
	if !a.Alive {
		return
	}
	a.UpdateAngle(step)
	a.UpdatePosition(step)
	if a.printing && a.IsTimeToDraw() {
		a.AddPoint(a.X, a.Y, false)
	}
}

// AddScore adds to the round-in-progress score.
func (a *Avatar) AddScore(delta int) {
	a.RoundScore += delta
	a.Events.Emit(EvRoundScore{Avatar: a})
}

// ResolveScore commits the round score into the running total.
func (a *Avatar) ResolveScore() {
	a.Score += a.RoundScore
	a.RoundScore = 0
	a.Events.Emit(EvScore{Avatar: a})
}

// SetScore overwrites the running total directly (used by tests/replay).
func (a *Avatar) SetScore(score int) {
	a.Score = score
	a.Events.Emit(EvScore{Avatar: a})
}

// Die marks the avatar dead, drops a final trail point at the death
// location, and publishes EvDie naming killer (nil for a border kill).
func (a *Avatar) Die(killer *AvatarBody) {
	a.bonusStack.Clear()
	a.Alive = false
	a.AddPoint(a.X, a.Y, false)
	a.printMgr.Stop()

	var old *bool
	var killerAvatar *Avatar
	if killer != nil {
		o := killer.IsOld()
		old = &o
		killerAvatar = killer.avatar
	}
	a.Events.Emit(EvDie{Avatar: a, Killer: killerAvatar, Old: old})
}

func (a *Avatar) resetFields() {
	a.radius = defaultRadius
	a.X, a.Y = a.radius, a.radius
	a.Angle = 0
	a.VelocityX, a.VelocityY = 0, 0
	a.AngularVelocity = 0
	a.RoundScore = 0
	a.velocity = defaultVelocity
	a.Alive = true
	a.printing = false
	a.color = a.player.Color()
	a.inverse = false
	a.invincible = false
	a.directionInLoop = true
	a.trailLatency = defaultTrailLatency
	a.angularVelocityBase = defaultAngularVelocityBase
}

// Clear resets the avatar to its spawn defaults ahead of a new round,
// leaving Score untouched (spec.md §4.7: only round-scoped state resets).
func (a *Avatar) Clear() {
	a.resetFields()
	a.printMgr.Stop()
	a.bodyCount = 0
	a.trail = newTrail(a.color, a.radius)
	a.body = newAvatarBody(a.X, a.Y, a)
}

// Destroy fully retires the avatar when its player leaves the room.
func (a *Avatar) Destroy() {
	a.Clear()
	a.Present = false
	a.Alive = false
}

// AvatarSnapshot is the public serialization of an avatar's identity and
// score, independent of live position (spec.md §6 wire format).
type AvatarSnapshot struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Score int    `json:"score"`
}

// Serialize returns the avatar's identity/score snapshot.
func (a *Avatar) Serialize() AvatarSnapshot {
	return AvatarSnapshot{ID: a.player.ID(), Name: a.player.Name(), Color: a.color, Score: a.Score}
}
