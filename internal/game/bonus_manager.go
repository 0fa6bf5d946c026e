package game

import (
	"math/rand"
	"time"

	"github.com/bokeefe123/modaltron/internal/pubsub"
	"github.com/bokeefe123/modaltron/internal/spatial"
)

const bonusCap = 20

// scheduleFunc posts fn to run on the owning game's single goroutine after
// d elapses, returning a canceler. Every timer in this package goes
// through one of these instead of mutating state directly from the timer
// goroutine (spec.md §5 single-writer model).
type scheduleFunc func(d time.Duration, fn func()) (cancel func())

// Manager spawns and tracks bonus pickups for one game (spec.md §4.6). It
// keeps its own single-cell spatial world for bonus-vs-bonus bookkeeping
// (bonuses never collide with each other) and samples placement out of
// the game's own collision world so pickups never land on a trail.
type Manager struct {
	game  *Game
	kinds []BonusKind

	poppingTimeBase time.Duration

	bonuses map[int]*Bonus
	nextID  int

	world *spatial.World
	after scheduleFunc

	cancelPop func()

	Events *pubsub.Topic[BonusManagerEvent]
}

// NewManager builds a manager for game, enabled for kinds, with a spawn
// cadence tuned by rate in [-1, 1]: the default 3s base becomes 1.5s at
// +1 (twice as often) and 4.5s at -1.
func NewManager(g *Game, kinds []BonusKind, rate float64) *Manager {
	if rate < -1 {
		rate = -1
	} else if rate > 1 {
		rate = 1
	}
	base := 3000*time.Millisecond - time.Duration(1500*rate*float64(time.Millisecond))
	return &Manager{
		game:            g,
		kinds:           kinds,
		poppingTimeBase: base,
		bonuses:         make(map[int]*Bonus),
		world:           spatial.NewWorld(g.Size(), 1),
		Events:          pubsub.NewTopic[BonusManagerEvent](),
	}
}

// Start activates the manager's world and, if any kinds are enabled,
// schedules the first pop using after for all of its timers.
func (m *Manager) Start(after scheduleFunc) {
	m.after = after
	m.world.Activate()
	if len(m.kinds) > 0 {
		m.schedulePop()
	}
}

// Stop cancels any pending pop and clears all active bonuses.
func (m *Manager) Stop() {
	m.Clear()
}

// Clear cancels the pending pop timer, retires every spawned bonus's own
// expiry timer, and empties the bonus world.
func (m *Manager) Clear() {
	if m.cancelPop != nil {
		m.cancelPop()
		m.cancelPop = nil
	}
	for _, b := range m.bonuses {
		b.Clear()
	}
	m.bonuses = make(map[int]*Bonus)
	m.world.Clear()
}

func (m *Manager) schedulePop() {
	m.cancelPop = m.after(m.randomPopTime(), m.popBonus)
}

func (m *Manager) randomPopTime() time.Duration {
	return time.Duration(float64(m.poppingTimeBase) * (1 + rand.Float64()))
}

func (m *Manager) popBonus() {
	if len(m.kinds) == 0 {
		return
	}
	m.schedulePop()
	if len(m.bonuses) >= bonusCap {
		return
	}
	kind := m.randomKind()
	x, y := m.randomPosition(bonusRadius, 0.01)
	b := NewBonus(kind, x, y)
	b.ID = m.nextID
	m.nextID++
	m.add(b)
}

func (m *Manager) add(b *Bonus) {
	m.bonuses[b.ID] = b
	m.world.AddBody(b.body)
	m.Events.Emit(EvBonusPop{Bonus: b})
}

func (m *Manager) remove(b *Bonus) {
	b.Clear()
	delete(m.bonuses, b.ID)
	m.world.RemoveBody(b.body)
	m.Events.Emit(EvBonusClear{Bonus: b})
}

// TestCatch checks avatar's head against the bonus world and, on a hit,
// removes the bonus and applies its effect.
func (m *Manager) TestCatch(avatar *Avatar) {
	hit := m.world.GetBody(avatar.Body().Body)
	if hit == nil {
		return
	}
	b, ok := hit.Data.(*Bonus)
	if !ok {
		return
	}
	m.remove(b)
	b.ApplyTo(avatar, m.game, func(d time.Duration, fn func()) { m.after(d, fn) })
}

// randomPosition samples a point via the game's own world (so pickups
// avoid every avatar head and trail segment) while also checking it is
// clear of every other pending bonus in this manager's own world.
func (m *Manager) randomPosition(radius, borderFraction float64) (float64, float64) {
	gw := m.game.world
	margin := radius + borderFraction*m.game.Size()
	candidate := spatial.NewBody(gw.RandomPoint(margin), gw.RandomPoint(margin), margin, nil)

	const maxAttempts = 100
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if gw.TestBody(candidate) && m.world.TestBody(candidate) {
			break
		}
		candidate.X = gw.RandomPoint(margin)
		candidate.Y = gw.RandomPoint(margin)
	}
	return candidate.X, candidate.Y
}

func (m *Manager) randomKind() BonusKind {
	type weighted struct {
		kind BonusKind
		cum  float64
	}
	var pot []weighted
	total := 0.0
	for _, k := range m.kinds {
		p := NewBonus(k, 0, 0).Probability(m.game)
		if p <= 0 {
			continue
		}
		total += p
		pot = append(pot, weighted{kind: k, cum: total})
	}
	if len(pot) == 0 {
		return m.kinds[0]
	}
	value := rand.Float64() * total
	for _, w := range pot {
		if value < w.cum {
			return w.kind
		}
	}
	return pot[len(pot)-1].kind
}

// Active returns every bonus currently spawned and waiting to be picked
// up, in no particular order.
func (m *Manager) Active() []*Bonus {
	out := make([]*Bonus, 0, len(m.bonuses))
	for _, b := range m.bonuses {
		out = append(out, b)
	}
	return out
}

// SetSize rebuilds the manager's bonus world after the game's size
// changes (a player joining or leaving between rounds).
func (m *Manager) SetSize() {
	m.world.Clear()
	m.world = spatial.NewWorld(m.game.Size(), 1)
	m.world.Activate()
}
