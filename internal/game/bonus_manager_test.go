package game

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBonusProbabilityDecay(t *testing.T) {
	Convey("Given a game with 4 present avatars, one of them alive", t, func() {
		g, avatars := newTestGame(4, 10)
		for _, a := range avatars[1:] {
			a.Alive = false
		}

		Convey("GameClear's probability decays with the survivor fraction", func() {
			b := NewBonus(BonusGameClear, 0, 0)
			So(b.Probability(g), ShouldEqual, 0.2)
		})

		Convey("A non-GameClear bonus keeps its static probability", func() {
			b := NewBonus(BonusSelfSmall, 0, 0)
			So(b.Probability(g), ShouldEqual, 1.0)
		})
	})

	Convey("Given a game where fewer than half have died", t, func() {
		g, avatars := newTestGame(4, 10)
		avatars[0].Alive = false

		Convey("GameClear falls back to its base probability", func() {
			b := NewBonus(BonusGameClear, 0, 0)
			So(b.Probability(g), ShouldEqual, 1.0)
		})
	})
}

func noopSchedule(_ time.Duration, _ func()) func() { return func() {} }

func TestManagerSpawnAndPickup(t *testing.T) {
	Convey("Given a manager with one enabled kind", t, func() {
		g, avatars := newTestGame(1, 10)
		m := NewManager(g, []BonusKind{BonusSelfSmall}, 0)
		g.world.Activate()
		m.Start(noopSchedule)

		var popped []*Bonus
		m.Events.Subscribe(func(ev BonusManagerEvent) {
			if p, ok := ev.(EvBonusPop); ok {
				popped = append(popped, p.Bonus)
			}
		})

		Convey("popBonus spawns exactly one bonus and publishes it", func() {
			m.popBonus()
			So(len(m.Active()), ShouldEqual, 1)
			So(popped, ShouldHaveLength, 1)
		})

		Convey("TestCatch removes a bonus under the avatar's head and applies it", func() {
			avatar := avatars[0]
			m.popBonus()
			b := m.Active()[0]
			b.X, b.Y = avatar.X, avatar.Y
			b.body.X, b.body.Y = avatar.X, avatar.Y

			baseRadius := avatar.Radius()
			m.TestCatch(avatar)

			So(len(m.Active()), ShouldEqual, 0)
			So(avatar.Radius(), ShouldBeLessThan, baseRadius)
		})

		Convey("Clear cancels outstanding bonuses and empties the world", func() {
			m.popBonus()
			m.Clear()
			So(len(m.Active()), ShouldEqual, 0)
		})
	})
}

func TestManagerRateClamping(t *testing.T) {
	Convey("NewManager clamps spawn rate to [-1, 1]", t, func() {
		g, _ := newTestGame(1, 10)
		fast := NewManager(g, nil, 5)
		slow := NewManager(g, nil, -5)
		So(fast.poppingTimeBase, ShouldEqual, 1500*time.Millisecond)
		So(slow.poppingTimeBase, ShouldEqual, 4500*time.Millisecond)
	})
}
