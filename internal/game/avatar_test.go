package game

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakePlayer struct {
	id    uint64
	name  string
	color string
}

func (p fakePlayer) ID() uint64     { return p.id }
func (p fakePlayer) Name() string   { return p.name }
func (p fakePlayer) Color() string  { return p.color }

func newTestAvatar() *Avatar {
	return NewAvatar(fakePlayer{id: 1, name: "p1", color: "#ff0000"})
}

func TestAvatarPhysics(t *testing.T) {
	Convey("Given a fresh avatar", t, func() {
		a := newTestAvatar()

		Convey("It spawns alive, at rest, at (radius, radius)", func() {
			So(a.Alive, ShouldBeTrue)
			So(a.X, ShouldEqual, a.Radius())
			So(a.Y, ShouldEqual, a.Radius())
			So(a.Angle, ShouldEqual, 0)
		})

		Convey("SetAngle recomputes velocity components", func() {
			a.SetVelocity(100)
			a.SetAngle(math.Pi / 2)
			So(a.VelocityX, ShouldAlmostEqual, 0, 1e-9)
			So(a.VelocityY, ShouldBeGreaterThan, 0)
		})

		Convey("SetAngle is a no-op when the angle is unchanged", func() {
			a.SetAngle(1.23)
			before := a.VelocityX
			a.SetAngle(1.23)
			So(a.VelocityX, ShouldEqual, before)
		})

		Convey("SetVelocity clamps below half the default velocity", func() {
			a.SetVelocity(0)
			So(a.Velocity(), ShouldEqual, defaultVelocity/2)
		})

		Convey("UpdateAngularVelocity flips sign with inverse", func() {
			factor := 1.0
			a.UpdateAngularVelocity(&factor)
			normal := a.AngularVelocity

			a.SetInverse(true)
			a.UpdateAngularVelocity(&factor)
			So(a.AngularVelocity, ShouldEqual, -normal)
		})

		Convey("UpdatePosition advances along the current heading", func() {
			a.SetVelocity(100)
			a.SetAngle(0)
			x0, y0 := a.X, a.Y
			a.UpdatePosition(10)
			So(a.X, ShouldBeGreaterThan, x0)
			So(a.Y, ShouldAlmostEqual, y0, 1e-9)
		})

		Convey("setPrinting(true) then setPrinting(false) clears the trail", func() {
			a.printing = false
			a.setPrinting(true)
			a.AddPoint(a.X+1, a.Y+1, false)
			So(len(a.trail.Points), ShouldBeGreaterThan, 0)
			a.setPrinting(false)
			So(len(a.trail.Points), ShouldEqual, 0)
		})

		Convey("Die marks the avatar dead and clears its bonus stack", func() {
			a.bonusStack.Add(NewBonus(BonusSelfSmall, 0, 0))
			a.Die(nil)
			So(a.Alive, ShouldBeFalse)
			So(len(a.bonusStack.bonuses), ShouldEqual, 0)
		})

		Convey("Clear resets transient state but preserves Score", func() {
			a.SetScore(42)
			a.Die(nil)
			a.Clear()
			So(a.Alive, ShouldBeTrue)
			So(a.Score, ShouldEqual, 42)
			So(a.X, ShouldEqual, a.Radius())
		})

		Convey("Destroy retires the avatar entirely", func() {
			a.Destroy()
			So(a.Present, ShouldBeFalse)
			So(a.Alive, ShouldBeFalse)
		})
	})
}
