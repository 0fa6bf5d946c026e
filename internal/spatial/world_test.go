package spatial

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWorldCollision(t *testing.T) {
	Convey("Given an active world with a single island", t, func() {
		w := NewWorld(100, 1)
		w.Activate()

		Convey("A body added alone blocks its spot for another body", func() {
			b := NewBody(50, 50, 5, nil)
			So(w.TestBody(b), ShouldBeTrue)
			w.AddBody(b)
			other := NewBody(50, 50, 5, nil)
			So(w.TestBody(other), ShouldBeFalse)
		})

		Convey("Two non-overlapping bodies do not collide", func() {
			w.AddBody(NewBody(10, 10, 2, nil))
			far := NewBody(90, 90, 2, nil)
			So(w.TestBody(far), ShouldBeTrue)
		})

		Convey("RemoveBody clears island membership", func() {
			b := NewBody(50, 50, 5, nil)
			w.AddBody(b)
			So(b.Islands(), ShouldNotBeEmpty)
			w.RemoveBody(b)
			So(b.Islands(), ShouldBeEmpty)
			other := NewBody(50, 50, 5, nil)
			So(w.TestBody(other), ShouldBeTrue)
		})

		Convey("Clear deactivates and forgets every body", func() {
			w.AddBody(NewBody(50, 50, 5, nil))
			w.Clear()
			So(w.Active, ShouldBeFalse)
			w.Activate()
			other := NewBody(50, 50, 5, nil)
			So(w.TestBody(other), ShouldBeTrue)
		})

		Convey("An inactive world ignores AddBody", func() {
			w2 := NewWorld(100, 1)
			b := NewBody(50, 50, 5, nil)
			w2.AddBody(b)
			So(b.Islands(), ShouldBeEmpty)
		})

		Convey("A body's custom Match predicate can exempt a collision", func() {
			owner := NewBody(50, 50, 5, "owner").WithMatch(func(other *Body) bool {
				return other.Data != "exempt"
			})
			w.AddBody(owner)
			exempt := NewBody(50, 50, 5, "exempt")
			So(w.TestBody(exempt), ShouldBeTrue)
		})
	})

	Convey("Given a world spanning several islands", t, func() {
		w := NewWorld(400, 10)

		Convey("GetBoundIntersect reports the first crossed wall in x-low, x-high, y-low, y-high order", func() {
			b := NewBody(-1, 200, 2, nil)
			x, y, hit := w.GetBoundIntersect(b, 2)
			So(hit, ShouldBeTrue)
			So(x, ShouldEqual, 0)
			So(y, ShouldEqual, 200.0)

			b2 := NewBody(401, 200, 2, nil)
			x2, _, hit2 := w.GetBoundIntersect(b2, 2)
			So(hit2, ShouldBeTrue)
			So(x2, ShouldEqual, w.Size)

			inbounds := NewBody(200, 200, 2, nil)
			_, _, hit3 := w.GetBoundIntersect(inbounds, 2)
			So(hit3, ShouldBeFalse)
		})

		Convey("GetOpposite wraps a wall point to the facing wall", func() {
			x, y := w.GetOpposite(0, 123)
			So(x, ShouldEqual, w.Size)
			So(y, ShouldEqual, 123.0)

			x2, y2 := w.GetOpposite(77, w.Size)
			So(x2, ShouldEqual, 77.0)
			So(y2, ShouldEqual, 0)
		})

		Convey("GetRandomPosition stays within the requested margin of the walls", func() {
			for i := 0; i < 50; i++ {
				x, y := w.GetRandomPosition(5, 0.1)
				margin := 5 + 0.1*w.Size
				So(x, ShouldBeBetweenOrEqual, margin-1e-9, w.Size-margin+1e-9)
				So(y, ShouldBeBetweenOrEqual, margin-1e-9, w.Size-margin+1e-9)
			}
		})

		Convey("GetRandomDirection returns an angle in [0, 2π)", func() {
			w.Activate()
			for i := 0; i < 20; i++ {
				angle := w.GetRandomDirection(5, 200, 0.5)
				So(angle, ShouldBeGreaterThanOrEqualTo, 0)
				So(angle, ShouldBeLessThan, 2*math.Pi)
			}
		})
	})
}
