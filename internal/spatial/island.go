package spatial

import "math"

// Island is a single cell of the uniform grid. It tracks the bodies whose
// bounding box touches its bounds, keyed by insertion order (collision
// tie-breaks are not user-visible, matching the Collection iteration
// order of the original implementation).
type Island struct {
	ID                     string
	FromX, FromY, ToX, ToY float64

	bodies []*Body
}

func newIsland(id string, fromX, fromY, toX, toY float64) *Island {
	return &Island{ID: id, FromX: fromX, FromY: fromY, ToX: toX, ToY: toY}
}

// AddBody registers a body with this island and records the back-reference
// on the body, maintaining the bidirectional membership invariant.
func (isl *Island) AddBody(b *Body) {
	for _, existing := range isl.bodies {
		if existing == b {
			return
		}
	}
	isl.bodies = append(isl.bodies, b)
	b.addIsland(isl)
}

// RemoveBody removes a body from this island and clears its back-reference.
func (isl *Island) RemoveBody(b *Body) {
	for i, existing := range isl.bodies {
		if existing == b {
			isl.bodies = append(isl.bodies[:i], isl.bodies[i+1:]...)
			b.removeIsland(isl)
			return
		}
	}
}

// TestBody reports whether b's position is free of any colliding body in
// this island.
func (isl *Island) TestBody(b *Body) bool {
	return isl.GetBody(b) == nil
}

// GetBody returns the first body in this island that collides with b, or
// nil. Bodies outside this island's bounds never collide with anything
// in it.
func (isl *Island) GetBody(b *Body) *Body {
	if !isl.bodyInBound(b) {
		return nil
	}
	for _, other := range isl.bodies {
		if bodiesTouch(other, b) {
			return other
		}
	}
	return nil
}

func (isl *Island) bodyInBound(b *Body) bool {
	return b.X+b.Radius > isl.FromX &&
		b.X-b.Radius < isl.ToX &&
		b.Y+b.Radius > isl.FromY &&
		b.Y-b.Radius < isl.ToY
}

func bodiesTouch(a, b *Body) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	distance := math.Sqrt(dx*dx + dy*dy)
	radius := a.Radius + b.Radius
	return distance < radius && a.Match(b)
}

// Clear empties the island of all bodies (without touching their
// island-membership lists — callers clear the whole World at once).
func (isl *Island) Clear() {
	isl.bodies = nil
}

// Bodies returns the island's current members, for tests.
func (isl *Island) Bodies() []*Body {
	return append([]*Body(nil), isl.bodies...)
}
