package spatial

import (
	"fmt"
	"math"
	"math/rand"
)

// IslandGridSize is the default island cell side, in world units.
const IslandGridSize = 40.0

// World is the uniform-grid broad-phase spatial index described in
// spec.md §4.1. A body of radius r at (x,y) is inserted into every island
// whose cell contains one of the four corner points (x±r, y±r) — between 1
// and 4 islands.
type World struct {
	Size       float64
	IslandSize float64
	Active     bool

	islands    map[string]*Island
	islandsN   int
	bodyCount  int64
}

// NewWorld builds a world of the given size. islandCount, when 0, is
// derived as round(size / IslandGridSize); the bonus manager's own world
// passes 1 to get a single cell (bonuses never collide with each other).
func NewWorld(size float64, islandCount int) *World {
	if islandCount <= 0 {
		islandCount = int(math.Round(size / IslandGridSize))
		if islandCount < 1 {
			islandCount = 1
		}
	}

	w := &World{
		Size:       size,
		IslandSize: size / float64(islandCount),
		islandsN:   islandCount,
		islands:    make(map[string]*Island, islandCount*islandCount),
	}

	for y := islandCount - 1; y >= 0; y-- {
		for x := islandCount - 1; x >= 0; x-- {
			id := fmt.Sprintf("%d:%d", x, y)
			w.islands[id] = newIsland(
				id,
				float64(x)*w.IslandSize,
				float64(y)*w.IslandSize,
				float64(x+1)*w.IslandSize,
				float64(y+1)*w.IslandSize,
			)
		}
	}
	return w
}

func (w *World) islandByPoint(px, py float64) *Island {
	x := int(px / w.IslandSize)
	y := int(py / w.IslandSize)
	return w.islands[fmt.Sprintf("%d:%d", x, y)]
}

// Activate enables collision bookkeeping; bodies are only tracked while
// the world is active.
func (w *World) Activate() { w.Active = true }

// Clear deactivates the world and empties every island. Per spec §4.1,
// the world's contents exist iff Active — Clear is both "stop tracking"
// and "forget everything".
func (w *World) Clear() {
	w.Active = false
	w.bodyCount = 0
	for _, isl := range w.islands {
		isl.Clear()
	}
}

// AddBody inserts a body into every island whose cell contains one of its
// four bounding corners. A no-op while the world is inactive.
func (w *World) AddBody(b *Body) {
	if !w.Active {
		return
	}
	b.id = w.bodyCount
	w.bodyCount++

	w.addBodyAtPoint(b, b.X-b.Radius, b.Y-b.Radius)
	w.addBodyAtPoint(b, b.X+b.Radius, b.Y-b.Radius)
	w.addBodyAtPoint(b, b.X-b.Radius, b.Y+b.Radius)
	w.addBodyAtPoint(b, b.X+b.Radius, b.Y+b.Radius)
}

func (w *World) addBodyAtPoint(b *Body, x, y float64) {
	if isl := w.islandByPoint(x, y); isl != nil {
		isl.AddBody(b)
	}
}

// RemoveBody removes a body from exactly the islands it is a member of.
func (w *World) RemoveBody(b *Body) {
	if !w.Active {
		return
	}
	for _, isl := range b.Islands() {
		isl.RemoveBody(b)
	}
}

// GetBody probes the four corner islands of b and returns the first
// colliding body found, or nil.
func (w *World) GetBody(b *Body) *Body {
	if found := w.getBodyAtPoint(b, b.X-b.Radius, b.Y-b.Radius); found != nil {
		return found
	}
	if found := w.getBodyAtPoint(b, b.X+b.Radius, b.Y-b.Radius); found != nil {
		return found
	}
	if found := w.getBodyAtPoint(b, b.X-b.Radius, b.Y+b.Radius); found != nil {
		return found
	}
	return w.getBodyAtPoint(b, b.X+b.Radius, b.Y+b.Radius)
}

func (w *World) getBodyAtPoint(b *Body, x, y float64) *Body {
	isl := w.islandByPoint(x, y)
	if isl == nil {
		return nil
	}
	return isl.GetBody(b)
}

// TestBody reports whether b's position is free in all four corner
// islands; an island missing from the grid (out of bounds) counts as
// occupied, per spec §4.1.
func (w *World) TestBody(b *Body) bool {
	return w.testBodyAtPoint(b, b.X-b.Radius, b.Y-b.Radius) &&
		w.testBodyAtPoint(b, b.X+b.Radius, b.Y-b.Radius) &&
		w.testBodyAtPoint(b, b.X-b.Radius, b.Y+b.Radius) &&
		w.testBodyAtPoint(b, b.X+b.Radius, b.Y+b.Radius)
}

func (w *World) testBodyAtPoint(b *Body, x, y float64) bool {
	isl := w.islandByPoint(x, y)
	if isl == nil {
		return false
	}
	return isl.TestBody(b)
}

// RandomPoint samples a coordinate uniformly inside [margin, size-margin].
func (w *World) RandomPoint(margin float64) float64 {
	return margin + rand.Float64()*(w.Size-margin*2)
}

// GetRandomPosition samples a free position for a body of the given
// radius, staying borderFraction*size away from the walls. It caps at
// 1000 attempts and — per spec §7 error kind 6 / §9 Open Question 2 —
// intentionally returns the last sample tried even if it still collides,
// rather than failing the round start.
func (w *World) GetRandomPosition(radius, borderFraction float64) (float64, float64) {
	margin := radius + borderFraction*w.Size
	b := NewBody(w.RandomPoint(margin), w.RandomPoint(margin), margin, nil)

	const maxAttempts = 1000
	for attempt := 0; !w.TestBody(b) && attempt < maxAttempts; attempt++ {
		b.X = w.RandomPoint(margin)
		b.Y = w.RandomPoint(margin)
	}
	return b.X, b.Y
}

// GetRandomDirection samples an angle (radians) from (x,y) that does not
// point directly at a nearby wall within toleranceFraction*size, capping
// at 100 attempts.
func (w *World) GetRandomDirection(x, y, toleranceFraction float64) float64 {
	margin := toleranceFraction * w.Size
	direction := randomAngle()

	const maxAttempts = 100
	for attempt := 0; !w.directionValid(direction, x, y, margin) && attempt < maxAttempts; attempt++ {
		direction = randomAngle()
	}
	return direction
}

func randomAngle() float64 {
	return rand.Float64() * math.Pi * 2
}

func (w *World) directionValid(angle, x, y, margin float64) bool {
	quarter := math.Pi / 2

	for i := 0; i < 4; i++ {
		from := quarter * float64(i)
		to := quarter * float64(i+1)

		if angle < from || angle >= to {
			continue
		}
		if hypotenuse(angle-from, w.distanceToBorder(i, x, y)) < margin {
			return false
		}
		next := (i + 1) % 4
		if hypotenuse(to-angle, w.distanceToBorder(next, x, y)) < margin {
			return false
		}
		return true
	}
	return true
}

func hypotenuse(angle, adjacent float64) float64 {
	cos := math.Cos(angle)
	if math.Abs(cos) < 0.001 {
		return math.Inf(1)
	}
	return adjacent / cos
}

func (w *World) distanceToBorder(border int, x, y float64) float64 {
	switch border {
	case 0:
		return w.Size - x
	case 1:
		return w.Size - y
	case 2:
		return x
	case 3:
		return y
	default:
		return 0
	}
}

// GetBoundIntersect returns the projected point on the nearest wall once
// body (inflated by margin) has crossed it, checking x-low, x-high,
// y-low, y-high in that order; nil when still inbounds.
func (w *World) GetBoundIntersect(b *Body, margin float64) (float64, float64, bool) {
	if b.X-margin < 0 {
		return 0, b.Y, true
	}
	if b.X+margin > w.Size {
		return w.Size, b.Y, true
	}
	if b.Y-margin < 0 {
		return b.X, 0, true
	}
	if b.Y+margin > w.Size {
		return b.X, w.Size, true
	}
	return 0, 0, false
}

// GetOpposite wraps a wall-touching point to the opposite wall, for
// borderless mode.
func (w *World) GetOpposite(x, y float64) (float64, float64) {
	switch {
	case x == 0:
		return w.Size, y
	case x == w.Size:
		return 0, y
	case y == 0:
		return x, w.Size
	case y == w.Size:
		return x, 0
	default:
		return x, y
	}
}
