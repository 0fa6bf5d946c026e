package game

// Point is a single sampled coordinate on a trail.
type Point struct {
	X, Y float64
}

// Trail is the polyline an avatar leaves behind while printing. It only
// ever grows by appending the avatar's current position; collision
// against a trail is handled by spatial segments inserted into the
// game's world, not by the Trail itself (spec.md §4.3).
type Trail struct {
	Color  string
	Radius float64

	Points []Point

	lastX, lastY *float64
}

func newTrail(color string, radius float64) *Trail {
	return &Trail{Color: color, Radius: radius}
}

// AddPoint appends a point and remembers it as the last sampled position.
func (t *Trail) AddPoint(x, y float64) {
	t.Points = append(t.Points, Point{X: x, Y: y})
	lx, ly := x, y
	t.lastX, t.lastY = &lx, &ly
}

// Last reports the most recently added point, if any.
func (t *Trail) Last() (x, y float64, ok bool) {
	if t.lastX == nil {
		return 0, 0, false
	}
	return *t.lastX, *t.lastY, true
}

// Clear empties the trail, forgetting the last point too.
func (t *Trail) Clear() {
	t.Points = nil
	t.lastX, t.lastY = nil, nil
}
