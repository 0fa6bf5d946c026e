// Package spatial implements the uniform-grid broad-phase collision index
// (World / Island / Body) that backs both the per-game trail collision
// world and each game's independent bonus-placement world.
package spatial

// Body is a circular collision primitive. Trail segments, avatar heads and
// bonuses are all represented as a Body inserted into a World.
type Body struct {
	X, Y   float64
	Radius float64
	Data   interface{}

	id       int64
	islands  []*Island
	matchFn  func(other *Body) bool
}

// NewBody creates a plain body that collides with everything it touches.
func NewBody(x, y, radius float64, data interface{}) *Body {
	return &Body{X: x, Y: y, Radius: radius, Data: data}
}

// Match reports whether this body should be considered colliding with
// other, given that their circles already overlap. The zero value always
// collides; WithMatch overrides this per body (used by AvatarBody below).
func (b *Body) Match(other *Body) bool {
	if b.matchFn != nil {
		return b.matchFn(other)
	}
	return true
}

// WithMatch installs a custom collision-exemption predicate on the body.
func (b *Body) WithMatch(fn func(other *Body) bool) *Body {
	b.matchFn = fn
	return b
}

func (b *Body) addIsland(isl *Island) {
	b.islands = append(b.islands, isl)
}

func (b *Body) removeIsland(isl *Island) {
	for i, other := range b.islands {
		if other == isl {
			b.islands = append(b.islands[:i], b.islands[i+1:]...)
			return
		}
	}
}

// Islands returns the islands this body is currently a member of, for
// testing the bidirectional membership invariant.
func (b *Body) Islands() []*Island {
	return append([]*Island(nil), b.islands...)
}
