package room

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
)

var hexColorRE = regexp.MustCompile(`^#([a-fA-F0-9]{2}){3}$`)

// validateColor checks a "#rrggbb" literal and, when bright is true, also
// rejects colors too dark to read against the game's dark background
// using the YIQ perceived-brightness formula (spec.md §4.2, matching
// `base_player.py::validate_color`).
func validateColor(color string, bright bool) bool {
	if !hexColorRE.MatchString(color) {
		return false
	}
	if !bright {
		return true
	}
	r, g, b := hexChannels(color)
	return (0.4*float64(r)+0.5*float64(g)+0.3*float64(b))/255 > 0.3
}

func hexChannels(color string) (r, g, b int) {
	rv, _ := strconv.ParseInt(color[1:3], 16, 32)
	gv, _ := strconv.ParseInt(color[3:5], 16, 32)
	bv, _ := strconv.ParseInt(color[5:7], 16, 32)
	return int(rv), int(gv), int(bv)
}

// randomColor samples a YIQ-bright color, retrying until one passes.
func randomColor() string {
	for {
		r, g, b := rand.Intn(256), rand.Intn(256), rand.Intn(256)
		c := fmt.Sprintf("#%02x%02x%02x", r, g, b)
		if validateColor(c, true) {
			return c
		}
	}
}
