package game

import (
	"time"

	"github.com/bokeefe123/modaltron/internal/spatial"
)

const oldAge = 2000 * time.Millisecond

// AvatarBody wraps a spatial.Body for a single trail segment dropped by an
// avatar. num is the segment's sequence number within that avatar's trail;
// an avatar never collides with its own most recent trailLatency segments,
// since those sit directly under its head (spec.md §4.3 "self-collision
// exemption").
type AvatarBody struct {
	*spatial.Body
	avatar *Avatar
	num    int
	birth  time.Time
}

// newAvatarBody consumes the avatar's next trail sequence number. Called
// once for the persistent head body and again for every trail segment
// dropped while printing.
func newAvatarBody(x, y float64, avatar *Avatar) *AvatarBody {
	ab := &AvatarBody{avatar: avatar, num: avatar.bodyCount, birth: time.Now()}
	avatar.bodyCount++
	ab.Body = spatial.NewBody(x, y, avatar.radius, ab).WithMatch(ab.match)
	return ab
}

// match implements the self-collision exemption: a trail segment dropped
// by this same avatar is only solid once it is more than trailLatency
// segments old relative to the probing body.
func (ab *AvatarBody) match(other *spatial.Body) bool {
	od, ok := other.Data.(*AvatarBody)
	if !ok {
		return true
	}
	if od.avatar != ab.avatar {
		return true
	}
	return od.num-ab.num > ab.avatar.trailLatency
}

// IsOld reports whether this segment was dropped long enough ago to count
// as a "stale" kill for scoring purposes (spec.md §4.7).
func (ab *AvatarBody) IsOld() bool {
	return time.Since(ab.birth) > oldAge
}
