package game

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeConfig struct {
	maxScore int
	rate     float64
	kinds    []BonusKind
}

func (c fakeConfig) MaxScore() int               { return c.maxScore }
func (c fakeConfig) BonusRate() float64          { return c.rate }
func (c fakeConfig) EnabledBonusKinds() []BonusKind { return c.kinds }

func newTestGame(n int, maxScore int) (*Game, []*Avatar) {
	var avatars []*Avatar
	for i := 0; i < n; i++ {
		a := NewAvatar(fakePlayer{id: uint64(i + 1), name: "p", color: "#ff0000"})
		a.Present = true
		avatars = append(avatars, a)
	}
	g := NewGame(avatars, fakeConfig{maxScore: maxScore})
	return g, avatars
}

func TestGameRoundLifecycle(t *testing.T) {
	Convey("Given a solo game with maxScore=1", t, func() {
		g, avatars := newTestGame(1, 1)

		Convey("NewRound marks the game started and schedules warmup", func() {
			g.NewRound(0)
			So(g.Started(), ShouldBeTrue)
			So(g.InRound(), ShouldBeTrue)
			g.launchCancel()
		})

		Convey("isWon is nil before anyone reaches maxScore", func() {
			g.NewRound(0)
			So(g.isWon(), ShouldBeNil)
			g.launchCancel()
		})

		Convey("A lone avatar reaching maxScore wins the game", func() {
			avatars[0].SetScore(1)
			won := g.isWon()
			winner, ok := won.(*Avatar)
			So(ok, ShouldBeTrue)
			So(winner, ShouldEqual, avatars[0])
		})

		Convey("With zero present avatars the game is a draw/abandon", func() {
			avatars[0].Destroy()
			won := g.isWon()
			b, ok := won.(bool)
			So(ok, ShouldBeTrue)
			So(b, ShouldBeTrue)
		})
	})

	Convey("Given a two-player game", t, func() {
		g, avatars := newTestGame(2, 10)
		g.NewRound(0)
		defer g.launchCancel()

		Convey("checkRoundEnd is a no-op while both avatars are alive", func() {
			g.checkRoundEnd()
			So(g.RoundWinner(), ShouldBeNil)
		})

		Convey("Killing one avatar ends the round and resolves scores", func() {
			score := len(g.deaths)
			g.kill(avatars[0], nil, score)
			g.checkRoundEnd()
			So(g.RoundWinner(), ShouldEqual, avatars[1])
			So(avatars[1].Score, ShouldEqual, 1)
		})

		Convey("A head-on double kill in the same tick awards no round winner", func() {
			score := len(g.deaths)
			g.kill(avatars[0], nil, score)
			g.kill(avatars[1], nil, score)
			g.checkRoundEnd()
			So(g.RoundWinner(), ShouldBeNil)
			So(avatars[0].RoundScore, ShouldEqual, 0)
			So(avatars[1].RoundScore, ShouldEqual, 0)
		})
	})
}

func TestGameBorderlessWrap(t *testing.T) {
	Convey("Given a borderless game with an avatar at the edge", t, func() {
		g, avatars := newTestGame(1, 100)
		g.NewRound(0)
		defer g.launchCancel()
		g.setBorderless(true)

		a := avatars[0]
		a.SetPosition(g.Size()-0.01, 50)
		a.SetAngle(0)
		a.SetVelocity(1000)

		Convey("Crossing the wall wraps instead of killing", func() {
			g.update(1000)
			So(a.Alive, ShouldBeTrue)
			So(a.X, ShouldBeLessThan, g.Size()/2)
		})
	})
}

func TestGameTickRateOverride(t *testing.T) {
	Convey("SetTickRate overrides and restores the default", t, func() {
		SetTickRate(5 * time.Millisecond)
		So(tickRate, ShouldEqual, 5*time.Millisecond)
		SetTickRate(0)
		So(tickRate, ShouldEqual, framerate)
	})
}
