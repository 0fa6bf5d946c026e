package room

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeClient struct {
	id     uint64
	active bool
}

func (c *fakeClient) ID() uint64   { return c.id }
func (c *fakeClient) Active() bool { return c.active }

func TestRoomReadyGating(t *testing.T) {
	Convey("Given an empty room", t, func() {
		r := NewRoom("test-room")

		Convey("It is not ready with no players", func() {
			So(r.IsReady(), ShouldBeFalse)
		})

		Convey("Adding one unready player keeps it not ready", func() {
			p := r.AddPlayer(&fakeClient{id: 1, active: true}, "alice", "")
			So(r.IsReady(), ShouldBeFalse)

			Convey("Marking the sole player ready makes the room ready", func() {
				p.ToggleReady(nil)
				So(r.IsReady(), ShouldBeTrue)
			})
		})

		Convey("A room with an active game is never ready", func() {
			p := r.AddPlayer(&fakeClient{id: 1, active: true}, "alice", "")
			p.ToggleReady(nil)
			r.NewGame()
			So(r.IsReady(), ShouldBeFalse)
		})

		Convey("Two players must both be ready", func() {
			a := r.AddPlayer(&fakeClient{id: 1, active: true}, "alice", "")
			r.AddPlayer(&fakeClient{id: 2, active: true}, "bob", "")
			a.ToggleReady(nil)
			So(r.IsReady(), ShouldBeFalse)
		})
	})
}

func TestRoomNameUniqueness(t *testing.T) {
	Convey("Given a room with one player named alice", t, func() {
		r := NewRoom("test-room")
		r.AddPlayer(&fakeClient{id: 1, active: true}, "alice", "")

		Convey("alice is no longer available", func() {
			So(r.IsNameAvailable("alice"), ShouldBeFalse)
		})

		Convey("bob is still available", func() {
			So(r.IsNameAvailable("bob"), ShouldBeTrue)
		})
	})
}

func TestRoomGameLifecycle(t *testing.T) {
	Convey("Given a room with a ready player", t, func() {
		r := NewRoom("test-room")
		p := r.AddPlayer(&fakeClient{id: 1, active: true}, "alice", "")
		p.ToggleReady(nil)

		Convey("NewGame starts exactly one game and assigns an avatar", func() {
			g := r.NewGame()
			So(g, ShouldNotBeNil)
			So(r.NewGame(), ShouldBeNil)
			So(p.GetAvatar(), ShouldNotBeNil)
		})

		Convey("CloseGame drops players whose session is gone", func() {
			r.NewGame()
			p.SetClient(nil)
			r.CloseGame()
			So(r.Game, ShouldBeNil)
			So(r.Players(), ShouldBeEmpty)
		})

		Convey("CloseGame keeps connected players but clears their ready flag", func() {
			r.NewGame()
			r.CloseGame()
			So(r.Players(), ShouldHaveLength, 1)
			So(p.Ready(), ShouldBeFalse)
		})
	})
}

func TestPlayerColorValidation(t *testing.T) {
	Convey("A player with no requested color gets a random bright one", t, func() {
		p := NewPlayer(1, &fakeClient{id: 1, active: true}, "alice", "")
		So(validateColor(p.Color(), true), ShouldBeTrue)
	})

	Convey("SetColor rejects a color too dark to read", t, func() {
		p := NewPlayer(1, &fakeClient{id: 1, active: true}, "alice", "#ffffff")
		So(p.SetColor("#000000"), ShouldBeFalse)
		So(p.Color(), ShouldEqual, "#ffffff")
	})

	Convey("SetColor accepts a valid bright hex color", t, func() {
		p := NewPlayer(1, &fakeClient{id: 1, active: true}, "alice", "#ffffff")
		So(p.SetColor("#00ff00"), ShouldBeTrue)
		So(p.Color(), ShouldEqual, "#00ff00")
	})
}
