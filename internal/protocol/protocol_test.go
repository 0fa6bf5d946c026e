package protocol

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompress(t *testing.T) {
	Convey("Compress/Decompress round-trip through the fixed-point scale", t, func() {
		So(Compress(1.0), ShouldEqual, 100)
		So(Decompress(100), ShouldEqual, 1.0)
		So(Decompress(101), ShouldEqual, 1.01)
	})
}

func TestDecodeFrame(t *testing.T) {
	Convey("A 2-element message decodes as a plain event", t, func() {
		msgs, err := DecodeFrame([]byte(`[["ready", true]]`))
		So(err, ShouldBeNil)
		So(msgs, ShouldHaveLength, 1)
		So(msgs[0].Name, ShouldEqual, "ready")
		So(msgs[0].HasCallID, ShouldBeFalse)

		var payload bool
		So(json.Unmarshal(msgs[0].Payload, &payload), ShouldBeNil)
		So(payload, ShouldBeTrue)
	})

	Convey("A 3-element message decodes with a callId", t, func() {
		msgs, err := DecodeFrame([]byte(`[["room:create", {"name":"x"}, 7]]`))
		So(err, ShouldBeNil)
		So(msgs[0].HasCallID, ShouldBeTrue)
		So(msgs[0].CallID, ShouldEqual, 7)
	})

	Convey("A numeric head decodes as a reply", t, func() {
		msgs, err := DecodeFrame([]byte(`[[7, {"success":true}]]`))
		So(err, ShouldBeNil)
		So(msgs[0].IsReply, ShouldBeTrue)
		So(msgs[0].CallID, ShouldEqual, 7)
	})

	Convey("Multiple messages in one frame decode in order", t, func() {
		msgs, err := DecodeFrame([]byte(`[["a"],["b"],["c"]]`))
		So(err, ShouldBeNil)
		So(msgs, ShouldHaveLength, 3)
		So(msgs[0].Name, ShouldEqual, "a")
		So(msgs[2].Name, ShouldEqual, "c")
	})

	Convey("Invalid JSON fails", t, func() {
		_, err := DecodeFrame([]byte(`not json`))
		So(err, ShouldNotBeNil)
	})

	Convey("An unrecognized message head fails", t, func() {
		_, err := DecodeFrame([]byte(`[[null]]`))
		So(err, ShouldNotBeNil)
	})
}

func TestEncodeFrame(t *testing.T) {
	Convey("Event with no data encodes as a single-element array", t, func() {
		data, err := EncodeFrame([]OutMessage{Event("ping", nil)})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `[["ping"]]`)
	})

	Convey("Event with data encodes as a 2-element array", t, func() {
		data, err := EncodeFrame([]OutMessage{Event("latency", 42)})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `[["latency",42]]`)
	})

	Convey("Request with a callId encodes as a 3-element array", t, func() {
		data, err := EncodeFrame([]OutMessage{Request("room:fetch", nil, 3)})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `[["room:fetch",null,3]]`)
	})

	Convey("Reply encodes as [callId, result]", t, func() {
		data, err := EncodeFrame([]OutMessage{Reply(3, map[string]bool{"success": true})})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `[[3,{"success":true}]]`)
	})

	Convey("A batch preserves enqueue order", t, func() {
		data, err := EncodeFrame([]OutMessage{Event("a", nil), Event("b", nil)})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `[["a"],["b"]]`)
	})
}
