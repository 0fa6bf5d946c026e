// Package controller translates game, bonus, and room model events into
// the wire events of spec.md §6, and dispatches inbound client requests
// back into model mutations. It is grounded on the teacher's
// ClientConnection message-routing switch (cmd/gameserver/main.go) and on
// original_source/python_server/server/{game_controller,room_controller,
// rooms_controller}.py for the exact event/translation semantics.
package controller

// Server -> client event names (spec.md §6).
const (
	wireClientAdd       = "client:add"
	wireClientRemove    = "client:remove"
	wireRoomOpen        = "room:open"
	wireRoomClose       = "room:close"
	wireRoomPlayers     = "room:players"
	wireRoomGame        = "room:game"
	wireRoomConfigOpen  = "room:config:open"
	wireRoomMaster      = "room:master"
	wireRoomLaunchStart = "room:launch:start"
	wireRoomLaunchCancel = "room:launch:cancel"
	wireRoomGameStart   = "room:game:start"
	wireRoomTalk        = "room:talk"
	wireRoomJoin        = "room:join"
	wireRoomLeave       = "room:leave"
	wirePlayerColor     = "player:color"
	wirePlayerName      = "player:name"
	wirePlayerReady     = "player:ready"

	wireSpectate      = "spectate"
	wireGameStart     = "game:start"
	wireGameStop      = "game:stop"
	wireGameSpectators = "game:spectators"
	wireGameLeave     = "game:leave"
	wireRoundNew      = "round:new"
	wireRoundEnd      = "round:end"
	wireBorderless    = "borderless"
	wirePosition      = "position"
	wireAngle         = "angle"
	wireProperty      = "property"
	wirePoint         = "point"
	wireScore         = "score"
	wireScoreRound    = "score:round"
	wireDie           = "die"
	wireBonusPop      = "bonus:pop"
	wireBonusClear    = "bonus:clear"
	wireBonusStack    = "bonus:stack"
	wireClear         = "clear"
	wireEnd           = "end"
)

// Client -> server event names this package listens for (spec.md §6).
const (
	evReady             = "ready"
	evPlayerMove        = "player:move"
	evRoomFetch         = "room:fetch"
	evRoomCreate        = "room:create"
	evRoomJoin          = "room:join"
	evRoomLeave         = "room:leave"
	evRoomTalk          = "room:talk"
	evPlayerAdd         = "player:add"
	evPlayerRemove      = "player:remove"
	evPlayersClear      = "players:clear"
	evRoomReady         = "room:ready"
	evRoomColor         = "room:color"
	evRoomName          = "room:name"
	evRoomConfigOpen    = "room:config:open"
	evRoomConfigMaxScore = "room:config:max-score"
	evRoomLaunch        = "room:launch"
)
