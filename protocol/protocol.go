package protocol

import "encoding/json"

// Client -> Server message types
const (
	MsgInput       = "input"
	MsgRestart     = "restart"
	MsgAddBot      = "add_bot"
	MsgSelectTier  = "select_tier"
	MsgCustomize   = "customize"
	MsgCreateRoom  = "create_room"
	MsgJoinRoom    = "join_room"
	MsgLeaveRoom   = "leave_room"
	MsgFindMatch   = "find_match"
	MsgCancelMatch = "cancel_match"
)

// Server -> Client message types
const (
	MsgConnected          = "connected"
	MsgWaiting            = "waiting"
	MsgRoomCreated        = "room_created"
	MsgRoomJoined         = "room_joined"
	MsgRoomError          = "room_error"
	MsgMatchmakingStatus  = "matchmaking_status"
	MsgMatchFound         = "match_found"
	MsgGameStart          = "game_start"
	MsgGameState          = "game_state" // sent as a msgpack binary frame
	MsgGameOver           = "game_over"
	MsgPlayerDisconnected = "player_disconnected"
	MsgBotAdded           = "bot_added"
	MsgError              = "error"
)

// Matchmaking statuses
const (
	StatusSearching = "searching"
	StatusCancelled = "cancelled"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages. The payload stays raw until the
// type is known.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// InputMsg is the latest control state of a player. Angle, when present,
// asks the car to rotate toward it instead of steering left/right.
type InputMsg struct {
	Forward   bool     `json:"up"`
	Backward  bool     `json:"down"`
	Left      bool     `json:"left"`
	Right     bool     `json:"right"`
	Boost     bool     `json:"boost"`
	FireHeavy bool     `json:"fire"`
	FireLight bool     `json:"alt"`
	Angle     *float64 `json:"angle,omitempty"`
}

// AddBotMsg asks for an AI opponent. Empty fields pick defaults.
type AddBotMsg struct {
	Difficulty  string `json:"difficulty,omitempty"`
	Personality string `json:"personality,omitempty"`
	Tier        string `json:"tier,omitempty"`
}

type SelectTierMsg struct {
	Tier string `json:"tier"`
}

// CustomizeMsg carries display settings. The server only passes them
// through to snapshots.
type CustomizeMsg struct {
	Name     string            `json:"name,omitempty"`
	Cosmetic map[string]string `json:"cosmetic,omitempty"`
}

type CreateRoomMsg struct {
	Name string `json:"name,omitempty"`
	Tier string `json:"tier,omitempty"`
}

type JoinRoomMsg struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Tier string `json:"tier,omitempty"`
}

type FindMatchMsg struct {
	Name string `json:"name,omitempty"`
	Tier string `json:"tier,omitempty"`
}

// ConnectedMsg greets a new socket with its connection id
type ConnectedMsg struct {
	PlayerID string `json:"playerId"`
}

type WaitingMsg struct {
	Message string `json:"message"`
}

type RoomCreatedMsg struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

type RoomJoinedMsg struct {
	Code     string `json:"code"`
	Count    int    `json:"count"`
	PlayerID string `json:"playerId"`
}

type RoomErrorMsg struct {
	Message string `json:"message"`
}

type MatchmakingStatusMsg struct {
	Status   string `json:"status"`
	Position int    `json:"position,omitempty"`
}

type MatchFoundMsg struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

// GameOverMsg announces the single decision of a match. Winner is empty on
// a draw.
type GameOverMsg struct {
	Winner string `json:"winner,omitempty"`
	Draw   bool   `json:"draw,omitempty"`
	State  any    `json:"state"`
}

type PlayerDisconnectedMsg struct {
	PlayerID string `json:"playerId"`
}

type BotAddedMsg struct {
	BotID       string `json:"botId"`
	Difficulty  string `json:"difficulty"`
	Personality string `json:"personality"`
}

type ErrorMsg struct {
	Message string `json:"message"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	Code    string   `json:"code"`
	Players []string `json:"players"`
	Status  string   `json:"status"`
	HasBot  bool     `json:"bot,omitempty"`
	Failed  bool     `json:"failed,omitempty"`
}
