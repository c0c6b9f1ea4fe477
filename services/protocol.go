package services

import "encoding/json"

// ProtocolVersion is stamped on every envelope sent over the wire.
const ProtocolVersion = 1

// Outbound event types (server -> client).
const (
	EventQuestion         = "question"
	EventTimeLeft         = "time-left"
	EventAllAnswered      = "all-answered"
	EventLeaderboard      = "leaderboard"
	EventFinalLeaderboard = "final-leaderboard"
	EventQuizEnd          = "quiz-end"
	EventLobbyUpdate      = "lobby-update"
	EventJoined           = "joined"
	EventAnswerAccepted   = "answer-accepted"
	EventRoomError        = "room-error"
	EventRoomFull         = "room-full"
	EventKicked           = "kicked"
	EventRoomState        = "room-state"
	EventRoomClosed       = "room-closed"
	EventPong             = "pong"
)

// Inbound command types (client -> server).
const (
	CmdJoinRoom            = "join-room"
	CmdAnswer              = "answer"
	CmdRequestNextQuestion = "request-next-question"
	CmdStartQuiz           = "start-quiz"
	CmdEndQuiz             = "end-quiz"
	CmdKick                = "kick"
	CmdLeaveRoom           = "leave-room"
	CmdRequestState        = "request-state"
	CmdPing                = "ping"
)

// Close reasons carried by all-answered.
const (
	ReasonAllAnswered = "all-answered"
	ReasonTimeout     = "timeout"
)

type Message struct {
	Version int         `json:"v"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// InboundMessage keeps the payload raw until the type is known.
type InboundMessage struct {
	Version int             `json:"v"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewMessage(messageType string, payload interface{}) Message {
	return Message{Version: ProtocolVersion, Type: messageType, Payload: payload}
}

type QuestionPayload struct {
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
}

type AllAnsweredPayload struct {
	Correct string `json:"correct"`
	Reason  string `json:"reason"`
}

type LobbyUpdatePayload struct {
	Players    []PlayerView `json:"players"`
	MaxPlayers int          `json:"maxPlayers,omitempty"`
}

type JoinedPayload struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
	Host     bool   `json:"host"`
}

type AnswerAcceptedPayload struct {
	Option string `json:"option"`
}

type RoomErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Inbound payloads.

type JoinRoomPayload struct {
	Name      string `json:"name"`
	RoomCode  string `json:"roomCode"`
	HostToken string `json:"hostToken,omitempty"`
}

type AnswerPayload struct {
	Option   string `json:"option"`
	RoomCode string `json:"roomCode"`
}

type RoomCommandPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId,omitempty"`
}

// Broadcaster delivers room events. Implementations must not block: they
// are called while the room lock is held.
type Broadcaster interface {
	Broadcast(roomCode string, msg Message)
	SendTo(roomCode, playerID string, msg Message)
	// Evict unbinds the player's connection from the room without closing it.
	Evict(roomCode, playerID string)
}

// Broadcasters fans every call out to each member.
type Broadcasters []Broadcaster

func (bs Broadcasters) Broadcast(roomCode string, msg Message) {
	for _, b := range bs {
		b.Broadcast(roomCode, msg)
	}
}

func (bs Broadcasters) SendTo(roomCode, playerID string, msg Message) {
	for _, b := range bs {
		b.SendTo(roomCode, playerID, msg)
	}
}

func (bs Broadcasters) Evict(roomCode, playerID string) {
	for _, b := range bs {
		b.Evict(roomCode, playerID)
	}
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, Message)      {}
func (nopBroadcaster) SendTo(string, string, Message) {}
func (nopBroadcaster) Evict(string, string)           {}
