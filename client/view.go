// Package client folds the server's room events into a view of the game
// as one player sees it.
package client

import (
	"encoding/json"
	"sort"

	"livequiz/services"
)

type Phase string

const (
	PhaseUnjoined Phase = "unjoined"
	PhaseJoining  Phase = "joining"
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseReveal   Phase = "reveal"
	PhaseEnded    Phase = "ended"
)

type RankChange string

const (
	RankSame RankChange = ""
	RankUp   RankChange = "up"
	RankDown RankChange = "down"
)

const (
	defaultTimeLimit  = 15
	unknownCorrect    = "N/A"
	unknownRoomError  = "Unknown room error."
	roomFullMessage   = "Room is full. Please try another room or wait."
	roomClosedMessage = "The room has been closed."
	kickedMessage     = "You have been kicked from the room by the host."
)

// Event is a server envelope with its payload still encoded.
type Event struct {
	Version int             `json:"v"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// View is an immutable snapshot. Fold never modifies its input; it returns
// a new View.
type View struct {
	Name     string
	RoomCode string
	PlayerID string
	Host     bool
	Joining  bool
	Joined   bool

	Question      *services.QuestionPayload
	Selected      string
	TimeLeft      int
	AllAnswered   bool
	CorrectAnswer string
	CloseReason   string

	Leaderboard        []services.LeaderboardEntry
	PrevLeaderboard    []services.LeaderboardEntry
	LeaderboardVisible bool
	QuizEnded          bool

	Players    []services.PlayerView
	MaxPlayers int

	Error  string
	Notice string
}

// StartJoin records a pending join-room request.
func (v View) StartJoin(name, roomCode string) View {
	v.Name = name
	v.RoomCode = services.NormalizeCode(roomCode)
	v.Joining = true
	v.Error = ""
	v.Notice = ""
	return v
}

// Select locks in an option locally. It reports false when an answer is
// already locked or there is nothing to answer.
func (v View) Select(option string) (View, bool) {
	if v.Selected != "" || v.Question == nil || v.AllAnswered || v.QuizEnded || v.Host {
		return v, false
	}
	v.Selected = option
	return v, true
}

func (v View) Phase() Phase {
	switch {
	case v.Joining && !v.Joined:
		return PhaseJoining
	case !v.Joined:
		return PhaseUnjoined
	case v.QuizEnded:
		return PhaseEnded
	case v.Question != nil && v.AllAnswered:
		return PhaseReveal
	case v.Question != nil:
		return PhaseQuestion
	}
	return PhaseLobby
}

// Lobby lists the players who are not hosts, in join order.
func (v View) Lobby() []services.PlayerView {
	out := make([]services.PlayerView, 0, len(v.Players))
	for _, p := range v.Players {
		if !p.Host {
			out = append(out, p)
		}
	}
	return out
}

// Standings is the leaderboard ordered by score, highest first.
func (v View) Standings() []services.LeaderboardEntry {
	out := append([]services.LeaderboardEntry(nil), v.Leaderboard...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// RankChange compares a player's position at index with the previous
// leaderboard.
func (v View) RankChange(id string, index int) RankChange {
	for old, e := range v.PrevLeaderboard {
		if e.ID != id {
			continue
		}
		switch {
		case old > index:
			return RankUp
		case old < index:
			return RankDown
		}
		return RankSame
	}
	return RankSame
}

func (v View) hostIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, p := range v.Players {
		if p.Host {
			ids[p.ID] = true
		}
	}
	return ids
}

func (v View) withoutHosts(entries []services.LeaderboardEntry) []services.LeaderboardEntry {
	hosts := v.hostIDs()
	out := make([]services.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || hosts[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Fold applies one server event. Unknown events leave the view unchanged.
func Fold(v View, ev Event) View {
	switch ev.Type {
	case services.EventQuestion:
		var q services.QuestionPayload
		if err := json.Unmarshal(ev.Payload, &q); err != nil || q.Text == "" || len(q.Options) == 0 {
			v.Question = nil
			return v
		}
		if q.TimeLimit == 0 {
			q.TimeLimit = defaultTimeLimit
		}
		v.Question = &q
		v.Selected = ""
		v.CorrectAnswer = ""
		v.CloseReason = ""
		v.TimeLeft = q.TimeLimit
		v.AllAnswered = false
		v.LeaderboardVisible = false

	case services.EventTimeLeft:
		var left int
		if err := json.Unmarshal(ev.Payload, &left); err == nil {
			if left < 0 {
				left = 0
			}
			v.TimeLeft = left
		}

	case services.EventAllAnswered:
		var p services.AllAnsweredPayload
		_ = json.Unmarshal(ev.Payload, &p)
		v.AllAnswered = true
		v.CorrectAnswer = p.Correct
		if v.CorrectAnswer == "" {
			v.CorrectAnswer = unknownCorrect
		}
		v.CloseReason = p.Reason

	case services.EventLeaderboard:
		if v.QuizEnded {
			return v
		}
		var entries []services.LeaderboardEntry
		if err := json.Unmarshal(ev.Payload, &entries); err != nil {
			return v
		}
		v.PrevLeaderboard = v.Leaderboard
		v.Leaderboard = v.withoutHosts(entries)
		v.LeaderboardVisible = true

	case services.EventFinalLeaderboard:
		var entries []services.LeaderboardEntry
		if err := json.Unmarshal(ev.Payload, &entries); err != nil {
			return v
		}
		v.PrevLeaderboard = v.Leaderboard
		v.Leaderboard = v.withoutHosts(entries)
		v.LeaderboardVisible = false
		v.QuizEnded = true

	case services.EventQuizEnd:
		v.QuizEnded = true
		v.LeaderboardVisible = false

	case services.EventLobbyUpdate:
		var p services.LobbyUpdatePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return v
		}
		v.Players = p.Players
		v.MaxPlayers = p.MaxPlayers
		v.Joined = true
		v.Joining = false

	case services.EventJoined:
		var p services.JoinedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return v
		}
		v.PlayerID = p.PlayerID
		v.RoomCode = p.RoomCode
		v.Host = p.Host
		v.Joined = true
		v.Joining = false
		v.Error = ""

	case services.EventAnswerAccepted:
		var p services.AnswerAcceptedPayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			v.Selected = p.Option
		}

	case services.EventRoomError:
		var p services.RoomErrorPayload
		_ = json.Unmarshal(ev.Payload, &p)
		v.Error = p.Message
		if v.Error == "" {
			v.Error = unknownRoomError
		}
		// Only a failed join drops the player back to the join screen.
		if v.Joining {
			v.Joining = false
			v.Joined = false
		}

	case services.EventRoomFull:
		v.Error = roomFullMessage
		v.Joined = false
		v.Joining = false

	case services.EventKicked:
		return View{Notice: kickedMessage}

	case services.EventRoomClosed:
		return View{Notice: roomClosedMessage}

	case services.EventRoomState:
		var snap services.RoomSnapshot
		if err := json.Unmarshal(ev.Payload, &snap); err != nil {
			return v
		}
		v.Players = snap.Players
		v.MaxPlayers = snap.MaxPlayers
		v.QuizEnded = snap.State == services.StateEnded
		v.TimeLeft = snap.TimeLeft
		v.AllAnswered = snap.State == services.StateQuestionClosed
		v.CorrectAnswer = snap.Correct
		v.LeaderboardVisible = v.AllAnswered
		v.Question = nil
		if snap.Question != nil && (snap.State == services.StateQuestionActive || snap.State == services.StateQuestionClosed) {
			q := *snap.Question
			v.Question = &q
		}
		v.PrevLeaderboard = v.Leaderboard
		v.Leaderboard = v.withoutHosts(snap.Leaderboard)
	}
	return v
}

// FoldAll applies events in order.
func FoldAll(v View, events ...Event) View {
	for _, ev := range events {
		v = Fold(v, ev)
	}
	return v
}
