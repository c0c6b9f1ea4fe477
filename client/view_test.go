package client

import (
	"encoding/json"
	"testing"

	"livequiz/services"

	"github.com/google/go-cmp/cmp"
)

func event(t *testing.T, messageType string, payload interface{}) Event {
	t.Helper()
	ev := Event{Version: services.ProtocolVersion, Type: messageType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal %s: %v", messageType, err)
		}
		ev.Payload = data
	}
	return ev
}

func joinedView(t *testing.T) View {
	t.Helper()
	v := View{}.StartJoin("Alice", "ab12")
	return FoldAll(v,
		event(t, services.EventJoined, services.JoinedPayload{PlayerID: "p1", RoomCode: "AB12"}),
		event(t, services.EventLobbyUpdate, services.LobbyUpdatePayload{
			Players: []services.PlayerView{
				{ID: "h", Name: "Host", Host: true},
				{ID: "p1", Name: "Alice"},
				{ID: "p2", Name: "Bob"},
			},
			MaxPlayers: 8,
		}),
	)
}

func TestJoinFlow(t *testing.T) {
	v := View{}.StartJoin("Alice", " ab12 ")
	if v.Phase() != PhaseJoining || v.RoomCode != "AB12" {
		t.Fatalf("after StartJoin: phase %s, room %q", v.Phase(), v.RoomCode)
	}

	v = joinedView(t)
	if v.Phase() != PhaseLobby || v.PlayerID != "p1" || v.MaxPlayers != 8 {
		t.Fatalf("after join: %+v", v)
	}
	var names []string
	for _, p := range v.Lobby() {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"Alice", "Bob"}, names); diff != "" {
		t.Errorf("lobby mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinRejected(t *testing.T) {
	v := View{}.StartJoin("Alice", "AB12")
	v = Fold(v, event(t, services.EventRoomError, services.RoomErrorPayload{Code: "NAME_TAKEN", Message: "player name already taken"}))
	if v.Phase() != PhaseUnjoined || v.Error != "player name already taken" {
		t.Errorf("after rejected join: phase %s, error %q", v.Phase(), v.Error)
	}

	v = View{}.StartJoin("Alice", "AB12")
	v = Fold(v, event(t, services.EventRoomFull, nil))
	if v.Phase() != PhaseUnjoined || v.Error != roomFullMessage {
		t.Errorf("after room-full: phase %s, error %q", v.Phase(), v.Error)
	}
}

func TestRoomErrorKeepsJoinedPlayerInRoom(t *testing.T) {
	v := Fold(joinedView(t), event(t, services.EventRoomError, services.RoomErrorPayload{}))
	if v.Phase() != PhaseLobby {
		t.Errorf("phase = %s, want %s", v.Phase(), PhaseLobby)
	}
	if v.Error != unknownRoomError {
		t.Errorf("error = %q, want %q", v.Error, unknownRoomError)
	}
}

func TestQuestionRound(t *testing.T) {
	v := Fold(joinedView(t), event(t, services.EventQuestion, services.QuestionPayload{
		Text: "2+2?", Options: []string{"3", "4"}, Index: 0, Total: 2,
	}))
	if v.Phase() != PhaseQuestion {
		t.Fatalf("phase = %s, want %s", v.Phase(), PhaseQuestion)
	}
	if v.TimeLeft != defaultTimeLimit {
		t.Errorf("TimeLeft = %d, want the default %d", v.TimeLeft, defaultTimeLimit)
	}

	v, ok := v.Select("4")
	if !ok || v.Selected != "4" {
		t.Fatalf("Select = %v, %q", ok, v.Selected)
	}
	if _, ok := v.Select("3"); ok {
		t.Error("a second selection was accepted")
	}

	v = FoldAll(v,
		event(t, services.EventTimeLeft, 7),
		event(t, services.EventTimeLeft, -3),
	)
	if v.TimeLeft != 0 {
		t.Errorf("TimeLeft = %d, want it clamped to 0", v.TimeLeft)
	}

	v = Fold(v, event(t, services.EventAllAnswered, services.AllAnsweredPayload{Correct: "4", Reason: services.ReasonTimeout}))
	if v.Phase() != PhaseReveal || v.CorrectAnswer != "4" || v.CloseReason != services.ReasonTimeout {
		t.Errorf("after all-answered: %+v", v)
	}

	v = Fold(v, event(t, services.EventAllAnswered, nil))
	if v.CorrectAnswer != unknownCorrect {
		t.Errorf("CorrectAnswer = %q, want %q", v.CorrectAnswer, unknownCorrect)
	}

	v = Fold(v, event(t, services.EventQuestion, services.QuestionPayload{Text: "Next?", Options: []string{"a", "b"}, TimeLimit: 20}))
	if v.Selected != "" || v.AllAnswered || v.TimeLeft != 20 {
		t.Errorf("next question did not reset the round: %+v", v)
	}
}

func TestMalformedQuestionClears(t *testing.T) {
	v := Fold(joinedView(t), event(t, services.EventQuestion, services.QuestionPayload{Text: "ok", Options: []string{"a", "b"}}))
	v = Fold(v, Event{Type: services.EventQuestion, Payload: json.RawMessage(`{"text": ""}`)})
	if v.Question != nil {
		t.Errorf("Question = %+v, want nil", v.Question)
	}
	v = Fold(v, Event{Type: services.EventQuestion, Payload: json.RawMessage(`not json`)})
	if v.Question != nil {
		t.Errorf("Question = %+v, want nil", v.Question)
	}
}

func TestLeaderboardRankChanges(t *testing.T) {
	v := FoldAll(joinedView(t),
		event(t, services.EventLeaderboard, []services.LeaderboardEntry{
			{ID: "p1", Name: "Alice", Score: 150},
			{ID: "p2", Name: "Bob", Score: 100},
		}),
		event(t, services.EventLeaderboard, []services.LeaderboardEntry{
			{ID: "h", Name: "Host", Score: 0},
			{ID: "p2", Name: "Bob", Score: 250},
			{ID: "p1", Name: "Alice", Score: 150},
			{ID: "x", Name: "", Score: 10},
		}),
	)
	if !v.LeaderboardVisible {
		t.Error("leaderboard hidden")
	}
	standings := v.Standings()
	var names []string
	for _, e := range standings {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"Bob", "Alice"}, names); diff != "" {
		t.Errorf("standings mismatch (-want +got):\n%s", diff)
	}
	if got := v.RankChange("p2", 0); got != RankUp {
		t.Errorf("Bob moved %q, want up", got)
	}
	if got := v.RankChange("p1", 1); got != RankDown {
		t.Errorf("Alice moved %q, want down", got)
	}
	if got := v.RankChange("new", 0); got != RankSame {
		t.Errorf("new player moved %q, want same", got)
	}

	v = Fold(v, event(t, services.EventQuestion, services.QuestionPayload{Text: "q", Options: []string{"a", "b"}}))
	if v.LeaderboardVisible {
		t.Error("leaderboard still visible during a question")
	}
}

func TestQuizEnd(t *testing.T) {
	v := FoldAll(joinedView(t),
		event(t, services.EventFinalLeaderboard, []services.LeaderboardEntry{{ID: "p1", Name: "Alice", Score: 300}}),
		event(t, services.EventQuizEnd, nil),
		event(t, services.EventLeaderboard, []services.LeaderboardEntry{{ID: "p1", Name: "Alice", Score: 999}}),
	)
	if v.Phase() != PhaseEnded {
		t.Fatalf("phase = %s, want %s", v.Phase(), PhaseEnded)
	}
	if v.Leaderboard[0].Score != 300 {
		t.Errorf("leaderboard after end changed to %+v", v.Leaderboard)
	}
	if _, ok := v.Select("a"); ok {
		t.Error("selection accepted after the quiz ended")
	}
}

func TestKickedAndClosedReset(t *testing.T) {
	for _, tt := range []struct {
		event  string
		notice string
	}{
		{services.EventKicked, kickedMessage},
		{services.EventRoomClosed, roomClosedMessage},
	} {
		v := Fold(joinedView(t), event(t, tt.event, nil))
		if diff := cmp.Diff(View{Notice: tt.notice}, v); diff != "" {
			t.Errorf("%s view mismatch (-want +got):\n%s", tt.event, diff)
		}
	}
}

func TestRoomStateRestoresView(t *testing.T) {
	snap := services.RoomSnapshot{
		Code:     "AB12",
		State:    services.StateQuestionClosed,
		Question: &services.QuestionPayload{Text: "2+2?", Options: []string{"3", "4"}, TimeLimit: 10},
		Correct:  "4",
		Players:  []services.PlayerView{{ID: "p1", Name: "Alice", Score: 150}},
		Leaderboard: []services.LeaderboardEntry{
			{ID: "p1", Name: "Alice", Score: 150},
		},
	}
	v := Fold(joinedView(t), event(t, services.EventRoomState, snap))
	if v.Phase() != PhaseReveal || v.CorrectAnswer != "4" || !v.LeaderboardVisible {
		t.Errorf("view = %+v", v)
	}
	if len(v.Players) != 1 || len(v.Leaderboard) != 1 {
		t.Errorf("roster %v, leaderboard %v", v.Players, v.Leaderboard)
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	before := joinedView(t)
	after := Fold(before, Event{Type: "confetti"})
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("unknown event changed the view (-before +after):\n%s", diff)
	}
}
