package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"livequiz/client"
	"livequiz/services"

	"github.com/jonboulle/clockwork"
)

func TestRunPlayCommandLocalErrors(t *testing.T) {
	question := &services.QuestionPayload{Text: "2 + 2?", Options: []string{"3", "4", "5"}, TimeLimit: 10}

	tests := []struct {
		name string
		view client.View
		line string
		want string
	}{
		{"blank", client.View{}, "   ", ""},
		{"kick without id", client.View{RoomCode: "AB12"}, "kick", "usage: kick"},
		{"join without code", client.View{Notice: "The room has been closed."}, "join", "usage: join"},
		{"unknown", client.View{RoomCode: "AB12"}, "dance", `unknown command "dance"`},
		{"no question", client.View{RoomCode: "AB12", Joined: true}, "1", "no option 1"},
		{"out of range", client.View{RoomCode: "AB12", Joined: true, Question: question}, "4", "no option 4"},
		{"zero", client.View{RoomCode: "AB12", Joined: true, Question: question}, "0", "no option 0"},
		{"locked", client.View{RoomCode: "AB12", Joined: true, Question: question, Selected: "3"}, "2", "already locked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &session{view: tt.view, out: &bytes.Buffer{}}
			err := runPlayCommand(nil, s, tt.line)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("runPlayCommand(%q) = %v", tt.line, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("runPlayCommand(%q) = %v, want %q", tt.line, err, tt.want)
			}
		})
	}
}

func TestRunPlayCommandHelp(t *testing.T) {
	var out bytes.Buffer
	s := &session{out: &out}
	if err := runPlayCommand(nil, s, "help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "kick <id>") {
		t.Errorf("help output = %q", out.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func playerID(games *services.GameService, code, name string) string {
	snap, err := games.GetRoom(context.Background(), code)
	if err != nil {
		return ""
	}
	for _, p := range snap.Players {
		if p.Name == name {
			return p.ID
		}
	}
	return ""
}

func TestPlayRejoinsAfterKick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	games := services.NewGameService(services.GameServiceOptions{
		Tokens: services.NewHostTokens("secret", time.Hour, clock),
		Clock:  clock,
	})
	hub := services.NewHub(games, services.DefaultConnectionConfig())
	games.SetBroadcaster(hub)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	t.Cleanup(func() {
		games.Shutdown()
		cancel()
		server.Close()
	})

	room, err := games.CreateRoom(context.Background(), services.CreateRoomRequest{
		Questions: []services.Question{{Text: "2 + 2?", Options: []string{"3", "4"}, Correct: "4", TimeLimit: 10}},
	}, "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := games.Join(room.RoomCode, "", room.HostToken, nil); err != nil {
		t.Fatalf("Join(host): %v", err)
	}

	stdin, input := io.Pipe()
	t.Cleanup(func() { input.Close() })
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- play(context.Background(), server.URL, "Bob", room.RoomCode, "", stdin, &out) }()

	eventually(t, "Bob to join", func() bool { return playerID(games, room.RoomCode, "Bob") != "" })
	first := playerID(games, room.RoomCode, "Bob")
	if err := games.Kick(room.RoomCode, first); err != nil {
		t.Fatalf("Kick: %v", err)
	}
	eventually(t, "kicked notice", func() bool { return strings.Contains(out.String(), "kicked from the room") })

	select {
	case err := <-done:
		t.Fatalf("play returned after a kick: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := io.WriteString(input, "join "+room.RoomCode+"\n"); err != nil {
		t.Fatalf("write join: %v", err)
	}
	eventually(t, "Bob to rejoin", func() bool {
		id := playerID(games, room.RoomCode, "Bob")
		return id != "" && id != first
	})

	if _, err := io.WriteString(input, "quit\n"); err != nil {
		t.Fatalf("write quit: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("play: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return after quit")
	}
}
