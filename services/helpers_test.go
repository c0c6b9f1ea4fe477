package services

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type sent struct {
	Kind     string
	Room     string
	PlayerID string
	Msg      Message
}

// recorder is a Broadcaster that keeps everything it was asked to deliver.
type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Broadcast(roomCode string, msg Message) {
	r.add(sent{Kind: "broadcast", Room: roomCode, Msg: msg})
}

func (r *recorder) SendTo(roomCode, playerID string, msg Message) {
	r.add(sent{Kind: "send", Room: roomCode, PlayerID: playerID, Msg: msg})
}

func (r *recorder) Evict(roomCode, playerID string) {
	r.add(sent{Kind: "evict", Room: roomCode, PlayerID: playerID})
}

func (r *recorder) add(s sent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, s)
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// types lists the message types of broadcasts, in order.
func (r *recorder) types() []string {
	var out []string
	for _, s := range r.all() {
		if s.Kind == "broadcast" {
			out = append(out, s.Msg.Type)
		}
	}
	return out
}

func (r *recorder) has(kind, msgType string) bool {
	for _, s := range r.all() {
		if s.Kind == kind && s.Msg.Type == msgType {
			return true
		}
	}
	return false
}

func (r *recorder) sentTo(playerID string) []string {
	var out []string
	for _, s := range r.all() {
		if s.Kind == "send" && s.PlayerID == playerID {
			out = append(out, s.Msg.Type)
		}
	}
	return out
}

func (r *recorder) last(msgType string) (Message, bool) {
	all := r.all()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Msg.Type == msgType {
			return all[i].Msg, true
		}
	}
	return Message{}, false
}

func (r *recorder) timeLeft(remaining int) bool {
	for _, s := range r.all() {
		if s.Msg.Type == EventTimeLeft && s.Msg.Payload == remaining {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
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

func count(types []string, msgType string) int {
	n := 0
	for _, t := range types {
		if t == msgType {
			n++
		}
	}
	return n
}

// payloadAs round-trips a recorded payload through JSON, the way a client
// sees it.
func payloadAs(t *testing.T, msg Message, v interface{}) {
	t.Helper()
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
}

func sampleBank() []Question {
	return []Question{
		{Text: "2 + 2?", Options: []string{"3", "4", "5"}, Correct: "4", TimeLimit: 10},
		{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, Correct: "Paris", TimeLimit: 10},
	}
}
