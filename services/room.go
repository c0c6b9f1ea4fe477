package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type SessionState string

const (
	StateLobby          SessionState = "lobby"
	StateQuestionActive SessionState = "question_active"
	StateQuestionClosed SessionState = "question_closed"
	StateEnded          SessionState = "ended"
)

const (
	DefaultHostName = "Host"
	maxNameLength   = 32
)

type Player struct {
	ID       string
	Name     string
	Score    int
	Host     bool
	JoinedAt time.Time
}

// PlayerView is the wire shape of a roster entry.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Host  bool   `json:"host"`
}

// AnswerRecord is one accepted submission.
type AnswerRecord struct {
	Round       int
	PlayerID    string
	PlayerName  string
	Option      string
	Correct     bool
	Points      int
	Elapsed     time.Duration
	SubmittedAt time.Time
}

type RoomSnapshot struct {
	Code           string             `json:"code"`
	State          SessionState       `json:"state"`
	Round          int                `json:"round"`
	TotalQuestions int                `json:"totalQuestions"`
	Question       *QuestionPayload   `json:"question,omitempty"`
	TimeLeft       int                `json:"timeLeft"`
	Correct        string             `json:"correct,omitempty"`
	AnsweredCount  int                `json:"answeredCount"`
	Players        []PlayerView       `json:"players"`
	MaxPlayers     int                `json:"maxPlayers,omitempty"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// RoomResult is handed to the archive once a quiz ends.
type RoomResult struct {
	Code      string
	QuizID    uint
	Rounds    int
	StartedAt time.Time
	EndedAt   time.Time
	Standings []LeaderboardEntry
	Answers   []AnswerRecord
}

// RoomObserver is told about state changes. Calls happen under the room
// lock and must not block.
type RoomObserver interface {
	RoomChanged(snapshot RoomSnapshot)
	RoomEnded(result RoomResult)
}

type RoomOptions struct {
	// Code is optional; a random one is generated when empty.
	Code       string
	Questions  []Question
	MaxPlayers int
	QuizID     uint
}

type roomDeps struct {
	clock          clockwork.Clock
	broadcaster    Broadcaster
	observer       RoomObserver
	tickInterval   time.Duration
	revealDuration time.Duration
}

// Room is a single quiz session. All fields are guarded by mu; every
// transition, whatever triggered it, runs under that lock.
type Room struct {
	mu sync.Mutex

	code       string
	quizID     uint
	maxPlayers int
	bank       []Question
	deps       roomDeps

	state      SessionState
	round      int
	current    *Question
	generation uint64
	openedAt   time.Time
	startedAt  time.Time
	players    map[string]*Player
	order      []string
	answers    map[string]AnswerRecord
	history    []AnswerRecord
	timer      *QuestionTimer
	reveal     clockwork.Timer
	lastActive time.Time
	everJoined bool
	closed     bool
}

func newRoom(code string, opts RoomOptions, deps roomDeps) *Room {
	now := deps.clock.Now()
	return &Room{
		code:       code,
		quizID:     opts.QuizID,
		maxPlayers: opts.MaxPlayers,
		bank:       cloneBank(opts.Questions),
		deps:       deps,
		state:      StateLobby,
		round:      -1,
		players:    make(map[string]*Player),
		answers:    make(map[string]AnswerRecord),
		lastActive: now,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Join adds a player to the roster. attach runs under the room lock before
// the lobby update goes out, so a transport can bind the connection first
// and the joiner sees its own arrival.
func (r *Room) Join(name string, host bool, attach func(*Player)) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}

	name = strings.TrimSpace(name)
	if host && name == "" {
		name = DefaultHostName
	}
	if name == "" || len([]rune(name)) > maxNameLength {
		return nil, ErrInvalidName
	}
	if !host && strings.EqualFold(name, "host") {
		return nil, fmt.Errorf("%w: %q is reserved", ErrNameTaken, name)
	}

	for _, id := range r.order {
		p := r.players[id]
		if host && p.Host {
			return nil, ErrHostTaken
		}
		if strings.EqualFold(p.Name, name) {
			return nil, ErrNameTaken
		}
	}
	if !host && r.maxPlayers > 0 && r.eligibleCountLocked() >= r.maxPlayers {
		return nil, ErrRoomFull
	}

	now := r.deps.clock.Now()
	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		Host:     host,
		JoinedAt: now,
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	r.everJoined = true
	r.lastActive = now

	if attach != nil {
		attach(p)
	}

	log.Info().
		Str("room", r.code).
		Str("player_id", p.ID).
		Str("name", p.Name).
		Bool("host", p.Host).
		Int("eligible", r.eligibleCountLocked()).
		Msg("player joined")

	r.deps.broadcaster.SendTo(r.code, p.ID, NewMessage(EventJoined, JoinedPayload{PlayerID: p.ID, RoomCode: r.code, Host: p.Host}))
	r.broadcastLobbyLocked()
	r.sendCatchUpLocked(p.ID)
	r.notifyChangedLocked()

	return p, nil
}

// Leave removes a player. It reports whether the roster is now empty.
// The host leaving ends a quiz that is still running.
func (r *Room) Leave(playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return len(r.players) == 0 && r.everJoined, ErrNotInRoom
	}
	r.removePlayerLocked(playerID)

	log.Info().
		Str("room", r.code).
		Str("player_id", playerID).
		Str("name", p.Name).
		Bool("host", p.Host).
		Msg("player left")

	if p.Host && r.state != StateEnded {
		log.Info().Str("room", r.code).Msg("host left, ending quiz")
		r.endLocked()
	}

	r.broadcastLobbyLocked()
	r.notifyChangedLocked()
	return len(r.players) == 0, nil
}

// Kick forcibly returns a player to the unjoined state. Like Leave, it
// reports whether the roster is now empty.
func (r *Room) Kick(playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return false, ErrNotInRoom
	}
	if p.Host {
		return false, fmt.Errorf("%w: the host cannot be kicked", ErrNotHost)
	}

	r.deps.broadcaster.SendTo(r.code, playerID, NewMessage(EventKicked, nil))
	r.deps.broadcaster.Evict(r.code, playerID)
	r.removePlayerLocked(playerID)

	log.Info().Str("room", r.code).Str("player_id", playerID).Str("name", p.Name).Msg("player kicked")

	r.broadcastLobbyLocked()
	r.notifyChangedLocked()
	return len(r.players) == 0, nil
}

func (r *Room) IsHost(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	return ok && p.Host
}

func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Leaderboard recomputes the current standings.
func (r *Room) Leaderboard() []LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ComputeLeaderboard(r.rosterLocked())
}

// SendState sends the current snapshot to one player.
func (r *Room) SendState(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps.broadcaster.SendTo(r.code, playerID, NewMessage(EventRoomState, r.snapshotLocked()))
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// removePlayerLocked drops the player from the roster and from the
// current question's answered set. Their record stays in history.
func (r *Room) removePlayerLocked(playerID string) {
	delete(r.players, playerID)
	delete(r.answers, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.lastActive = r.deps.clock.Now()
}

// rosterLocked returns players in join order.
func (r *Room) rosterLocked() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Room) eligibleCountLocked() int {
	n := 0
	for _, p := range r.players {
		if !p.Host {
			n++
		}
	}
	return n
}

func (r *Room) playerViewsLocked() []PlayerView {
	views := make([]PlayerView, 0, len(r.order))
	for _, p := range r.rosterLocked() {
		views = append(views, PlayerView{ID: p.ID, Name: p.Name, Score: p.Score, Host: p.Host})
	}
	return views
}

func (r *Room) broadcastLobbyLocked() {
	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventLobbyUpdate, LobbyUpdatePayload{
		Players:    r.playerViewsLocked(),
		MaxPlayers: r.maxPlayers,
	}))
}

// sendCatchUpLocked brings a late joiner up to date with the session.
func (r *Room) sendCatchUpLocked(playerID string) {
	switch r.state {
	case StateQuestionActive:
		r.deps.broadcaster.SendTo(r.code, playerID, NewMessage(EventQuestion, r.questionPayloadLocked()))
		r.deps.broadcaster.SendTo(r.code, playerID, NewMessage(EventTimeLeft, r.timeLeftLocked()))
	case StateEnded:
		r.deps.broadcaster.SendTo(r.code, playerID, NewMessage(EventFinalLeaderboard, ComputeLeaderboard(r.rosterLocked())))
	}
}

func (r *Room) questionPayloadLocked() QuestionPayload {
	return QuestionPayload{
		Text:      r.current.Text,
		Options:   append([]string(nil), r.current.Options...),
		TimeLimit: r.current.TimeLimit,
		Index:     r.round,
		Total:     len(r.bank),
	}
}

func (r *Room) timeLeftLocked() int {
	if r.state != StateQuestionActive || r.current == nil {
		return 0
	}
	deadline := r.openedAt.Add(time.Duration(r.current.TimeLimit) * time.Second)
	return remainingSeconds(deadline, r.deps.clock.Now())
}

func (r *Room) snapshotLocked() RoomSnapshot {
	snap := RoomSnapshot{
		Code:           r.code,
		State:          r.state,
		Round:          r.round,
		TotalQuestions: len(r.bank),
		TimeLeft:       r.timeLeftLocked(),
		AnsweredCount:  len(r.answers),
		Players:        r.playerViewsLocked(),
		MaxPlayers:     r.maxPlayers,
		Leaderboard:    ComputeLeaderboard(r.rosterLocked()),
		UpdatedAt:      r.deps.clock.Now().UTC(),
	}
	if r.current != nil {
		q := r.questionPayloadLocked()
		snap.Question = &q
		if r.state == StateQuestionClosed {
			snap.Correct = r.current.Correct
		}
	}
	return snap
}

func (r *Room) notifyChangedLocked() {
	if r.deps.observer != nil {
		r.deps.observer.RoomChanged(r.snapshotLocked())
	}
}
