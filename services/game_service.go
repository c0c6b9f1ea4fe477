package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	storeTimeout       = 5 * time.Second
	pendingWrites      = 256
)

type GameServiceOptions struct {
	Catalog   QuizCatalog
	Tokens    *HostTokens
	Snapshots *SnapshotStore
	Archive   *ResultArchive

	Clock          clockwork.Clock
	TickInterval   time.Duration
	RevealDuration time.Duration

	// PublicURL is the base of join links. When empty the caller's base is used.
	PublicURL         string
	DefaultMaxPlayers int
	IdleTimeout       time.Duration
}

type CreateRoomRequest struct {
	QuizID     uint       `json:"quizId"`
	Questions  []Question `json:"questions"`
	MaxPlayers int        `json:"maxPlayers"`
}

type CreateRoomResponse struct {
	RoomCode  string `json:"roomCode"`
	HostToken string `json:"hostToken"`
	JoinURL   string `json:"joinUrl"`
}

// GameService is the entry point for every transport. It owns the room
// registry and moves snapshots and results out to the stores.
type GameService struct {
	registry  *RoomRegistry
	catalog   QuizCatalog
	tokens    *HostTokens
	snapshots *SnapshotStore
	archive   *ResultArchive
	clock     clockwork.Clock
	opts      GameServiceOptions

	snapshotCh chan RoomSnapshot
	resultCh   chan RoomResult
}

func NewGameService(opts GameServiceOptions) *GameService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Tokens == nil {
		opts.Tokens = NewHostTokens(RandomSecret(), 0, opts.Clock)
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	s := &GameService{
		catalog:    opts.Catalog,
		tokens:     opts.Tokens,
		snapshots:  opts.Snapshots,
		archive:    opts.Archive,
		clock:      opts.Clock,
		opts:       opts,
		snapshotCh: make(chan RoomSnapshot, pendingWrites),
		resultCh:   make(chan RoomResult, pendingWrites),
	}
	s.registry = NewRoomRegistry(RegistryConfig{
		Clock:          opts.Clock,
		TickInterval:   opts.TickInterval,
		RevealDuration: opts.RevealDuration,
		Observer:       s,
	})
	return s
}

// SetBroadcaster wires the transports. Call it before serving.
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.registry.SetBroadcaster(b)
}

func (s *GameService) Rooms() int {
	return s.registry.Len()
}

// CreateRoom builds a room from a stored quiz or inline questions and
// returns the host token for it.
func (s *GameService) CreateRoom(ctx context.Context, req CreateRoomRequest, baseURL string) (*CreateRoomResponse, error) {
	questions := req.Questions
	if req.QuizID != 0 {
		if s.catalog == nil {
			return nil, ErrQuizNotFound
		}
		bank, err := s.catalog.LoadQuestions(ctx, req.QuizID)
		if err != nil {
			return nil, err
		}
		questions = bank
	} else {
		questions = cloneBank(questions)
		for i := range questions {
			if questions[i].TimeLimit == 0 {
				questions[i].TimeLimit = DefaultTimeLimit
			}
		}
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = s.opts.DefaultMaxPlayers
	}

	room, err := s.registry.Create(RoomOptions{
		Questions:  questions,
		MaxPlayers: maxPlayers,
		QuizID:     req.QuizID,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(room.Code())
	if err != nil {
		s.registry.Remove(room.Code())
		return nil, err
	}

	return &CreateRoomResponse{
		RoomCode:  room.Code(),
		HostToken: token,
		JoinURL:   s.JoinURL(room.Code(), baseURL),
	}, nil
}

func (s *GameService) JoinURL(code, baseURL string) string {
	base := s.opts.PublicURL
	if base == "" {
		base = baseURL
	}
	return fmt.Sprintf("%s/join/%s", strings.TrimRight(base, "/"), NormalizeCode(code))
}

// AuthorizeHost checks a host token against a room code.
func (s *GameService) AuthorizeHost(code, token string) error {
	return s.tokens.Verify(token, code)
}

// Join adds a player to a room. A host token claims the host seat.
func (s *GameService) Join(code, name, hostToken string, attach func(*Player)) (*Player, error) {
	room, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	host := false
	if hostToken != "" {
		if err := s.tokens.Verify(hostToken, room.Code()); err != nil {
			return nil, err
		}
		host = true
	}
	return room.Join(name, host, attach)
}

// Leave removes a player and drops the room once nobody is left.
func (s *GameService) Leave(code, playerID string) error {
	room, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	empty, err := room.Leave(playerID)
	if empty {
		log.Info().Str("room", room.Code()).Msg("room is empty")
		s.registry.Remove(room.Code())
	}
	return err
}

func (s *GameService) SubmitAnswer(code, playerID, option string) (AnswerRecord, error) {
	room, err := s.registry.Get(code)
	if err != nil {
		return AnswerRecord{}, err
	}
	return room.SubmitAnswer(playerID, option)
}

func (s *GameService) IsHost(code, playerID string) bool {
	room, err := s.registry.Get(code)
	if err != nil {
		return false
	}
	return room.IsHost(playerID)
}

func (s *GameService) StartQuiz(code string) error {
	room, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	return room.StartQuiz()
}

func (s *GameService) NextQuestion(code string) error {
	room, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	return room.NextQuestion()
}

func (s *GameService) EndQuiz(code string) error {
	room, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	return room.EndQuiz()
}

// Kick removes a player and drops the room once nobody is left.
func (s *GameService) Kick(code, playerID string) error {
	room, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	empty, err := room.Kick(playerID)
	if empty {
		log.Info().Str("room", room.Code()).Msg("room is empty")
		s.registry.Remove(room.Code())
	}
	return err
}

func (s *GameService) CloseRoom(code string) error {
	if !s.registry.Remove(code) {
		return ErrRoomNotFound
	}
	return nil
}

// Leaderboard returns the live standings of a room.
func (s *GameService) Leaderboard(code string) ([]LeaderboardEntry, error) {
	room, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return room.Leaderboard(), nil
}

// SendState sends the room snapshot to one of its players.
func (s *GameService) SendState(code, playerID string) error {
	room, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	room.SendState(playerID)
	return nil
}

// GetRoom returns the live snapshot, falling back to the cached one.
func (s *GameService) GetRoom(ctx context.Context, code string) (*RoomSnapshot, error) {
	if room, err := s.registry.Get(code); err == nil {
		snap := room.Snapshot()
		return &snap, nil
	}
	return s.snapshots.Load(ctx, code)
}

// RoomChanged implements RoomObserver.
func (s *GameService) RoomChanged(snapshot RoomSnapshot) {
	if !s.snapshots.enabled() {
		return
	}
	select {
	case s.snapshotCh <- snapshot:
	default:
		log.Warn().Str("room", snapshot.Code).Msg("snapshot queue full, dropping snapshot")
	}
}

// RoomEnded implements RoomObserver.
func (s *GameService) RoomEnded(result RoomResult) {
	if s.archive == nil {
		return
	}
	select {
	case s.resultCh <- result:
	default:
		log.Warn().Str("room", result.Code).Msg("result queue full, dropping game result")
	}
}

// Run drains pending store writes and reaps idle rooms until ctx is done.
func (s *GameService) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.opts.IdleTimeout / 2)
	defer ticker.Stop()

	log.Info().Dur("idle_timeout", s.opts.IdleTimeout).Msg("game service started")

	for {
		select {
		case <-ctx.Done():
			s.flush()
			log.Info().Msg("game service stopped")
			return
		case snap := <-s.snapshotCh:
			s.saveSnapshot(snap)
		case result := <-s.resultCh:
			s.saveResult(result)
		case <-ticker.Chan():
			cutoff := s.clock.Now().Add(-s.opts.IdleTimeout)
			if reaped := s.registry.ReapIdle(cutoff); len(reaped) > 0 {
				log.Info().Strs("rooms", reaped).Msg("reaped idle rooms")
			}
		}
	}
}

// Shutdown closes every room. Run must still be running to store the
// final results.
func (s *GameService) Shutdown() {
	s.registry.CloseAll()
}

func (s *GameService) flush() {
	for {
		select {
		case snap := <-s.snapshotCh:
			s.saveSnapshot(snap)
		case result := <-s.resultCh:
			s.saveResult(result)
		default:
			return
		}
	}
}

func (s *GameService) saveSnapshot(snap RoomSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.snapshots.Save(ctx, snap); err != nil {
		log.Error().Err(err).Str("room", snap.Code).Msg("failed to store room snapshot")
	}
}

func (s *GameService) saveResult(result RoomResult) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if _, err := s.archive.Save(ctx, result); err != nil {
		log.Error().Err(err).Str("room", result.Code).Msg("failed to archive game")
	}
}
