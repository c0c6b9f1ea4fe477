package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts  = 16
)

type RegistryConfig struct {
	Clock          clockwork.Clock
	TickInterval   time.Duration
	RevealDuration time.Duration
	Observer       RoomObserver
}

// RoomRegistry tracks live rooms by code.
type RoomRegistry struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	config      RegistryConfig
	broadcaster Broadcaster
}

func NewRoomRegistry(cfg RegistryConfig) *RoomRegistry {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &RoomRegistry{
		rooms:       make(map[string]*Room),
		config:      cfg,
		broadcaster: nopBroadcaster{},
	}
}

// SetBroadcaster must be called before the first room is created.
func (rr *RoomRegistry) SetBroadcaster(b Broadcaster) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if b == nil {
		b = nopBroadcaster{}
	}
	rr.broadcaster = b
}

// NormalizeCode makes room codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (rr *RoomRegistry) Create(opts RoomOptions) (*Room, error) {
	if err := ValidateBank(opts.Questions); err != nil {
		return nil, err
	}
	if opts.MaxPlayers < 0 {
		return nil, fmt.Errorf("max players must not be negative: %d", opts.MaxPlayers)
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	code := NormalizeCode(opts.Code)
	if code != "" {
		if _, exists := rr.rooms[code]; exists {
			return nil, fmt.Errorf("room code %s already in use", code)
		}
	} else {
		var err error
		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err = generateRoomCode()
			if err != nil {
				return nil, err
			}
			if _, exists := rr.rooms[code]; !exists {
				break
			}
			code = ""
		}
		if code == "" {
			return nil, fmt.Errorf("could not allocate a unique room code")
		}
	}

	room := newRoom(code, opts, roomDeps{
		clock:          rr.config.Clock,
		broadcaster:    rr.broadcaster,
		observer:       rr.config.Observer,
		tickInterval:   rr.config.TickInterval,
		revealDuration: rr.config.RevealDuration,
	})
	rr.rooms[code] = room

	log.Info().
		Str("room", code).
		Int("questions", len(opts.Questions)).
		Int("max_players", opts.MaxPlayers).
		Int("rooms", len(rr.rooms)).
		Msg("room created")

	return room, nil
}

func (rr *RoomRegistry) Get(code string) (*Room, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	room, ok := rr.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove closes the room and forgets it.
func (rr *RoomRegistry) Remove(code string) bool {
	code = NormalizeCode(code)

	rr.mu.Lock()
	room, ok := rr.rooms[code]
	if ok {
		delete(rr.rooms, code)
	}
	remaining := len(rr.rooms)
	rr.mu.Unlock()

	if !ok {
		return false
	}
	room.close()
	log.Info().Str("room", code).Int("rooms", remaining).Msg("room removed")
	return true
}

// ReapIdle removes rooms that have seen no activity since cutoff.
func (rr *RoomRegistry) ReapIdle(cutoff time.Time) []string {
	rr.mu.RLock()
	var idle []string
	for code, room := range rr.rooms {
		if room.idleSince().Before(cutoff) {
			idle = append(idle, code)
		}
	}
	rr.mu.RUnlock()

	sort.Strings(idle)
	for _, code := range idle {
		log.Info().Str("room", code).Msg("reaping idle room")
		rr.Remove(code)
	}
	return idle
}

func (rr *RoomRegistry) Len() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return len(rr.rooms)
}

// CloseAll stops every room, used on shutdown.
func (rr *RoomRegistry) CloseAll() {
	rr.mu.RLock()
	codes := make([]string, 0, len(rr.rooms))
	for code := range rr.rooms {
		codes = append(codes, code)
	}
	rr.mu.RUnlock()

	for _, code := range codes {
		rr.Remove(code)
	}
}

func generateRoomCode() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := 0; i < roomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		b.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
