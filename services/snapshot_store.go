package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	snapshotKeyPrefix  = "room:"
	DefaultSnapshotTTL = 2 * time.Hour
)

// SnapshotStore caches the latest RoomSnapshot of each room in Redis so a
// room can still be looked up for a while after it is gone. A nil store or
// a store without a client does nothing.
type SnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotStore{redis: client, ttl: ttl}
}

func (s *SnapshotStore) enabled() bool {
	return s != nil && s.redis != nil
}

func snapshotKey(code string) string {
	return snapshotKeyPrefix + NormalizeCode(code)
}

func (s *SnapshotStore) Save(ctx context.Context, snap RoomSnapshot) error {
	if !s.enabled() {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal room snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, snapshotKey(snap.Code), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store room snapshot: %w", err)
	}
	log.Debug().
		Str("room", snap.Code).
		Str("state", string(snap.State)).
		Int("round", snap.Round).
		Msg("stored room snapshot")
	return nil
}

// Load returns ErrRoomNotFound when nothing is cached for code.
func (s *SnapshotStore) Load(ctx context.Context, code string) (*RoomSnapshot, error) {
	if !s.enabled() {
		return nil, ErrRoomNotFound
	}
	data, err := s.redis.Get(ctx, snapshotKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room snapshot: %w", err)
	}

	var snap RoomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal room snapshot %s: %w", code, err)
	}
	return &snap, nil
}
