package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	hostRole        = "host"
	tokenIssuer     = "livequiz"
	DefaultTokenTTL = 6 * time.Hour
)

// HostClaims bind a token to the room it was issued for.
type HostClaims struct {
	RoomCode string `json:"roomCode"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// HostTokens issues and checks the bearer tokens that let a room's creator
// claim the host seat and drive the session over HTTP.
type HostTokens struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewHostTokens(secret string, ttl time.Duration, clock clockwork.Clock) *HostTokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HostTokens{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (t *HostTokens) Issue(roomCode string) (string, error) {
	now := t.clock.Now()
	claims := HostClaims{
		RoomCode: NormalizeCode(roomCode),
		Role:     hostRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   NormalizeCode(roomCode),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign host token: %w", err)
	}
	return signed, nil
}

// Verify checks the token was issued for roomCode. Any failure is reported
// as ErrNotHost.
func (t *HostTokens) Verify(tokenString, roomCode string) error {
	var claims HostClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotHost, err)
	}
	if !token.Valid || claims.Role != hostRole || claims.RoomCode != NormalizeCode(roomCode) {
		return ErrNotHost
	}
	return nil
}

// RandomSecret returns a signing secret for processes that were not given
// one. Tokens signed with it do not survive a restart.
func RandomSecret() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
