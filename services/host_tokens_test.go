package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

func TestHostTokens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tokens := NewHostTokens("secret", time.Hour, clock)

	token, err := tokens.Issue("ab12")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := tokens.Verify(token, "AB12"); err != nil {
		t.Errorf("Verify(AB12) = %v, want nil", err)
	}
	if err := tokens.Verify(token, "ZZ99"); !errors.Is(err, ErrNotHost) {
		t.Errorf("Verify(other room) = %v, want ErrNotHost", err)
	}
	if err := tokens.Verify("garbage", "AB12"); !errors.Is(err, ErrNotHost) {
		t.Errorf("Verify(garbage) = %v, want ErrNotHost", err)
	}

	other := NewHostTokens("another secret", time.Hour, clock)
	if err := other.Verify(token, "AB12"); !errors.Is(err, ErrNotHost) {
		t.Errorf("Verify with another secret = %v, want ErrNotHost", err)
	}

	clock.Advance(2 * time.Hour)
	if err := tokens.Verify(token, "AB12"); !errors.Is(err, ErrNotHost) {
		t.Errorf("Verify(expired) = %v, want ErrNotHost", err)
	}
}

func TestHostTokensRejectOtherRoles(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tokens := NewHostTokens("secret", time.Hour, clock)

	claims := HostClaims{
		RoomCode: "AB12",
		Role:     "player",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := tokens.Verify(token, "AB12"); !errors.Is(err, ErrNotHost) {
		t.Errorf("Verify(player role) = %v, want ErrNotHost", err)
	}
}

func TestRandomSecret(t *testing.T) {
	a, b := RandomSecret(), RandomSecret()
	if len(a) != 64 || a == b {
		t.Errorf("RandomSecret() = %q, %q; want distinct 64 character secrets", a, b)
	}
}
