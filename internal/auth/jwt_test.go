package auth

import (
	"testing"
	"time"

	"salesdesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	user := &model.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Role: model.RoleJournalist}

	token, expires, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expiry not in the future: %v", expires)
	}

	actor, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.ID != user.ID || actor.Role != model.RoleJournalist || actor.Email != user.Email || actor.Name != "Jane" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestDefaultTTLIsSevenDays(t *testing.T) {
	if got := NewTokenIssuer("secret", 0).TTL(); got != 7*24*time.Hour {
		t.Fatalf("ttl = %v", got)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	user := &model.User{ID: uuid.New(), Role: model.RoleAdmin}

	other := NewTokenIssuer("other-secret", time.Hour)
	forged, _, err := other.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(forged); err == nil {
		t.Fatal("expected signature error")
	}

	expired := NewTokenIssuer("secret", time.Hour)
	claims := &Claims{
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(expired.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Parse(stale); err == nil {
		t.Fatal("expected expiry error")
	}

	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	claims.Role = "superuser"
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	if _, err := issuer.Parse(badRole); err == nil {
		t.Fatal("expected role error")
	}

	if _, err := issuer.Parse("not-a-jwt"); err == nil {
		t.Fatal("expected malformed token error")
	}
}
