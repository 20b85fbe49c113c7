package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/jonboulle/clockwork"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", "kitchen-1", time.Hour, nil)

	token, id, err := issuer.Issue("", "Ana")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if id.ParticipantID == "" {
		t.Fatal("issue did not assign a participant id")
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if got != id {
		t.Fatalf("identity = %+v, want %+v", got, id)
	}

	claims := parseClaims(t, token, "secret")
	if claims["iss"] != "kitchend" || claims["name"] != "Ana" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestIssueKeepsParticipantID(t *testing.T) {
	issuer := NewTokenIssuer("secret", "kitchen-1", time.Hour, nil)
	_, id, err := issuer.Issue("user-7", "Bo")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if id.ParticipantID != "user-7" {
		t.Fatalf("participant id = %q, want user-7", id.ParticipantID)
	}
}

func TestVerifyRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", "kitchen-1", time.Hour, nil)
	valid, _, err := issuer.Issue("u1", "Ana")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	past := NewTokenIssuer("secret", "kitchen-1", time.Hour, clockwork.NewFakeClockAt(time.Now().Add(-48*time.Hour)))
	expired, _, err := past.Issue("u1", "Ana")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	other, _, err := NewTokenIssuer("secret", "kitchen-2", time.Hour, nil).Issue("u1", "Ana")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	forged, _, err := NewTokenIssuer("other-secret", "kitchen-1", time.Hour, nil).Issue("u1", "Ana")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "other session", token: other},
		{name: "wrong secret", token: forged},
		{name: "garbage", token: "not-a-token"},
		{name: "truncated", token: valid[:len(valid)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := issuer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIssueRequiresSecretAndName(t *testing.T) {
	if _, _, err := NewTokenIssuer("", "s", time.Hour, nil).Issue("u", "Ana"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("err = %v, want ErrNoSecret", err)
	}
	if _, _, err := NewTokenIssuer("secret", "s", time.Hour, nil).Issue("u", ""); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func parseClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	return claims
}
