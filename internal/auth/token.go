// Package auth issues and verifies the join tokens a participant presents
// when opening a socket to the standalone authority.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const issuer = "kitchend"

var (
	ErrNoSecret     = errors.New("token secret is not configured")
	ErrInvalidToken = errors.New("invalid join token")
)

// Identity is what a verified join token grants.
type Identity struct {
	ParticipantID string
	Name          string
	SessionID     string
}

// TokenIssuer signs HS256 join tokens for one session.
type TokenIssuer struct {
	secret    []byte
	sessionID string
	ttl       time.Duration
	clock     clockwork.Clock
}

// NewTokenIssuer returns an issuer for sessionID. A nil clock uses the real clock.
func NewTokenIssuer(secret, sessionID string, ttl time.Duration, clock clockwork.Clock) *TokenIssuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{secret: []byte(secret), sessionID: sessionID, ttl: ttl, clock: clock}
}

// Issue signs a token for name. An empty participantID gets a fresh one.
func (s *TokenIssuer) Issue(participantID, name string) (string, Identity, error) {
	if s == nil || len(s.secret) == 0 {
		return "", Identity{}, ErrNoSecret
	}
	if participantID == "" {
		participantID = uuid.NewString()
	}
	if name == "" {
		return "", Identity{}, fmt.Errorf("name is required")
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"iss":  issuer,
		"sub":  participantID,
		"name": name,
		"sid":  s.sessionID,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, Identity{ParticipantID: participantID, Name: name, SessionID: s.sessionID}, nil
}

// Verify checks the signature, expiry and session of tokenString.
func (s *TokenIssuer) Verify(tokenString string) (Identity, error) {
	if s == nil || len(s.secret) == 0 {
		return Identity{}, ErrNoSecret
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{
		ParticipantID: stringClaim(claims, "sub"),
		Name:          stringClaim(claims, "name"),
		SessionID:     stringClaim(claims, "sid"),
	}
	if id.ParticipantID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if id.SessionID != s.sessionID {
		return Identity{}, fmt.Errorf("%w: issued for session %q", ErrInvalidToken, id.SessionID)
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return v
}
