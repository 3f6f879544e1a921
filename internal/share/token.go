// Package share builds everything needed to hand a card to someone else:
// the public share URL, an optional signed link that expires, social network
// share URLs, contact actions and the Open Graph / Twitter meta tags.
//
// SIGNED LINKS:
// A plain share URL (/share/{id}) works for as long as the card is saved.
// A signed link (/s/{token}) carries the card id inside an HS256 JWT with an
// expiry, so a provider can hand out a link that stops working after a while
// without the server storing anything:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"<card id>","iss":"servicecard","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, SHARE_SECRET)
package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/servicecard/internal/clock"
)

const issuer = "servicecard"

var (
	ErrInvalidToken = errors.New("share: invalid token")
	ErrTokenExpired = errors.New("share: token expired")
)

// TokenService signs and verifies share tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clk    clock.Clock
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; ttl is how long issued links stay valid.
func NewTokenService(secret string, ttl time.Duration, clk clock.Clock) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("share: secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("share: token lifetime must be positive, got %s", ttl)
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, clk: clk}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Sign issues a token for cardID and returns it with its expiry.
func (s *TokenService) Sign(cardID string) (string, time.Time, error) {
	if cardID == "" {
		return "", time.Time{}, errors.New("share: cannot sign a token for an unsaved card")
	}
	now := s.clk.Now()
	exp := now.Add(s.ttl)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cardID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("share: signing token: %w", err)
	}
	return signed, exp.Truncate(time.Second), nil
}

// Verify checks the signature, issuer and expiry of token and returns the
// card id it was issued for. Expiry is judged by the service's clock.
func (s *TokenService) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clk.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
