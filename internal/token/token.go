// Package token implements the checker's self-contained bearer token service.
//
// It is a closed-world stand-in for a real identity provider: the shared
// secret is fixed at build time and is adequate only for conformance
// testing, never production trust.
package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sharedSecret signs every issued token. Fixed at build time on purpose.
var sharedSecret = []byte("pathfinder-checker-stub-secret")

// tokenTTL is the encoded lifetime of an issued token.
const tokenTTL = time.Hour

// ErrInvalidToken is returned by Verify for every rejection reason.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies compact HS256 tokens. The randomness source
// and clock are injected so tests can substitute deterministic ones.
type Service struct {
	rand io.Reader
	now  func() time.Time
}

func NewService(rand io.Reader, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{rand: rand, now: now}
}

// Issue returns a three-part signed token encoding issue time and a
// one-hour expiry.
func (s *Service) Issue() (string, error) {
	issuedAt := s.now()

	jti, err := s.randomID()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := jwt.MapClaims{
		"iat": issuedAt.Unix(),
		"exp": issuedAt.Add(tokenTTL).Unix(),
		"jti": jti,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(sharedSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a compact token offline: part count, header algorithm tag,
// claim types, expiry against the service clock, and the HMAC signature.
// Every rejection wraps ErrInvalidToken.
func (s *Service) Verify(tokenString string) error {
	if parts := strings.Split(tokenString, "."); len(parts) != 3 {
		return fmt.Errorf("%w: expected 3 parts, got %d", ErrInvalidToken, len(parts))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return sharedSecret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	if _, ok := claims["iat"].(float64); !ok {
		return fmt.Errorf("%w: iat claim missing or wrong type", ErrInvalidToken)
	}
	if _, ok := claims["exp"].(float64); !ok {
		return fmt.Errorf("%w: exp claim missing or wrong type", ErrInvalidToken)
	}

	return nil
}

func (s *Service) randomID() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
