// Package token issues and verifies the signed bearer tokens used by both
// user and artist authentication. Tokens are stateless HS256 JWTs; invalidity
// is purely a function of signature and expiry, there is no server-side
// revocation.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 15 * time.Minute

// LoginTTL is the access-token lifetime granted on a successful login.
const LoginTTL = 30 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrKindMismatch = errors.New("token kind mismatch")
)

// Kind tags a token with the principal type it was issued for.
type Kind string

const (
	KindUser   Kind = "user"
	KindArtist Kind = "artist"
)

type Claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// SubjectID returns the numeric principal id carried in the subject claim.
func (c *Claims) SubjectID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Service signs and verifies tokens with a process-wide secret loaded at
// startup. Now is injectable so tests can use a fake clock.
type Service struct {
	Secret     []byte
	Now        func() time.Time
	DefaultTTL time.Duration
}

func NewService(secret []byte) *Service {
	return &Service{
		Secret:     secret,
		Now:        time.Now,
		DefaultTTL: DefaultTTL,
	}
}

func (s *Service) Issue(subjectID uint, kind Kind, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.DefaultTTL
	}
	now := s.Now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(subjectID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

// Verify checks signature and expiry, then the kind tag. A malformed, badly
// signed or expired token yields ErrInvalidToken; a valid token of the wrong
// kind yields ErrKindMismatch.
func (s *Service) Verify(raw string, expected Kind) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return s.Secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.Now() }))
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != expected {
		return nil, ErrKindMismatch
	}
	return &claims, nil
}
