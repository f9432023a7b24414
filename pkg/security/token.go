package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity embedded in a session token
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 signed session tokens. Tokens are
// stateless, validity depends only on the signature and the expiry
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued tokens stay valid
func (t *TokenCodec) TTL() time.Duration {
	return t.ttl
}

// Issue creates a token for the given user that expires after the codec's TTL
func (t *TokenCodec) Issue(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("no user ID provided")
	}

	now := t.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})

	return token.SignedString(t.secret)
}

// Verify checks the signature and expiry of s. On any failure it returns
// false and callers must treat the request as having no identity
func (t *TokenCodec) Verify(s string) (*Claims, bool) {
	if s == "" {
		return nil, false
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(s, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}

	if claims.UserID == "" {
		return nil, false
	}

	return claims, true
}
