// Package auth issues and verifies bearer tokens and implements the account
// operations behind /api/auth.
package auth

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	Access  TokenType = "access"
	Refresh TokenType = "refresh"
)

// ErrInvalidToken is returned for malformed, expired or mistyped tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload.
type Claims struct {
	UserID int64     `json:"user_id"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Pair is an access/refresh token pair.
type Pair struct {
	Access  string
	Refresh string
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens creates a Tokens with the given signing secret and lifetimes.
func NewTokens(secret []byte, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue returns a fresh pair for userID.
func (t *Tokens) Issue(userID int64) (Pair, error) {
	access, err := t.sign(userID, Access, t.accessTTL)
	if err != nil {
		return Pair{}, errors.Wrap(err, "sign access token")
	}
	refresh, err := t.sign(userID, Refresh, t.refreshTTL)
	if err != nil {
		return Pair{}, errors.Wrap(err, "sign refresh token")
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (t *Tokens) sign(userID int64, typ TokenType, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses raw and returns the user id if it is a valid token of typ.
func (t *Tokens) Verify(raw string, typ TokenType) (int64, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Type != typ || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
