package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity is the verified view of a credential. It is immutable once
// issued; expiry is its only lifecycle transition.
type Identity struct {
	SubjectID int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenType Type
}

// Verifier checks credentials against a shared secret injected at
// construction time. Every service holds the same secret, so no runtime
// call to the issuing service is needed.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(credential string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(
		credential,
		&Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return v.secret, nil
		},
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	if claims.TokenType != string(TypeAccess) {
		return nil, fmt.Errorf("%w: not an access token", ErrUnauthenticated)
	}

	return &Identity{
		SubjectID: claims.UserID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		TokenType: Type(claims.TokenType),
	}, nil
}

// Issuer mints token pairs. Login and registration live in an external
// service; the issuer is kept here so that service and the tests share
// one token format.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *Issuer) Issue(userID int64) (string, string, error) {
	accessToken, err := i.sign(userID, TypeAccess, i.accessTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := i.sign(userID, TypeRefresh, i.refreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (i *Issuer) sign(userID int64, tokenType Type, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    userID,
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
