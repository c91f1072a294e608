// Package auth turns a bearer token into the caller identity the election
// core needs. Tokens are issued by the campus login service; Issue exists so
// operators and tests can mint tokens carrying the same claims.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

type Identity struct {
	UserID  int  `json:"user_id"`
	Role    Role `json:"role"`
	HouseID *int `json:"house_id,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// RequireAdmin returns ErrUnauthorized unless the identity carries the admin role
func (i Identity) RequireAdmin() error {
	if !i.IsAdmin() {
		return fmt.Errorf("%w: admin role required", apperrors.ErrUnauthorized)
	}
	return nil
}

type Claims struct {
	UserID  int  `json:"user_id"`
	Role    Role `json:"role"`
	HouseID *int `json:"house_id,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates an HS256 token and returns the identity it carries
func (v *Verifier) Parse(tokenString string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: token expired", apperrors.ErrUnauthorized)
		}
		return Identity{}, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}

	if claims.UserID <= 0 || !claims.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: token is missing user or role", apperrors.ErrUnauthorized)
	}

	return Identity{
		UserID:  claims.UserID,
		Role:    claims.Role,
		HouseID: claims.HouseID,
	}, nil
}

func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  id.UserID,
		Role:    id.Role,
		HouseID: id.HouseID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
