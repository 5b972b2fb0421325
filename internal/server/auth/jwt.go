// Package auth mints and verifies the HS256 tokens that carry the caller's
// identity. Users and farms are managed elsewhere; a token is trusted as long
// as its signature and expiry check out.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

// Claims is the token payload: standard claims plus the actor and the farm
// the token is scoped to.
type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"uid"`
	Name   string      `json:"name,omitempty"`
	Role   models.Role `json:"role"`
	FarmID string      `json:"farm,omitempty"`
}

// Actor returns the identity carried by the claims.
func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.UserID, Name: c.Name, Role: c.Role}
}

// GenerateToken signs a token for actor, scoped to farmID (empty means any
// farm) and valid for validityDuration.
func GenerateToken(actor models.Actor, farmID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: actor.ID,
		Name:   actor.Name,
		Role:   actor.Role,
		FarmID: farmID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, everything else that fails verification
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
