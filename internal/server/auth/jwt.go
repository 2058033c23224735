// Package auth is the token codec: it signs and verifies the HS256 access and
// refresh JWTs used by the session flow.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims carries the account id plus denormalized profile fields.
type AccessClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
}

// RefreshClaims carries only the account id.
type RefreshClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
}

// AccessPayload is the data encoded into an access token.
type AccessPayload struct {
	AccountID string
	Username  string
	Email     string
	FullName  string
}

func registered(validity time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}
}

// GenerateAccessToken signs an access token valid for validityDuration.
func GenerateAccessToken(p AccessPayload, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: registered(validityDuration),
		AccountID:        p.AccountID,
		Username:         p.Username,
		Email:            p.Email,
		FullName:         p.FullName,
	})
	return token.SignedString(secretKey)
}

// GenerateRefreshToken signs a refresh token valid for validityDuration.
// Every call yields a distinct string because of the random jti.
func GenerateRefreshToken(accountID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: registered(validityDuration),
		AccountID:        accountID,
	})
	return token.SignedString(secretKey)
}

// ParseAccessToken verifies signature and expiry and returns the payload.
func ParseAccessToken(tokenString string, secretKey []byte) (*AccessPayload, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}
	return &AccessPayload{
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Email:     claims.Email,
		FullName:  claims.FullName,
	}, nil
}

// ParseRefreshToken verifies signature and expiry and returns the account id.
func ParseRefreshToken(tokenString string, secretKey []byte) (string, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return "", err
	}
	if claims.AccountID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.AccountID, nil
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
