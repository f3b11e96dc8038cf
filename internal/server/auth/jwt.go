// Package auth implements the signing primitives for session tokens:
// HS256-signed JWTs carrying an account id and an expiry. Signature
// verification is the sole trust mechanism; nothing is persisted.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Claims are the assertions carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// GenerateToken mints an HS256-signed token asserting {userID, now+validity}.
// Each token carries a unique jti: iat/exp have second precision, so without
// it two tokens minted for the same account within the same second would be
// byte-identical. The jti also gives revocation denylists something to key on.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of tokenString and returns the
// asserted user id together with the encoded expiry.
//
// Error contract:
//   - common.ErrTokenExpired for a well-signed token past its expiry;
//     the returned expiry is still populated for client diagnostics.
//   - common.ErrInvalidToken for anything else (malformed, mis-signed,
//     wrong algorithm, missing user id).
func ParseToken(tokenString string, secretKey []byte) (string, time.Time, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			var expiresAt time.Time
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Time
			}
			return "", expiresAt, common.ErrTokenExpired
		}
		return "", time.Time{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", time.Time{}, common.ErrInvalidToken
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return claims.UserID, expiresAt, nil
}

// GetUserIDFromToken is a convenience wrapper around ParseToken for callers
// that only need the account id.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	userID, _, err := ParseToken(tokenString, secretKey)
	return userID, err
}
