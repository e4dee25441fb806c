// SPDX-License-Identifier: MPL-2.0

package terminal

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails to parse, fails
// signature verification, has expired, or carries no subject claim.
var ErrInvalidToken = errors.New("invalid or expired token")

// JWTVerifier verifies HMAC-signed bearer tokens and extracts the
// subject claim as the user id.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier builds a JWTVerifier using secret to validate HS256
// signatures.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify implements TokenVerifier.
func (v *JWTVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
