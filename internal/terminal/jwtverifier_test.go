// SPDX-License-Identifier: MPL-2.0

package terminal

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTVerifier_ValidTokenReturnsSubject(t *testing.T) {
	secret := []byte("test-signing-key")
	v := NewJWTVerifier(secret)

	claims := jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := signToken(t, secret, claims, jwt.SigningMethodHS256)

	userID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected subject u1, got %q", userID)
	}
}

func TestJWTVerifier_WrongSecretRejected(t *testing.T) {
	v := NewJWTVerifier([]byte("real-secret"))

	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}
	token := signToken(t, []byte("wrong-secret"), claims, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTVerifier_ExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-signing-key")
	v := NewJWTVerifier(secret)

	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}
	token := signToken(t, secret, claims, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTVerifier_MissingSubjectRejected(t *testing.T) {
	secret := []byte("test-signing-key")
	v := NewJWTVerifier(secret)

	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	token := signToken(t, secret, claims, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTVerifier_WrongSigningMethodRejected(t *testing.T) {
	secret := []byte("test-signing-key")
	v := NewJWTVerifier(secret)

	if _, err := v.Verify("not-a-jwt-at-all"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := v.Verify(noneToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}
}

func TestJWTVerifier_EmptyTokenRejected(t *testing.T) {
	v := NewJWTVerifier([]byte("test-signing-key"))
	if _, err := v.Verify(""); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
