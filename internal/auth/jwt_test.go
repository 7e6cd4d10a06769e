package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParse_ValidHS256(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{
		Name:             "dashboard",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "host-1"},
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "host-1" {
		t.Fatalf("expected subject host-1, got %q", claims.Subject)
	}
	if claims.Name != "dashboard" {
		t.Fatalf("expected name dashboard, got %q", claims.Name)
	}
}

func TestParse_RejectsUnexpectedAlgorithm(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	claims := Claims{
		Name: "dashboard",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "host-1",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenStr, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	if _, err := Parse(secret, tokenStr); err == nil {
		t.Fatalf("expected parse to reject non-HS256 token")
	}
}

func TestParse_RejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{Name: "old"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := Parse(secret, token); err == nil {
		t.Fatalf("expected parse to reject an expired token")
	}
}

func TestParse_RejectsWrongSecret(t *testing.T) {
	token, err := Issue([]byte("secret-a"), Claims{Name: "dashboard"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := Parse([]byte("secret-b"), token); err == nil {
		t.Fatalf("expected parse to reject a token signed with a different secret")
	}
}
