package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	token, err := CreateToken(testSecret, "alice", "admin", time.Hour)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Username != "alice" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := CreateToken(testSecret, "alice", "user", time.Hour)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	if _, err := ValidateToken(strings.Repeat("x", 32), token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := CreateToken(testSecret, "bob", "user", -time.Minute)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	if _, err := ValidateToken(testSecret, token); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}

func TestShortSecretRejected(t *testing.T) {
	if _, err := CreateToken("short", "alice", "user", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
