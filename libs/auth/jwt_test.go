package auth

import (
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		Sub:      "user-1",
		Email:    "ana@example.com",
		Name:     "Ana Souza",
		UserType: UserTypeClient,
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	}

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Sub != claims.Sub || got.UserType != UserTypeClient {
		t.Fatalf("unexpected claims: %+v", got)
	}

	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredTokenIsDistinguished(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		Sub: "user-1",
		Iat: time.Now().Add(-2 * time.Hour).Unix(),
		Exp: time.Now().Add(-time.Hour).Unix(),
	}
	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, secret); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatal("expected non-bearer header to be rejected")
	}
	if _, ok := BearerToken("Bearer "); ok {
		t.Fatal("expected empty bearer token to be rejected")
	}
	token, ok := BearerToken("Bearer abc.def.ghi")
	if !ok || token != "abc.def.ghi" {
		t.Fatalf("unexpected token %q ok=%v", token, ok)
	}
}
