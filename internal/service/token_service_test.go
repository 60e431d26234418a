package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepnest/mocktest-backend/internal/config"
)

func newTestTokenService(expiry time.Duration) *TokenService {
	return NewTokenService(&config.Config{
		TokenSecret: "test-secret",
		TokenExpiry: expiry,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	id := uuid.New()

	token, err := svc.Mint(id)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	got, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != id {
		t.Fatalf("session id = %s, want %s", got, id)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := newTestTokenService(time.Hour).Mint(uuid.New())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	other := NewTokenService(&config.Config{
		TokenSecret: "different-secret",
		TokenExpiry: time.Hour,
	})
	if _, err := other.Validate(token); err == nil {
		t.Fatal("expected validation failure with a different secret")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	svc := newTestTokenService(-time.Minute)
	token, err := svc.Mint(uuid.New())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	if _, err := svc.Validate("not-a-token"); err == nil {
		t.Fatal("expected validation failure for malformed token")
	}
}
