package utils

import (
	"errors"
	"testing"
	"time"
)

func TestTokenPairRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "plc-agent")

	pair, err := m.GenerateTokenPair("u-1", "pro", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	access, err := m.ParseToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken(access): %v", err)
	}
	if access.UserID != "u-1" || access.Tier != "pro" || access.Type != TokenTypeAccess {
		t.Fatalf("unexpected access claims: %+v", access)
	}

	refresh, err := m.ParseToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseToken(refresh): %v", err)
	}
	if refresh.Type != TokenTypeRefresh {
		t.Fatalf("refresh type = %q", refresh.Type)
	}
}

func TestParseTokenRejects(t *testing.T) {
	m := NewJWTManager("secret", "plc-agent")

	expired, err := m.GenerateToken("u-1", "free", TokenTypeAccess, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseToken(expired); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expired token err = %v", err)
	}

	other := NewJWTManager("other-secret", "plc-agent")
	foreign, err := other.GenerateToken("u-1", "free", TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseToken(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign token err = %v", err)
	}

	wrongIssuer, err := NewJWTManager("secret", "someone-else").GenerateToken("u-1", "free", TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseToken(wrongIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong issuer err = %v", err)
	}
}

func TestParseTokenToleratesSmallSkew(t *testing.T) {
	issuer := NewJWTManager("secret", "plc-agent")
	issuer.now = func() time.Time { return time.Now().Add(10 * time.Second) }

	tok, err := issuer.GenerateToken("u-1", "free", TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTManager("secret", "plc-agent").ParseToken(tok); err != nil {
		t.Fatalf("token issued 10s ahead rejected: %v", err)
	}
}

func TestParseTokenRejectsNoneAlg(t *testing.T) {
	m := NewJWTManager("secret", "plc-agent")
	// {"alg":"none"} 头
	forged := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VyX2lkIjoidS0xIiwiaXNzIjoicGxjLWFnZW50In0."
	if _, err := m.ParseToken(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg none err = %v", err)
	}
}
