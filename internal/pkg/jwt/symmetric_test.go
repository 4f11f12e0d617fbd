package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type fixedUUID struct{}

func (fixedUUID) Generate() string { return "0198f6a1-0000-7000-8000-000000000001" }

func newTestJWT(t *testing.T, now time.Time) *Symmetric {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "otpgate",
		Audiences: []string{"otpgate-api"},
		TTL:       time.Hour,
		Clock:     fixedClock{now: now},
		UUID:      fixedUUID{},
	})
	if err != nil {
		t.Fatalf("NewHS512() error: %v", err)
	}

	return s
}

func TestNewHS512ShortSecret(t *testing.T) {
	_, err := NewHS512(Config{Secret: []byte("short")})
	if !errors.Is(err, ErrSigningKeyTooShort) {
		t.Fatalf("NewHS512() error = %v, want ErrSigningKeyTooShort", err)
	}
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	s := newTestJWT(t, time.Now())

	token, err := s.Generate(42, "alice@example.com", "user")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.PrincipalID != 42 {
		t.Errorf("PrincipalID = %d, want 42", claims.PrincipalID)
	}
	if claims.Identity != "alice@example.com" {
		t.Errorf("Identity = %q", claims.Identity)
	}
	if claims.Role != "user" {
		t.Errorf("Role = %q", claims.Role)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, want 42", claims.Subject)
	}
}

func TestVerifyExpired(t *testing.T) {
	s := newTestJWT(t, time.Now().Add(-2*time.Hour))

	token, err := s.Generate(7, "bob@example.com", "user")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := s.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	s := newTestJWT(t, time.Now())

	token, err := s.Generate(7, "bob@example.com", "user")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := s.Verify(tampered); err == nil {
		t.Fatal("Verify() expected error for tampered signature")
	}
}
