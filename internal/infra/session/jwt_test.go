package session

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

func newVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier("test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestVerify(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Sign(Claims{
		Role: "accountant",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s, err := v.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Authenticated || s.ActorID != "user-1" || s.Role != "accountant" {
		t.Errorf("unexpected session: %+v", s)
	}
}

func TestVerify_Rejects(t *testing.T) {
	v := newVerifier(t)
	other, _ := NewJWTVerifier("other-secret")

	expired, _ := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	foreign, _ := other.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
	noSubject, _ := v.Sign(Claims{Role: "admin"})

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	if _, err := NewJWTVerifier(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
