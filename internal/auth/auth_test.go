package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssuerGenerateAndValidate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("test-secret", WithIssuer("test-issuer"), WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	token, exp, err := iss.Generate(Principal{UserID: "user-42", Email: "a@b.c", Role: "Admin", OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", exp)
	}

	claims, err := iss.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	p := claims.Principal()
	if p.UserID != "user-42" || p.Email != "a@b.c" || p.OrganizationID != "org-1" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if !p.IsAdmin() {
		t.Fatalf("expected normalized admin role, got %q", p.Role)
	}
}

func TestIssuerRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	iss, err := NewIssuer("secret-a", WithTTL(time.Minute), WithClock(clock))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, _, err := iss.Generate(Principal{UserID: "u1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	later, _ := NewIssuer("secret-a", WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
	if _, err := later.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other, _ := NewIssuer("secret-b", WithClock(clock))
	if _, err := other.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to be rejected, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1", Issuer: defaultIssuer})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := iss.ParseAndValidate(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none to be rejected, got %v", err)
	}

	if _, err := iss.ParseAndValidate("   "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected blank token to be rejected, got %v", err)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("  "); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := NewIssuer("s", WithTTL(-time.Second)); err == nil {
		t.Fatalf("expected negative ttl error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter22"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter23"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := CheckPasswordStrength("12345"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := CheckPasswordStrength("123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: "user-7", Role: RoleEmployee})
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatalf("expected no user in empty context")
	}
	ctx = ContextWithToken(ctx, "tok")
	if tok, ok := TokenFromContext(ctx); !ok || tok != "tok" {
		t.Fatalf("unexpected token: %q", tok)
	}
	if NormalizeRole("") != RoleEmployee || !ValidRole("ADMIN") || ValidRole("owner") {
		t.Fatalf("role helpers misbehaved")
	}
}
