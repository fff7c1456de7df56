package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyRoundTrip(t *testing.T) {
	verifier, err := NewVerifier("secret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := verifier.Issue("auth0|42", "moe@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "auth0|42" || claims.Email != "moe@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	verifier, _ := NewVerifier("secret")
	other, _ := NewVerifier("other-secret")

	expired, _ := verifier.Issue("sub", "", -time.Minute)
	foreign, _ := other.Issue("sub", "", time.Hour)
	noSubject, _ := verifier.Issue("", "", time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "sub"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"expired":    expired,
		"foreign":    foreign,
		"no subject": noSubject,
		"alg none":   none,
		"garbage":    "not-a-token",
		"empty":      "",
	} {
		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected invalid token, got %v", name, err)
		}
	}
}

func TestSubjectContext(t *testing.T) {
	ctx := WithSubject(context.Background(), "sub")
	if subject, ok := SubjectFrom(ctx); !ok || subject != "sub" {
		t.Fatalf("expected subject on context, got %q %v", subject, ok)
	}
	if _, ok := SubjectFrom(context.Background()); ok {
		t.Fatalf("expected no subject on bare context")
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier("  "); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}
