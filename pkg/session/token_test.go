package session_test

import (
	"testing"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue("sess-1", "iv-1", "r@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.InterviewID != "iv-1" || claims.Email != "r@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := session.NewTokenIssuer("secret-a", time.Hour).Issue("sess-1", "iv-1", "r@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = session.NewTokenIssuer("secret-b", time.Hour).Verify(token)
	if !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", -time.Minute)
	token, err := issuer.Issue("sess-1", "iv-1", "r@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := session.NewTokenIssuer("secret", time.Hour)
	if _, err := issuer.Verify("not-a-jwt"); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
