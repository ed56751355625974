package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTripCarriesPrincipal(t *testing.T) {
	m := &Manager{Secret: []byte("test-secret"), AccessTTL: time.Minute, Issuer: "jensie"}
	token, err := m.NewAccessToken(Principal{UserID: "doc-1", Role: RoleDoctor})
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	p, err := m.Principal(token)
	if err != nil {
		t.Fatalf("Principal error: %v", err)
	}
	if p.UserID != "doc-1" || p.Role != RoleDoctor {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	issuer := &Manager{Secret: []byte("a"), AccessTTL: time.Minute}
	verifier := &Manager{Secret: []byte("b"), AccessTTL: time.Minute}
	token, err := issuer.NewAccessToken(Principal{UserID: "u1", Role: RoleUser})
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	if _, err := verifier.Principal(token); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestTokenExpired(t *testing.T) {
	m := &Manager{Secret: []byte("s"), AccessTTL: -time.Minute}
	token, err := m.NewAccessToken(Principal{UserID: "u1", Role: RoleUser})
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	if _, err := m.Principal(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestActsForDoctor(t *testing.T) {
	if !(Principal{UserID: "doc-1", Role: RoleDoctor}).ActsForDoctor("doc-1") {
		t.Fatalf("doctor must act for self")
	}
	if (Principal{UserID: "doc-1", Role: RoleDoctor}).ActsForDoctor("doc-2") {
		t.Fatalf("doctor must not act for another doctor")
	}
	if (Principal{UserID: "doc-1", Role: RoleUser}).ActsForDoctor("doc-1") {
		t.Fatalf("patient must not act for a doctor")
	}
	if !(Principal{UserID: "root", Role: RoleAdmin}).ActsForDoctor("doc-2") {
		t.Fatalf("admin acts for every doctor")
	}
}
