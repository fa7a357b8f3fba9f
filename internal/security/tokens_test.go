package security

import (
	"testing"
	"time"
)

func TestTokenProvider_Session(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	token, exp, err := p.IssueSession("s1", "u1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if token == "" {
		t.Fatal("session token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	sid, uid, err := p.ValidateSession(token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if sid != "s1" || uid != "u1" {
		t.Errorf("ValidateSession: got sessionID=%q userID=%q", sid, uid)
	}
}

func TestTokenProvider_SessionInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	other, _, _ := LoadKeyPair("", "", true)
	foreign := NewTokenProvider(other, other.Public(), "test-issuer", "test-audience", time.Hour, time.Hour)
	foreignToken, _, _ := foreign.IssueSession("s1", "u1")

	wrongAud := NewTokenProvider(p.privateKey, p.publicKey, "test-issuer", "other-audience", time.Hour, time.Hour)
	wrongAudToken, _, _ := wrongAud.IssueSession("s1", "u1")

	expired := NewTokenProvider(p.privateKey, p.publicKey, "test-issuer", "test-audience", -time.Minute, time.Hour)
	expiredToken, _, _ := expired.IssueSession("s1", "u1")

	invitation, _ := p.IssueInvitation("openlabs", "titan", "a@example.com", "u1")

	testCases := []struct {
		name  string
		token string
	}{
		{"garbage", "invalid-token"},
		{"other signing key", foreignToken},
		{"wrong audience", wrongAudToken},
		{"expired", expiredToken},
		{"invitation used as session", invitation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := p.ValidateSession(tc.token); err != ErrInvalidToken {
				t.Errorf("ValidateSession: want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenProvider_Invitation(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	key, err := p.IssueInvitation("openlabs", "titan", " Guest@Example.com ", "u1")
	if err != nil {
		t.Fatalf("IssueInvitation: %v", err)
	}
	inv, err := p.ValidateInvitation(key)
	if err != nil {
		t.Fatalf("ValidateInvitation: %v", err)
	}
	if inv.Organisation != "openlabs" || inv.Project != "titan" || inv.Email != "guest@example.com" || inv.InvitedBy != "u1" {
		t.Errorf("ValidateInvitation = %+v", inv)
	}
	if inv.ExpiresAt.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want about a week from now", inv.ExpiresAt)
	}

	session, _, _ := p.IssueSession("s1", "u1")
	if _, err := p.ValidateInvitation(session); err != ErrInvalidToken {
		t.Errorf("ValidateInvitation(session token): want ErrInvalidToken, got %v", err)
	}
	if _, err := p.ValidateInvitation(key + "x"); err != ErrInvalidToken {
		t.Errorf("ValidateInvitation(tampered): want ErrInvalidToken, got %v", err)
	}
}
