package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	kindSession    = "session"
	kindInvitation = "invitation"
)

// SessionClaims holds JWT claims for the session cookie. Subject is the user id.
type SessionClaims struct {
	jwt.RegisteredClaims
	Kind      string `json:"kind"`
	SessionID string `json:"session_id"`
}

// InvitationClaims holds JWT claims for a project invitation key. Subject is the invited email.
type InvitationClaims struct {
	jwt.RegisteredClaims
	Kind         string `json:"kind"`
	Organisation string `json:"org"`
	Project      string `json:"project"`
	InvitedBy    string `json:"invited_by"`
}

// Invitation is a decoded invitation key.
type Invitation struct {
	Organisation string
	Project      string
	Email        string
	InvitedBy    string
	ExpiresAt    time.Time
}

// TokenProvider issues and validates JWT session and invitation tokens using RS256 or ES256 (private/public key).
type TokenProvider struct {
	privateKey    crypto.Signer
	publicKey     crypto.PublicKey
	issuer        string
	audience      string
	sessionTTL    time.Duration
	invitationTTL time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on every parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, sessionTTL, invitationTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey:    privateKey,
		publicKey:     publicKey,
		issuer:        issuer,
		audience:      audience,
		sessionTTL:    sessionTTL,
		invitationTTL: invitationTTL,
	}
}

// SessionTTL is the lifetime of issued session tokens.
func (p *TokenProvider) SessionTTL() time.Duration { return p.sessionTTL }

// IssueSession issues the session JWT stored in the browser cookie.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueSession(sessionID, userID string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.sessionTTL)
	token, err = p.sign(SessionClaims{
		RegisteredClaims: p.registered(jti, userID, now, expiresAt),
		Kind:             kindSession,
		SessionID:        sessionID,
	})
	return token, expiresAt, err
}

// ValidateSession parses and validates a session token (signature, exp, iss, aud, kind).
// Returns sessionID and userID.
func (p *TokenProvider) ValidateSession(tokenString string) (sessionID, userID string, err error) {
	claims := &SessionClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return "", "", err
	}
	if claims.Kind != kindSession || claims.SessionID == "" || claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return claims.SessionID, claims.Subject, nil
}

// IssueInvitation signs an invitation key for email to join project of organisation.
func (p *TokenProvider) IssueInvitation(organisation, project, email, invitedBy string) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	return p.sign(InvitationClaims{
		RegisteredClaims: p.registered(jti, strings.ToLower(strings.TrimSpace(email)), now, now.Add(p.invitationTTL)),
		Kind:             kindInvitation,
		Organisation:     organisation,
		Project:          project,
		InvitedBy:        invitedBy,
	})
}

// ValidateInvitation parses and validates an invitation key.
func (p *TokenProvider) ValidateInvitation(key string) (*Invitation, error) {
	claims := &InvitationClaims{}
	if err := p.parse(key, claims); err != nil {
		return nil, err
	}
	if claims.Kind != kindInvitation || claims.Organisation == "" || claims.Project == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	inv := &Invitation{
		Organisation: claims.Organisation,
		Project:      claims.Project,
		Email:        claims.Subject,
		InvitedBy:    claims.InvitedBy,
	}
	if claims.ExpiresAt != nil {
		inv.ExpiresAt = claims.ExpiresAt.Time
	}
	return inv, nil
}

func (p *TokenProvider) registered(jti, subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch KeyAlg(p.privateKey.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithIssuer(p.issuer))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	aud, err := claims.GetAudience()
	if err != nil || !slices.Contains([]string(aud), p.audience) {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
