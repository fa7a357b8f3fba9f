package web

import (
	"net/http"
	"time"

	"github.com/meehow/securebytes"
)

const (
	sessionCookie = "titan-session"
	flashCookie   = "titan-flash"
)

// Flash levels.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

// Cookies reads and writes the encrypted session and flash cookies.
type Cookies struct {
	sb     *securebytes.SecureBytes
	secure bool
}

// NewCookies returns cookie helpers encrypting with key.
func NewCookies(key []byte, secure bool) *Cookies {
	return &Cookies{sb: securebytes.New(key, securebytes.ASN1Serializer{}), secure: secure}
}

// SetSession stores the session token until expires.
func (c *Cookies) SetSession(w http.ResponseWriter, token string, expires time.Time) error {
	b64, err := c.sb.EncryptToBase64(token)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(sessionCookie, b64, expires))
	return nil
}

// SessionToken returns the session token of the request, or "" when absent or tampered with.
func (c *Cookies) SessionToken(r *http.Request) string {
	ck, err := r.Cookie(sessionCookie)
	if err != nil || ck.Value == "" {
		return ""
	}
	var token string
	if err := c.sb.DecryptBase64(ck.Value, &token); err != nil {
		return ""
	}
	return token
}

// ClearSession expires the session cookie.
func (c *Cookies) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(sessionCookie, "", time.Unix(0, 0)))
}

// AddFlash queues f for the next page the browser renders.
func (c *Cookies) AddFlash(w http.ResponseWriter, r *http.Request, f Flash) error {
	flashes := append(c.readFlashes(r), f)
	b64, err := c.sb.EncryptToBase64(flashes)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(flashCookie, b64, time.Now().Add(10*time.Minute)))
	return nil
}

// PopFlashes returns the queued flashes and clears them.
func (c *Cookies) PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := c.readFlashes(r)
	if len(flashes) > 0 {
		http.SetCookie(w, c.cookie(flashCookie, "", time.Unix(0, 0)))
	}
	return flashes
}

func (c *Cookies) readFlashes(r *http.Request) []Flash {
	ck, err := r.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	var flashes []Flash
	if err := c.sb.DecryptBase64(ck.Value, &flashes); err != nil {
		return nil
	}
	return flashes
}

func (c *Cookies) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
