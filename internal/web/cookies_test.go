package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testCookies() *Cookies {
	return NewCookies([]byte("0123456789abcdef0123456789abcdef"), false)
}

func TestCookies_SessionRoundTrip(t *testing.T) {
	c := testCookies()
	rec := httptest.NewRecorder()
	if err := c.SetSession(rec, "token-123", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie flags = %+v, want HttpOnly and SameSite=Lax", cookies[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	if got := c.SessionToken(req); got != "token-123" {
		t.Fatalf("SessionToken = %q, want %q", got, "token-123")
	}

	other := NewCookies([]byte("fedcba9876543210fedcba9876543210"), false)
	if got := other.SessionToken(req); got != "" {
		t.Fatalf("SessionToken with another key = %q, want empty", got)
	}

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: sessionCookie, Value: "not-base64!"})
	if got := c.SessionToken(tampered); got != "" {
		t.Fatalf("SessionToken(tampered) = %q, want empty", got)
	}
}

func TestCookies_Flashes(t *testing.T) {
	c := testCookies()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := c.AddFlash(rec, req, Flash{Level: FlashSuccess, Message: "Team created."}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range rec.Result().Cookies() {
		next.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	got := c.PopFlashes(rec, next)
	if len(got) != 1 || got[0].Message != "Team created." || got[0].Level != FlashSuccess {
		t.Fatalf("PopFlashes = %+v, want one success flash", got)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].Value != "" {
		t.Fatalf("PopFlashes cookies = %+v, want one cleared cookie", cleared)
	}

	if got := c.PopFlashes(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Fatalf("PopFlashes without cookie = %+v, want nil", got)
	}
}
