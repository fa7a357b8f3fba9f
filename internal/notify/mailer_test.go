package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"titan/internal/logger"
)

type sentMessage struct {
	from, to string
	msg      string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) Send(ctx context.Context, from, to string, msg []byte) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{from: from, to: to, msg: string(msg)})
	return nil
}

func newTestMailer(t *testing.T, sender Sender, fsys fstest.MapFS) *Mailer {
	t.Helper()
	m, err := NewMailer(sender, "titan@example.com", "https://titan.example.com/", fsys, "templates", logger.NewNop())
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	return m
}

func TestMailer_SendInvitation_BundledTemplates(t *testing.T) {
	sender := &recordingSender{}
	m, err := NewMailer(sender, "titan@example.com", "https://titan.example.com", Templates, "templates", logger.NewNop())
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	err = m.SendInvitation(context.Background(), Invitation{
		To: "guest@example.com", InviterName: "Alice", Organisation: "openlabs", Project: "titan", Key: "abc.def",
	})
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	got := sender.sent[0]
	if got.from != "titan@example.com" || got.to != "guest@example.com" {
		t.Errorf("from/to = %s/%s", got.from, got.to)
	}
	for _, want := range []string{
		"multipart/alternative",
		"To accept click: https://titan.example.com/invitation/abc.def",
		`<a href="https://titan.example.com/invitation/abc.def">`,
		"Alice invited you",
	} {
		if !strings.Contains(got.msg, want) {
			t.Errorf("message missing %q:\n%s", want, got.msg)
		}
	}
}

func TestMailer_MissingTemplatesFallBack(t *testing.T) {
	sender := &recordingSender{}
	m := newTestMailer(t, sender, fstest.MapFS{})

	if err := m.SendInvitation(context.Background(), Invitation{To: "a@example.com", Organisation: "o", Project: "p", Key: "k"}); err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}
	msg := sender.sent[0].msg
	if !strings.Contains(msg, "To accept click: https://titan.example.com/invitation/k") {
		t.Errorf("fallback body missing link:\n%s", msg)
	}
	if strings.Contains(msg, "multipart/alternative") {
		t.Error("message without html template should be text/plain only")
	}
}

func TestMailer_SendAssignment_SanitizesMessage(t *testing.T) {
	sender := &recordingSender{}
	fsys := fstest.MapFS{
		"templates/comment_mail-html.hbs": {Data: []byte(`<div>{{message}}</div>`)},
		"templates/comment_mail-text.hbs": {Data: []byte(`{{{message_text}}} {{{link}}}`)},
	}
	m := newTestMailer(t, sender, fsys)

	err := m.SendAssignment(context.Background(), Assignment{
		To: "bob@example.com", AuthorName: "Alice", Organisation: "openlabs", Project: "titan",
		TaskList: 2, Task: 5, Title: "Fix login", Status: "in-progress",
		Message: `<b>look</b><script>alert(1)</script> & go`,
	})
	if err != nil {
		t.Fatalf("SendAssignment: %v", err)
	}
	msg := sender.sent[0].msg
	if strings.Contains(msg, "<script>") {
		t.Errorf("script survived sanitising:\n%s", msg)
	}
	if !strings.Contains(msg, "<b>look</b>") {
		t.Errorf("html part lost allowed markup:\n%s", msg)
	}
	if !strings.Contains(msg, "look & go https://titan.example.com/comment/mail/openlabs/titan/2/5") {
		t.Errorf("text part = \n%s", msg)
	}
}

func TestMailer_SendError(t *testing.T) {
	boom := errors.New("provider down")
	m := newTestMailer(t, &recordingSender{err: boom}, fstest.MapFS{})
	err := m.SendInvitation(context.Background(), Invitation{To: "a@example.com", Key: "k"})
	if !errors.Is(err, boom) {
		t.Fatalf("SendInvitation = %v, want provider error", err)
	}
}

func TestNewMailer_InvalidTemplate(t *testing.T) {
	fsys := fstest.MapFS{"templates/invitation-html.hbs": {Data: []byte("{{#if}}")}}
	if _, err := NewMailer(&recordingSender{}, "f", "u", fsys, "templates", logger.NewNop()); err == nil {
		t.Fatal("NewMailer with broken template should fail")
	}
	if _, err := NewMailer(nil, "f", "u", nil, "templates", logger.NewNop()); err == nil {
		t.Fatal("NewMailer without sender should fail")
	}
}

func TestBuildMessage_Headers(t *testing.T) {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg, err := BuildMessage("from@example.com", "to@example.com", "Grüße", "plain", "", date)
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}
	s := string(msg)
	for _, want := range []string{
		"From: from@example.com\r\n",
		"To: to@example.com\r\n",
		"Subject: =?utf-8?q?Gr=C3=BC=C3=9Fe?=\r\n",
		"Date: Wed, 01 May 2024 12:00:00 +0000\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n\r\nplain",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("message missing %q:\n%s", want, s)
		}
	}
}
