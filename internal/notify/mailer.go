package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"github.com/microcosm-cc/bluemonday"

	"titan/internal/logger"
)

const (
	invitationTemplate = "invitation"
	commentTemplate    = "comment_mail"
)

// Mailer renders handlebars templates into multipart messages and hands them to a Sender.
type Mailer struct {
	sender    Sender
	from      string
	publicURL string
	templates map[string]*raymond.Template
	strict    *bluemonday.Policy
	ugc       *bluemonday.Policy
	log       *logger.Logger
}

// NewMailer parses every *.hbs file under dir in fsys. A template named
// "invitation-html.hbs" is registered as "invitation-html".
func NewMailer(sender Sender, from, publicURL string, fsys fs.FS, dir string, log *logger.Logger) (*Mailer, error) {
	if sender == nil {
		return nil, errors.New("notify: sender is required")
	}
	m := &Mailer{
		sender:    sender,
		from:      from,
		publicURL: strings.TrimRight(publicURL, "/"),
		templates: map[string]*raymond.Template{},
		strict:    bluemonday.StrictPolicy(),
		ugc:       bluemonday.UGCPolicy(),
		log:       log.Named("mailer"),
	}
	if fsys == nil {
		return m, nil
	}
	names, err := fs.Glob(fsys, path.Join(dir, "*.hbs"))
	if err != nil {
		return nil, fmt.Errorf("notify: list templates: %w", err)
	}
	for _, name := range names {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("notify: read %s: %w", name, err)
		}
		tpl, err := raymond.Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("notify: parse %s: %w", name, err)
		}
		m.templates[strings.TrimSuffix(path.Base(name), ".hbs")] = tpl
	}
	return m, nil
}

// Invitation describes a project invitation email.
type Invitation struct {
	To           string
	InviterName  string
	Organisation string
	Project      string
	Key          string
}

// SendInvitation mails the invitation link. Delivery errors are returned to the caller.
func (m *Mailer) SendInvitation(ctx context.Context, inv Invitation) error {
	link := m.publicURL + "/invitation/" + url.PathEscape(inv.Key)
	data := map[string]interface{}{
		"inviter":      inv.InviterName,
		"organisation": inv.Organisation,
		"project":      inv.Project,
		"link":         link,
	}
	subject := fmt.Sprintf("Invitation to join %s on %s", inv.Project, inv.Organisation)
	text, html := m.render(invitationTemplate, data, fmt.Sprintf("To accept click: %s", link))
	return m.send(ctx, inv.To, subject, text, html)
}

// Assignment describes the email sent to the assignee of a task after a follow-up.
type Assignment struct {
	To           string
	AuthorName   string
	Organisation string
	Project      string
	TaskList     int
	Task         int
	Title        string
	Status       string
	Message      string
}

// SendAssignment mails the follow-up to the task's new assignee.
func (m *Mailer) SendAssignment(ctx context.Context, a Assignment) error {
	link := fmt.Sprintf("%s/comment/mail/%s/%s/%d/%d", m.publicURL,
		url.PathEscape(a.Organisation), url.PathEscape(a.Project), a.TaskList, a.Task)
	data := map[string]interface{}{
		"author":       a.AuthorName,
		"organisation": a.Organisation,
		"project":      a.Project,
		"title":        a.Title,
		"status":       a.Status,
		"message":      raymond.SafeString(m.ugc.Sanitize(a.Message)),
		"message_text": stdhtml.UnescapeString(m.strict.Sanitize(a.Message)),
		"link":         link,
	}
	subject := fmt.Sprintf("[%s/%s] #%d.%d %s", a.Organisation, a.Project, a.TaskList, a.Task, a.Title)
	text, html := m.render(commentTemplate, data, fmt.Sprintf("To view click: %s", link))
	return m.send(ctx, a.To, subject, text, html)
}

// render executes name-text and name-html. A missing or failing text template
// falls back to fallback; a missing html template leaves html empty.
func (m *Mailer) render(name string, data map[string]interface{}, fallback string) (text, html string) {
	text = fallback
	if tpl, ok := m.templates[name+"-text"]; ok {
		out, err := tpl.Exec(data)
		if err != nil {
			m.log.Warn("render text template", "template", name, "error", err)
		} else {
			text = out
		}
	}
	if tpl, ok := m.templates[name+"-html"]; ok {
		out, err := tpl.Exec(data)
		if err != nil {
			m.log.Warn("render html template", "template", name, "error", err)
		} else {
			html = out
		}
	}
	return text, html
}

func (m *Mailer) send(ctx context.Context, to, subject, text, html string) error {
	msg, err := BuildMessage(m.from, to, subject, text, html, time.Now())
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, m.from, to, msg)
}

// BuildMessage encodes a MIME message. When html is empty the body is text/plain only,
// otherwise a multipart/alternative with both parts.
func BuildMessage(from, to, subject, text, html string, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if html == "" {
		header("Content-Type", "text/plain; charset=utf-8")
		buf.WriteString("\r\n")
		buf.WriteString(text)
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	header("Content-Type", "multipart/alternative; boundary="+w.Boundary())
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}
