// Package mail delivers the change-triggered submission notification.
// It runs out-of-band: a delivery failure degrades to plain text, and a
// total failure is logged and swallowed, never touching the submission's
// success response.
package mail

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"formsheet/internal/errors"
	"formsheet/internal/events"
	"formsheet/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Config holds SMTP delivery settings.
type Config struct {
	SMTPHost string
	SMTPPort string
	From     string
	To       string
	Subject  string
}

// Mailer renders the last submission into an HTML + plain-text message and
// delivers it over SMTP. Implements ports.Notifier.
type Mailer struct {
	store ports.TabularStore
	cfg   Config

	// sendMail is swappable in tests; defaults to smtp.SendMail.
	sendMail func(addr string, from string, to []string, msg []byte) error
}

// NewMailer creates a mailer reading rows from the given store.
func NewMailer(store ports.TabularStore, cfg Config) *Mailer {
	return &Mailer{
		store: store,
		cfg:   cfg,
		sendMail: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Run consumes change events until ctx is cancelled. Each event triggers an
// independent last-row fetch, so a positionally superseded row still renders
// a self-consistent message.
func (m *Mailer) Run(ctx context.Context, changes <-chan events.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-changes:
			if !ok {
				return
			}
			if err := m.NotifyLastRow(ctx); err != nil {
				log.Printf("[Mailer] Notification for event %s failed: %v", event.EventID, err)
			}
		}
	}
}

// NotifyLastRow fetches the last row and attempts delivery, degrading to a
// plain-text only message when the rich delivery fails.
func (m *Mailer) NotifyLastRow(ctx context.Context) error {
	snapshot, err := m.store.Snapshot()
	if err != nil {
		return errors.NotifyError("failed to read store for notification", err)
	}
	if len(snapshot) < 2 {
		return nil
	}
	schema := snapshot[0]
	last := snapshot[len(snapshot)-1]

	body := buildBody(schema, last)
	plain := body
	htmlBody := renderHTML(body)

	if err := m.send(plain, htmlBody); err != nil {
		log.Printf("[Mailer] Rich delivery failed, retrying plain text: %v", err)
		if err := m.send(plain, ""); err != nil {
			return errors.NotifyError("notification delivery failed", err)
		}
	}
	return nil
}

// buildBody renders the submission as a markdown document. The plain-text
// part is the markdown itself; the HTML part is its rendering.
func buildBody(schema []string, row []string) string {
	var b strings.Builder
	b.WriteString("Bonjour,\n\nUne nouvelle candidature a été soumise :\n\n")
	b.WriteString("## Informations\n\n")
	for i, label := range schema {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "- **%s** : %s\n", label, value)
	}
	b.WriteString("\n---\nCode Arena 2025\n")
	return b.String()
}

func renderHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md), p, renderer))
}

// send builds a MIME message and hands it to SMTP. An empty htmlBody sends
// plain text only.
func (m *Mailer) send(plain, htmlBody string) error {
	msg, err := buildMessage(m.cfg.From, m.cfg.To, m.cfg.Subject, plain, htmlBody)
	if err != nil {
		return err
	}
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	return m.sendMail(addr, m.cfg.From, strings.Split(m.cfg.To, ","), msg)
}

func buildMessage(from, to, subject, plain, htmlBody string) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(plain)
		return []byte(b.String()), nil
	}

	var parts strings.Builder
	writer := multipart.NewWriter(&parts)

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(plain)); err != nil {
		return nil, err
	}

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(htmlBody)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", writer.Boundary())
	b.WriteString(parts.String())
	return []byte(b.String()), nil
}
