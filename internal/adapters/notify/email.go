package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the email channel. An empty Host disables it.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// ErrNotConfigured is reported by a channel with no credentials.
var ErrNotConfigured = errors.New("not configured")

// EmailSender sends HTML mail over SMTP.
type EmailSender struct {
	from   string
	sender mailSender
}

// NewEmailSender returns a sender, or nil when cfg has no host.
func NewEmailSender(cfg SMTPConfig) *EmailSender {
	if cfg.Host == "" {
		return nil
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &EmailSender{from: cfg.From, sender: dialer}
}

// Confirmation sends the confirmation email with the e-ticket attached and
// returns the Message-ID.
func (e *EmailSender) Confirmation(ctx context.Context, to string, v TicketView) (string, error) {
	if e == nil {
		return "", ErrNotConfigured
	}
	body, err := render(confirmationHTML, v)
	if err != nil {
		return "", err
	}
	m := e.message(to, ConfirmationSubject(v), body)

	ticket, name, err := ETicketPDF(v)
	if err != nil {
		return "", err
	}
	m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(ticket)
		return err
	}), gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}))

	return e.send(ctx, m)
}

// Rejection sends the rejection email and returns the Message-ID.
func (e *EmailSender) Rejection(ctx context.Context, to string, v TicketView) (string, error) {
	if e == nil {
		return "", ErrNotConfigured
	}
	body, err := render(rejectionHTML, v)
	if err != nil {
		return "", err
	}
	return e.send(ctx, e.message(to, RejectionSubject, body))
}

func (e *EmailSender) message(to, subject, html string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@seatpass>", uuid.NewString()))
	m.SetBody("text/html", html)
	return m
}

func (e *EmailSender) send(ctx context.Context, m *gomail.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.sender.DialAndSend(m); err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	id := m.GetHeader("Message-ID")
	if len(id) == 0 {
		return "", nil
	}
	return id[0], nil
}
