// Package mailer delivers verification and password reset links.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends the links that carry one-time tokens to the account owner.
type Mailer interface {
	SendVerifyEmail(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// sender is the part of *gomail.Dialer the mailer uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Links builds the client URLs a token is embedded in.
type Links struct {
	BaseURL string
}

func (l Links) VerifyEmail(token string) string {
	return l.build("/verify-email", token)
}

func (l Links) ForgotPassword(token string) string {
	return l.build("/forgot-password", token)
}

func (l Links) build(path, token string) string {
	return strings.TrimRight(l.BaseURL, "/") + path + "?" + url.Values{"token": {token}}.Encode()
}

// SMTPMailer sends HTML messages through an SMTP relay.
type SMTPMailer struct {
	sender sender
	from   string
	links  Links
}

func NewSMTPMailer(c config.SMTPConfig, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		sender: gomail.NewDialer(c.Host, c.Port, c.User, c.Password),
		from:   c.From,
		links:  Links{BaseURL: baseURL},
	}
}

func (m *SMTPMailer) SendVerifyEmail(_ context.Context, to, token string) error {
	body := fmt.Sprintf(`
		<h3>Confirm your email</h3>
		<p>Follow the link below to verify your account:</p>
		<p><a href="%[1]s">%[1]s</a></p>
		<p>If you did not create an account, you can ignore this email.</p>
	`, m.links.VerifyEmail(token))

	if err := m.send(to, "Verify your email", body); err != nil {
		return fmt.Errorf("failed to send verify email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, token string) error {
	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p><a href="%[1]s">%[1]s</a></p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, m.links.ForgotPassword(token))

	if err := m.send(to, "Password reset request", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)
	return m.sender.DialAndSend(msg)
}

// LogMailer writes links to the log instead of sending them.
// Local development only: the links carry live tokens.
type LogMailer struct {
	logger logging.Logger
	links  Links
}

func NewLogMailer(logger logging.Logger, baseURL string) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer"), links: Links{BaseURL: baseURL}}
}

func (m *LogMailer) SendVerifyEmail(ctx context.Context, to, token string) error {
	m.logger.Info(ctx, "verify email (dry run)", "to", to, "link", m.links.VerifyEmail(token))
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.logger.Info(ctx, "password reset (dry run)", "to", to, "link", m.links.ForgotPassword(token))
	return nil
}

// New picks the SMTP mailer, or the log mailer when c.MailDryRun is set.
func New(c *config.Config, logger logging.Logger) Mailer {
	if c.MailDryRun {
		return NewLogMailer(logger, c.PublicBaseURL)
	}
	return NewSMTPMailer(c.SMTP, c.PublicBaseURL)
}
