// Package mailer relays notification e-mails through SendGrid.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

// Message is one plain-text e-mail to a single recipient.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// sender is the part of *sendgrid.Client the mailer uses.
type sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	client    sender
	fromName  string
	fromEmail string
	sandbox   bool
}

func NewSendGridMailer(apiKey, fromName, fromEmail string, sandbox bool) *SendGridMailer {
	return newSendGridMailer(sendgrid.NewSendClient(apiKey), fromName, fromEmail, sandbox)
}

func newSendGridMailer(client sender, fromName, fromEmail string, sandbox bool) *SendGridMailer {
	return &SendGridMailer{client: client, fromName: fromName, fromEmail: fromEmail, sandbox: sandbox}
}

func (m *SendGridMailer) Send(_ context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return fmt.Errorf("mailer: recipient %q has no e-mail address", msg.ToName)
	}
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")
	if m.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		email.MailSettings = ms
	}

	resp, err := m.client.Send(email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	utils.Logger.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
		"sandbox": m.sandbox,
	}).Debug("e-mail accepted by sendgrid")
	return nil
}

// NoopMailer drops every message. It is used when e-mail delivery is disabled.
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, Message) error { return nil }
