package notifier

import (
	"crypto/tls"
	"fmt"

	"stepup/internal/models"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPNotifier delivers step-up codes through a mail server, typically an
// email to SMS or push gateway addressed by the device target.
type SMTPNotifier struct {
	client *mail.Client
	sender string
}

func NewSMTPNotifier(config models.MailerConfiguration) *SMTPNotifier {
	notifier, err := newSMTPNotifier(config)
	if err != nil {
		zap.L().Fatal("Failed to create SMTP client", zap.Error(err))
	}
	return notifier
}

func newSMTPNotifier(config models.MailerConfiguration) (*SMTPNotifier, error) {
	options := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         config.Host,
			InsecureSkipVerify: config.SkipVerifyTLS, //nolint:gosec // opt-in for local relays
			MinVersion:         tls.VersionTLS12,
		}),
	}

	if config.EnableTLS {
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		options = append(options, mail.WithTLSPolicy(mail.NoTLS))
	}

	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, options...)
	if err != nil {
		return nil, err
	}
	return &SMTPNotifier{client: client, sender: config.Sender}, nil
}

func (s *SMTPNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	body, err := render(templateName, data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err = msg.From(s.sender); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err = msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err = s.client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	zap.L().Info("Notification sent", zap.String("template", templateName))
	return nil
}
