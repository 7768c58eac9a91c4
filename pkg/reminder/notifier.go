package reminder

import (
	"context"
	"fmt"
	"sync"

	"github.com/agendly/agendly/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// EmailSender delivers one plain-text email. It returns once the transport
// has accepted or rejected the message.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient, subject, body string) error
}

// NewEmailSender picks the transport configured under email.provider.
func NewEmailSender(cfg config.Email) (EmailSender, error) {
	switch cfg.Provider {
	case config.EmailProviderSMTP:
		return NewSMTPSender(cfg)
	case config.EmailProviderLog, "":
		log.Warn("email provider is 'log', reminder emails will only be logged")
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("%w: unknown email provider %q", ErrConfiguration, cfg.Provider)
	}
}

type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg config.Email) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: email.host is required for the smtp provider", ErrConfiguration)
	}
	tlsPolicy := mail.TLSOpportunistic
	if cfg.StartTLS {
		tlsPolicy = mail.TLSMandatory
	}
	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, recipient, subject, body string) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("%w: invalid sender %q: %w", ErrConfiguration, s.from, err)
	}
	if err := m.To(recipient); err != nil {
		return fmt.Errorf("%w: invalid recipient %q: %w", ErrConfiguration, recipient, err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}
	log.Debugf("email sent to %s", recipient)
	return nil
}

type SentEmail struct {
	Recipient string
	Subject   string
	Body      string
}

// LogSender logs emails instead of sending them and keeps what it "sent".
type LogSender struct {
	mu   sync.Mutex
	sent []SentEmail
}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (l *LogSender) SendEmail(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}
	l.mu.Lock()
	l.sent = append(l.sent, SentEmail{Recipient: recipient, Subject: subject, Body: body})
	l.mu.Unlock()
	log.WithFields(log.Fields{
		"recipient": recipient,
		"subject":   subject,
	}).Info("reminder email (log provider)")
	return nil
}

func (l *LogSender) Sent() []SentEmail {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SentEmail(nil), l.sent...)
}
