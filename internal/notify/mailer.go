package notify

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// smtpTimeout ограничивает соединение и каждую команду SMTP-диалога.
const smtpTimeout = 15 * time.Second

// Mailer доставляет письмо.
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

// SMTPConfig - параметры SMTP-сервера.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer отправляет письма через SMTP (STARTTLS, если сервер умеет;
// PLAIN-авторизация, если задан логин).
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer создаёт SMTP-почтальона.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send отправляет письмо. Отмена ctx прерывает соединение.
func (m *SMTPMailer) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMsg(m.cfg.From, email)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(smtpTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", email.To, err)
	}
	return nil
}

func buildMsg(from string, email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", from, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("smtp to %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)
	return msg, nil
}

// LogMailer только пишет письмо в лог. Используется без SMTP_HOST.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, email *Email) error {
	log.WithFields(log.Fields{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("Письмо (SMTP не настроен)")
	return nil
}
