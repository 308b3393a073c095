package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds one delivery, dial included. Zero means only the caller's context applies.
	Timeout time.Duration
}

// SMTPMailer delivers one-time codes over SMTP.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(msg *gomail.Message) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		cfg:  cfg,
		send: func(msg *gomail.Message) error { return dialer.DialAndSend(msg) },
	}
}

// SendOTP mails code to address. It returns when the message is handed off,
// the timeout passes or ctx is done, whichever comes first; an abandoned
// delivery finishes in the background.
func (m *SMTPMailer) SendOTP(ctx context.Context, address, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	msg := m.otpMessage(address, code)
	done := make(chan error, 1)
	go func() { done <- m.send(msg) }()

	select {
	case err := <-done:
		if err != nil {
			logrus.WithError(err).WithField("email", address).Error("Failed to send OTP email")
			return fmt.Errorf("failed to send email: %w", err)
		}
	case <-ctx.Done():
		logrus.WithError(ctx.Err()).WithField("email", address).Error("OTP email delivery timed out")
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
	logrus.WithField("email", address).Info("OTP email sent")
	return nil
}

func (m *SMTPMailer) otpMessage(address, code string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", address)
	msg.SetHeader("Subject", "Your verification code")
	msg.SetBody("text/plain", fmt.Sprintf("Your verification code is %s. It expires in one hour.", code))
	return msg
}
