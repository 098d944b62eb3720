package mail

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/netsupport-service/internal/config"
)

// Sender delivers templated messages. Delivery is fire-and-forget from the
// caller's perspective; failures are reported but never retried here.
type Sender interface {
	SendVerificationCode(to, code string) error
	SendResetCode(to, code string) error
}

// SMTPSender implements Sender over SMTP.
type SMTPSender struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender builds a sender from SMTP configuration.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendVerificationCode mails the signup verification code.
func (s *SMTPSender) SendVerificationCode(to, code string) error {
	body := fmt.Sprintf(`Your verification code is: %s

This code expires in 10 minutes.

If you did not create an account, please ignore this email.`, code)
	return s.send(to, "Verify your email address", body)
}

// SendResetCode mails the password reset code.
func (s *SMTPSender) SendResetCode(to, code string) error {
	body := fmt.Sprintf(`Your password reset code is: %s

This code expires in 10 minutes.

If you did not request a password reset, please ignore this email and your
password will remain unchanged.`, code)
	return s.send(to, "Reset your password", body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return s.dialer.DialAndSend(msg)
}

// GenerateCode produces a 6-digit numeric one-time code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
