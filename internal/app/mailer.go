package app

import (
	"fmt"

	"github.com/linkupcampus/linkup/config"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// Mailer sends account notifications over SMTP.
type Mailer struct {
	cfg  config.MailConfig
	send func(m *gomail.Message) error
}

func NewMailer(cfg config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = func(msg *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		return d.DialAndSend(msg)
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled && m.cfg.Host != ""
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(u *domain.User) error {
	if !m.Enabled() {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetAddressHeader("To", u.Email, u.Name)
	msg.SetHeader("Subject", "Welcome to LinkUp")
	body := fmt.Sprintf("Hi %s,\n\nYour LinkUp account is ready.", u.Name)
	if u.UserType.CanSell() {
		body += " You can now post your services on the marketplace."
	} else {
		body += " Browse services from fellow students on the marketplace."
	}
	msg.SetBody("text/plain", body+"\n\nThe LinkUp team\n")
	if err := m.send(msg); err != nil {
		return errors.Wrap(err, "send welcome mail")
	}
	return nil
}
