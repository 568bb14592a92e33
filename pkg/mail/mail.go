// Package mail sends order emails over SMTP:
//
//	mail.To(user.Email).
//	    Subject("Your order is confirmed").
//	    Body(html).
//	    Send()
package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/feastly/feastly/config"
)

// ErrNotConfigured is returned when MAIL_USERNAME is empty.
var ErrNotConfigured = errors.New("mail: MAIL_USERNAME not configured")

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// FromConfig reads MAIL_* keys.
func FromConfig() SMTP {
	return SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.MailFromName(),
	}
}

// SendFunc delivers a raw message. Replaced in tests.
type SendFunc func(cfg SMTP, from string, to []string, raw []byte) error

// Transport is used by every Message unless overridden with Via.
var Transport SendFunc = sendSMTP

type Message struct {
	to      []string
	cc      []string
	subject string
	body    string
	isHTML  bool
	cfg     SMTP
	send    SendFunc
}

// To starts an HTML message.
func To(addresses ...string) *Message {
	return &Message{to: addresses, isHTML: true, cfg: FromConfig()}
}

func (m *Message) CC(addresses ...string) *Message {
	m.cc = append(m.cc, addresses...)
	return m
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// UseConfig overrides the SMTP settings for this message.
func (m *Message) UseConfig(cfg SMTP) *Message {
	m.cfg = cfg
	return m
}

// Via overrides Transport for this message.
func (m *Message) Via(fn SendFunc) *Message {
	m.send = fn
	return m
}

func (m *Message) Send() error {
	if m.cfg.Username == "" {
		return ErrNotConfigured
	}
	if len(m.to) == 0 {
		return errors.New("mail: no recipients")
	}

	send := m.send
	if send == nil {
		send = Transport
	}
	rcpt := append(append([]string(nil), m.to...), m.cc...)
	return send(m.cfg, m.cfg.From, rcpt, m.raw())
}

func (m *Message) raw() []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	if len(m.cc) > 0 {
		b.WriteString("Cc: " + strings.Join(m.cc, ", ") + "\r\n")
	}
	b.WriteString("Subject: " + m.subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}

// sendSMTP uses implicit TLS on 465 and STARTTLS everywhere else.
func sendSMTP(cfg SMTP, from string, to []string, raw []byte) error {
	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if cfg.Port != "465" {
		return smtp.SendMail(addr, auth, from, to, raw)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("mail: TLS dial: %w", err)
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, a := range to {
		if err := client.Rcpt(a); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return w.Close()
}
