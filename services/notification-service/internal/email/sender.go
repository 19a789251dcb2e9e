package email

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type Sender interface {
	Send(to string, subject string, body string) error
}

// SMTPSender delivers through an unauthenticated relay such as Mailpit or a local MTA.
type SMTPSender struct {
	addr string
	from string
	now  func() time.Time
}

func NewSMTPSender(host string, port string, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "reservations@tavolo.local"
	}
	return &SMTPSender{
		addr: net.JoinHostPort(strings.TrimSpace(host), strings.TrimSpace(port)),
		from: from,
		now:  time.Now,
	}
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	msg := buildMessage(s.from, to, subject, body, s.now())
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

// buildMessage writes a minimal RFC 5322 message. Subject is folded onto one line so event
// data cannot inject headers.
func buildMessage(from, to, subject, body string, at time.Time) string {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		at.Format(time.RFC1123Z),
		body,
	)
}
