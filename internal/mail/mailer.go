package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer delivers transactional mail. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	from string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes mail to the process log instead of delivering it.
// Used in development and when SMTP is not configured.
type LogMailer struct {
	appName string
}

func NewLogMailer(appName string) *LogMailer {
	return &LogMailer{appName: appName}
}

func (m *LogMailer) Send(to, subject, body string) error {
	log.Printf("[%s mail] to=%s subject=%q body=%q", m.appName, to, subject, body)
	return nil
}

// OTPSubject and OTPBody produce the one-time code message.
func OTPSubject(appName string) string {
	return fmt.Sprintf("Your %s verification code", appName)
}

func OTPBody(appName, code string, minutes int) string {
	return fmt.Sprintf(
		"Your %s verification code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this message.",
		appName, code, minutes)
}
