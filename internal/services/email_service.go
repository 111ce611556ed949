package services

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendMessageNotification(to, title, body string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	return &emailService{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
	}
}

func (s *emailService) SendMessageNotification(to, title, body string) error {
	m := buildMessageNotification(s.from, to, title, body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send message notification: %w", err)
	}
	return nil
}

func buildMessageNotification(from, to, title, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", fmt.Sprintf(`
		<h3>%s</h3>
		<p>%s</p>
		<p>Open the app to reply.</p>
	`, html.EscapeString(title), html.EscapeString(body)))
	return m
}
