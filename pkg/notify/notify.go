// Package notify renders and delivers outgoing email over SMTP.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	gomail "gopkg.in/mail.v2"

	"github.com/allstar/stockwatch/pkg/config"
)

// Message is a rendered email ready for delivery
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers messages via SMTP
type EmailSender struct {
	cfg config.SMTPConfig
}

// NewEmailSender creates a sender with the given SMTP configuration
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send delivers an email with HTML body and plain text fallback. With SMTP
// disabled in config the message is logged and dropped.
func (s *EmailSender) Send(msg Message) error {
	if s.cfg.Disabled() {
		lgr.Printf("[INFO] smtp disabled, skipping email to %s (subject: %s)", msg.To, msg.Subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	lgr.Printf("[DEBUG] email sent to %s (subject: %s)", msg.To, msg.Subject)
	return nil
}

// RenderWelcome builds the welcome email for a new user
func RenderWelcome(name, email, intro string) Message {
	html := strings.NewReplacer("{{name}}", name, "{{intro}}", intro).Replace(welcomeTemplate)
	return Message{
		To:      email,
		Subject: "Welcome to Allstar!",
		Text:    fmt.Sprintf("Hi %s,\n\n%s\n\nBest regards,\nThe Allstar Team", name, intro),
		HTML:    html,
	}
}

// RenderNewsSummary builds the daily digest email. newsContent is sanitized
// HTML produced by the summarizer.
func RenderNewsSummary(name, email, newsContent string, articleCount int, date time.Time) Message {
	dateStr := date.UTC().Format("Monday, January 2, 2006")
	html := strings.NewReplacer("{{date}}", dateStr, "{{newsContent}}", newsContent).Replace(newsSummaryTemplate)
	return Message{
		To:      email,
		Subject: fmt.Sprintf("Daily Market News Summary - %s", dateStr),
		Text:    fmt.Sprintf("Hi %s,\n\nHere's your daily market news summary with %d articles.\n\nBest regards,\nThe Allstar Team", name, articleCount),
		HTML:    html,
	}
}
