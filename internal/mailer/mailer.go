// Package mailer renders and delivers transactional email.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

var (
	resetHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/reset_password.html"))
	resetText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/reset_password.txt"))
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("mailer: email delivery is not configured")

// Message is one outgoing email. HTML and Text are alternative bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Disabled refuses every message.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error {
	return ErrNotConfigured
}

// LogSender writes messages to the log instead of sending them. It stands
// in for real delivery in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (development)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}

type resetData struct {
	Name      string
	Link      string
	ExpiresIn string
}

// ResetPasswordEmail renders the password-reset message. link already
// carries the token; validFor is shown to the reader.
func ResetPasswordEmail(to, name, link string, validFor time.Duration) (Message, error) {
	data := resetData{Name: name, Link: link, ExpiresIn: humanDuration(validFor)}

	var html, text bytes.Buffer
	if err := resetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("mailer: rendering reset html: %w", err)
	}
	if err := resetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("mailer: rendering reset text: %w", err)
	}

	return Message{
		To:      to,
		Subject: "Reset your CashFlow password",
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
