// Package gmail delivers mail through the Gmail API, authenticated as the
// sending account with a stored OAuth refresh token.
//
// Obtain the refresh token once with the same OAuth client used for Google
// sign-in, requesting the gmail.send scope and offline access.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sakif/cashflow-api/internal/mailer"
)

// Ensure interface conformance
var _ mailer.Sender = (*Sender)(nil)

// Options configure the OAuth client behind the sender.
type Options struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string // "Name <address>" or a bare address
}

// Sender implements mailer.Sender.
type Sender struct {
	svc  *gmailapi.Service
	from *mail.Address
	now  func() time.Time
}

// New builds a Gmail API client whose token source refreshes access
// tokens from opts.RefreshToken as needed.
func New(ctx context.Context, opts Options) (*Sender, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RefreshToken == "" {
		return nil, errors.New("gmail: client id, client secret and refresh token are required")
	}

	cfg := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailSendScope},
	}
	ts := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: opts.RefreshToken})

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return newSender(svc, opts.From)
}

func newSender(svc *gmailapi.Service, from string) (*Sender, error) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("gmail: parsing from address %q: %w", from, err)
	}
	return &Sender{svc: svc, from: addr, now: time.Now}, nil
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg mailer.Message) error {
	raw, err := s.buildMIME(msg)
	if err != nil {
		return err
	}

	_, err = s.svc.Users.Messages.
		Send("me", &gmailapi.Message{Raw: base64.URLEncoding.EncodeToString(raw)}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("gmail: sending to %s: %w", msg.To, err)
	}
	return nil
}

// buildMIME renders msg as an RFC 5322 message with a
// multipart/alternative body: plain text first, HTML second.
func (s *Sender) buildMIME(msg mailer.Message) ([]byte, error) {
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("gmail: parsing recipient %q: %w", msg.To, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, fmt.Errorf("gmail: creating mime part: %w", err)
		}
		if _, err := pw.Write(wrapBase64(p.content)); err != nil {
			return nil, fmt.Errorf("gmail: writing mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("gmail: closing mime body: %w", err)
	}

	var out bytes.Buffer
	headers := []struct{ key, value string }{
		{"From", s.from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&out, "%s: %s\r\n", h.key, h.value)
	}
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// wrapBase64 encodes s and breaks it into 76-character lines.
func wrapBase64(s string) []byte {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	var out bytes.Buffer
	for len(enc) > 76 {
		out.WriteString(enc[:76])
		out.WriteString("\r\n")
		enc = enc[76:]
	}
	out.WriteString(enc)
	out.WriteString("\r\n")
	return out.Bytes()
}
