package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetPasswordEmail(t *testing.T) {
	msg, err := ResetPasswordEmail("ada@example.com", "Ada", "https://app.example.com/reset-password?token=abc.def.ghi", 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Reset your CashFlow password", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi, Ada.")
	assert.Contains(t, msg.HTML, `href="https://app.example.com/reset-password?token=abc.def.ghi"`)
	assert.Contains(t, msg.HTML, "24 hours")
	assert.Contains(t, msg.Text, "https://app.example.com/reset-password?token=abc.def.ghi")
}

func TestResetPasswordEmail_EscapesName(t *testing.T) {
	msg, err := ResetPasswordEmail("x@example.com", "<script>alert(1)</script>", "https://app.example.com/r?token=t", time.Hour)
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "1 hour.")
}

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{24 * time.Hour, "24 hours"},
		{time.Hour, "1 hour"},
		{90 * time.Minute, "90 minutes"},
		{time.Minute, "1 minute"},
		{30 * time.Second, "30s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, humanDuration(tc.in), "humanDuration(%v)", tc.in)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), Message{To: "ada@example.com", Subject: "hello", Text: "body"}))
	assert.Contains(t, buf.String(), "ada@example.com")
}

func TestDisabled(t *testing.T) {
	err := Disabled{}.Send(context.Background(), Message{})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
