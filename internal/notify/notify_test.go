package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabled_NeverDelivers(t *testing.T) {
	err := Disabled{}.SendVerificationCode(context.Background(), "a@x.com", "123456", time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrDeliveryDisabled)
}

func TestNewSMTP_RequiresCredentials(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)

	n, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", Username: "mailer@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 587, n.cfg.Port)
	assert.Equal(t, "mailer@example.com", n.cfg.From)
	assert.Equal(t, 15*time.Second, n.cfg.Timeout)
}

func TestSMTP_BuildMessage(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	n, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", Username: "mailer@example.com", Password: "secret"})
	require.NoError(t, err)
	n.now = func() time.Time { return now }

	msg, err := n.buildMessage("student@example.com", "482913", now.Add(10*time.Minute))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "student@example.com")
	assert.Contains(t, out, "482913")
	assert.Contains(t, out, "10 minutes")
}

func TestSMTP_BuildMessage_InvalidRecipient(t *testing.T) {
	n, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", Username: "mailer@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = n.buildMessage("not an address", "482913", time.Now().Add(10*time.Minute))
	assert.Error(t, err)
}

func TestSMTP_SendFailsWithoutServer(t *testing.T) {
	n, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: 1, Username: "u@example.com", Password: "p", Timeout: time.Second})
	require.NoError(t, err)

	err = n.SendVerificationCode(context.Background(), "student@example.com", "482913", time.Now().Add(10*time.Minute))
	assert.Error(t, err)
}
