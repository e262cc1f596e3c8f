package services

import (
	"context"
	"testing"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mail.v2"
)

type capturingSender struct {
	messages []*mail.Message
	err      error
}

func (s *capturingSender) DialAndSend(m ...*mail.Message) error {
	s.messages = append(s.messages, m...)
	return s.err
}

func emailConfig(enabled bool) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AppBaseURL: "https://revision.example.com"},
		Email: config.EmailConfig{
			Enabled:              enabled,
			NotifyParentOnSignup: true,
			SMTP:                 config.SMTPConfig{Host: "smtp.example.com", Port: 587, FromAddress: "noreply@example.com", FromName: "Revision Aid"},
		},
	}
}

func TestNotificationService_SendParentWelcome(t *testing.T) {
	sender := &capturingSender{}
	svc := NewNotificationServiceWithSender(emailConfig(true), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}), sender)

	user := &models.User{Email: "student@example.com", Name: "Sam", ParentEmail: "parent@example.com", ParentName: "Pat"}
	require.NoError(t, svc.SendParentWelcome(context.Background(), user))
	require.Len(t, sender.messages, 1)

	m := sender.messages[0]
	assert.Equal(t, []string{"parent@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Sam has started revising"}, m.GetHeader("Subject"))

}

func TestRenderParentWelcome(t *testing.T) {
	body, err := renderParentWelcome(parentWelcomeData{
		ParentName:  "Pat",
		StudentName: "Sam <script>",
		ParentEmail: "parent@example.com",
		AppURL:      "https://revision.example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Hello Pat")
	assert.Contains(t, body, `href="https://revision.example.com/login"`)
	assert.NotContains(t, body, "<script>")

	body, err = renderParentWelcome(parentWelcomeData{ParentName: "Pat"})
	require.NoError(t, err)
	assert.NotContains(t, body, "/login")
}

func TestNotificationService_Disabled(t *testing.T) {
	sender := &capturingSender{}
	svc := NewNotificationServiceWithSender(emailConfig(false), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}), sender)

	assert.False(t, svc.IsEnabled())
	require.NoError(t, svc.SendParentWelcome(context.Background(), &models.User{ParentEmail: "parent@example.com"}))
	assert.Empty(t, sender.messages)
}

func TestNotificationService_SendFailure(t *testing.T) {
	sender := &capturingSender{err: assert.AnError}
	svc := NewNotificationServiceWithSender(emailConfig(true), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}), sender)

	err := svc.SendParentWelcome(context.Background(), &models.User{Email: "s@example.com", ParentEmail: "parent@example.com"})
	assert.Error(t, err)
}
