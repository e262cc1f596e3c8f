package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// MessageSender delivers a composed message. *mail.Dialer satisfies it.
type MessageSender interface {
	DialAndSend(m ...*mail.Message) error
}

// NotificationService emails parents when a student account is created.
type NotificationService struct {
	cfg    *config.Config
	logger *observability.Logger
	sender MessageSender
}

var _ ParentNotifier = (*NotificationService)(nil)

// NewNotificationService creates a NotificationService that sends through SMTP
// when email is enabled and a host is configured.
func NewNotificationService(cfg *config.Config, logger *observability.Logger) *NotificationService {
	var sender MessageSender
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		sender = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}
	return NewNotificationServiceWithSender(cfg, logger, sender)
}

// NewNotificationServiceWithSender creates a NotificationService with an explicit sender
func NewNotificationServiceWithSender(cfg *config.Config, logger *observability.Logger, sender MessageSender) *NotificationService {
	return &NotificationService{cfg: cfg, logger: logger, sender: sender}
}

// IsEnabled returns whether parent notifications will be sent
func (n *NotificationService) IsEnabled() bool {
	return n.cfg.Email.Enabled && n.cfg.Email.NotifyParentOnSignup && n.sender != nil
}

// SendParentWelcome tells the parent that a student account now links to their email.
func (n *NotificationService) SendParentWelcome(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "SendParentWelcome",
		observability.AttributeUserEmail(user.Email),
		attribute.String("email.to", user.ParentEmail),
	)
	defer observability.FinishSpan(span, &err)

	if !n.IsEnabled() {
		n.logger.Debug(ctx, "Parent notifications disabled, skipping", map[string]interface{}{
			"user_email": user.Email,
		})
		return nil
	}

	body, err := renderParentWelcome(parentWelcomeData{
		ParentName:  user.ParentName,
		StudentName: user.Name,
		ParentEmail: user.ParentEmail,
		AppURL:      n.cfg.Server.AppBaseURL,
	})
	if err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", n.cfg.Email.SMTP.FromName, n.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", user.ParentEmail)
	m.SetHeader("Subject", fmt.Sprintf("%s has started revising", user.Name))
	m.SetBody("text/html", body)

	if err = n.sender.DialAndSend(m); err != nil {
		n.logger.Error(ctx, "Failed to send parent welcome email", err, map[string]interface{}{
			"to":         user.ParentEmail,
			"user_email": user.Email,
		})
		return contextutils.WrapError(err, "failed to send parent welcome email")
	}

	n.logger.Info(ctx, "Parent welcome email sent", map[string]interface{}{
		"to":         user.ParentEmail,
		"user_email": user.Email,
	})
	return nil
}

type parentWelcomeData struct {
	ParentName  string
	StudentName string
	ParentEmail string
	AppURL      string
}

var parentWelcomeTemplate = template.Must(template.New("parent_welcome").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Revision aid account</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>Hello {{.ParentName}},</h2>
  <p>{{.StudentName}} has created a revision aid account and linked it to {{.ParentEmail}}.</p>
  <p>Sign in as a parent with this email to follow their progress on each topic.</p>
  {{if .AppURL}}<p><a href="{{.AppURL}}/login">Open the revision aid</a></p>{{end}}
</body>
</html>`))

func renderParentWelcome(data parentWelcomeData) (string, error) {
	var buf strings.Builder
	if err := parentWelcomeTemplate.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to render parent welcome email")
	}
	return buf.String(), nil
}
