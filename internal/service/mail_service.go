package service

import (
	"classhub_backend/internal/config"
	"classhub_backend/pkg/logger"
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type MailMessage struct {
	ToName    string
	ToAddress string
	Subject   string
	Text      string
}

type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

type sendgridMailer struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

func (m *sendgridMailer) Send(ctx context.Context, msg MailMessage) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))

	res, err := m.client.SendWithContext(ctx, v3)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// consoleMailer writes mails to the log; used in development.
type consoleMailer struct{}

func (consoleMailer) Send(_ context.Context, msg MailMessage) error {
	logger.Log.Info("mail",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// NewMailer returns nil when mail delivery is switched off.
func NewMailer(cfg config.MailConfig) Mailer {
	switch cfg.Provider {
	case "sendgrid":
		if cfg.SendgridKey == "" {
			logger.Log.Warn("mail provider is sendgrid but no API key is set, mails go to the log")
			return consoleMailer{}
		}
		return &sendgridMailer{
			client:     sendgrid.NewSendClient(cfg.SendgridKey),
			from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
			subjPrefix: "[" + cfg.FromName + "] ",
		}
	case "console":
		return consoleMailer{}
	default:
		return nil
	}
}
