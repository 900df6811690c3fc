package service

import (
	"context"
	"fmt"

	"gearshare-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridService = "sendgrid"

type sendGridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewEmailService returns a SendGrid sender, or a sender that only logs when no API key
// is configured.
func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	if apiKey == "" {
		return logEmailService{}
	}
	return &sendGridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) SendBookingUpdate(ctx context.Context, toEmail, toName, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, toEmail)
	text := fmt.Sprintf("Hello %s,\n\n%s\n\nThe GearShare Team", toName, body)
	message := mail.NewSingleEmail(from, subject, recipient, text, "")

	logger.ExternalServiceCall(sendGridService, "mail.send", "to", toEmail)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult(sendGridService, "mail.send", err, "to", toEmail)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logEmailService struct{}

func (logEmailService) SendBookingUpdate(ctx context.Context, toEmail, toName, subject, body string) error {
	logger.Debug("Email delivery disabled", "to", toEmail, "subject", subject)
	return nil
}
