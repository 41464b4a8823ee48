// Package notify raises the side channels fired when a conversation is
// handed to a human agent. Notification failures are logged and counted but
// never fail the turn that triggered them.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/models"
)

// Notifier tells the commercial team a session needs a human.
type Notifier interface {
	NotifyTransfer(ctx context.Context, sess *models.Session) error
}

// SESService is the slice of the SES client the notifier uses.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SNSService is the slice of the SNS client the notifier uses.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Config selects which channels fire.
type Config struct {
	EmailEnabled bool
	FromEmail    string
	ToEmail      string
	SMSEnabled   bool
	ToPhone      string
}

// AgentTransfer sends the transfer notice over email and/or SMS.
type AgentTransfer struct {
	config Config
	sesSvc SESService
	snsSvc SNSService
	logger logger.Logger
}

var _ Notifier = (*AgentTransfer)(nil)

func NewAgentTransfer(config Config, sesSvc SESService, snsSvc SNSService, log logger.Logger) *AgentTransfer {
	return &AgentTransfer{
		config: config,
		sesSvc: sesSvc,
		snsSvc: snsSvc,
		logger: log,
	}
}

// NotifyTransfer fires every enabled channel. It returns the first failure
// but still attempts the remaining channels.
func (a *AgentTransfer) NotifyTransfer(ctx context.Context, sess *models.Session) error {
	var firstErr error

	if a.config.EmailEnabled && a.sesSvc != nil {
		if err := a.sendEmail(ctx, sess); err != nil {
			a.logger.WithError(err).Warn("transfer email failed", map[string]interface{}{
				"session_token": sess.Token,
			})
			firstErr = apperrors.NewNotificationSendError(err.Error())
		}
	}

	if a.config.SMSEnabled && a.snsSvc != nil {
		if err := a.sendSMS(ctx, sess); err != nil {
			a.logger.WithError(err).Warn("transfer sms failed", map[string]interface{}{
				"session_token": sess.Token,
			})
			if firstErr == nil {
				firstErr = apperrors.NewNotificationSendError(err.Error())
			}
		}
	}
	return firstErr
}

func (a *AgentTransfer) sendEmail(ctx context.Context, sess *models.Session) error {
	subject := "Atendimento transferido para atendente"
	body := fmt.Sprintf(
		"Sessão %s foi transferida para atendimento humano.\n\n"+
			"Cliente: %s\nTipo: %s\nCategoria: %s\n",
		sess.Token, displayName(sess), sess.CustomerType, sess.Category,
	)

	_, err := a.sesSvc.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(a.config.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{a.config.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (a *AgentTransfer) sendSMS(ctx context.Context, sess *models.Session) error {
	message := fmt.Sprintf("Bridor: sessão %s aguardando atendente (%s)", sess.Token, displayName(sess))
	_, err := a.snsSvc.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(a.config.ToPhone),
		Message:     aws.String(message),
	})
	return err
}

func displayName(sess *models.Session) string {
	switch {
	case sess.CustomerName != "":
		return sess.CustomerName
	case sess.LeadName != "":
		return sess.LeadName
	default:
		return "não identificado"
	}
}

// NoOp is used when no notification channel is configured.
type NoOp struct{}

func (NoOp) NotifyTransfer(context.Context, *models.Session) error { return nil }
