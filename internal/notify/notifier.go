// Package notify delivers report-ready notifications to the care
// advisor team over email and SMS.
package notify

import (
	"context"
	"fmt"

	"carematch-engine/internal/common/config"
	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// EmailSender is the SES surface the notifier uses.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is the SNS surface the notifier uses.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier sends a report-ready message per channel the configuration
// enables. Delivery failures are logged, never propagated: a report is
// not less done because an email bounced.
type Notifier struct {
	email EmailSender
	sms   SMSSender
	cfg   config.NotifyConfig
	log   logger.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, cfg config.NotifyConfig, log logger.Logger) *Notifier {
	return &Notifier{email: email, sms: sms, cfg: cfg, log: log}
}

// ReportReady announces a job that reached partial or completed with
// results.
func (n *Notifier) ReportReady(ctx context.Context, job *models.ReportJob) {
	if n.cfg.Email.Enabled && n.email != nil {
		if err := n.sendEmail(ctx, job); err != nil {
			n.log.WithError(err).Warn("report email not delivered", map[string]interface{}{"jobId": job.ID})
		}
	}
	if n.cfg.SMS.Enabled && n.sms != nil {
		if err := n.sendSMS(ctx, job); err != nil {
			n.log.WithError(err).Warn("report SMS not delivered", map[string]interface{}{"jobId": job.ID})
		}
	}
}

func (n *Notifier) sendEmail(ctx context.Context, job *models.ReportJob) error {
	subject := fmt.Sprintf("Care match report %s is ready", job.ID)
	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.Email.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(emailBody(job))},
			},
		},
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError("email", err)
	}
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, job *models.ReportJob) error {
	msg := fmt.Sprintf("Care match report %s ready: %s, data completeness %.0f%%",
		job.ID, job.Status, job.CompletenessPercent)
	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.SMS.TopicARN),
		Message:  aws.String(msg),
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError("sms", err)
	}
	return nil
}

func emailBody(job *models.ReportJob) string {
	body := fmt.Sprintf(
		"Report job %s finished with status %s.\nData completeness: %.1f%%.\nTop matches:\n",
		job.ID, job.Status, job.CompletenessPercent,
	)
	for i, r := range job.Results {
		if i >= 3 {
			break
		}
		body += fmt.Sprintf("  %d. %s (%.2f)\n", i+1, r.CandidateName, r.TotalScore)
	}
	if len(job.MissingSources) > 0 {
		body += fmt.Sprintf("%d data points are still missing and may be retried.\n", len(job.MissingSources))
	}
	return body
}
