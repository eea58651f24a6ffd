// Package aws builds the SDK clients behind the report-ready
// notification channels.
package aws

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"

	"carematch-engine/internal/common/config"
	stderrors "carematch-engine/internal/common/errors"
)

// SESClient delivers report-ready emails to the care advisor team.
type SESClient struct {
	client *ses.Client
}

// NewSESClient builds the email channel client. Sender and recipient
// addresses must be configured before the channel can be enabled.
func NewSESClient(ctx context.Context, cfg config.NotifyConfig) (*SESClient, error) {
	if cfg.Email.FromEmail == "" || cfg.Email.ToEmail == "" {
		return nil, stderrors.NewConfigurationInvalidError("notifications.email needs from_email and to_email")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(awsCfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input)
}
