package aws

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"carematch-engine/internal/common/config"
	stderrors "carematch-engine/internal/common/errors"
)

// SNSClient delivers report-ready SMS messages.
type SNSClient struct {
	client *sns.Client
}

// NewSNSClient builds the SMS channel client. The topic ARN must be
// configured before the channel can be enabled.
func NewSNSClient(ctx context.Context, cfg config.NotifyConfig) (*SNSClient, error) {
	if cfg.SMS.TopicARN == "" {
		return nil, stderrors.NewConfigurationInvalidError("notifications.sms needs topic_arn")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}
