package notify

import (
	"context"
	"errors"
	"testing"

	"carematch-engine/internal/common/config"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmail struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeEmail) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, f.err
}

type fakeSMS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSMS) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, f.err
}

func notifyConfig(email, sms bool) config.NotifyConfig {
	var cfg config.NotifyConfig
	cfg.Email.Enabled = email
	cfg.Email.FromEmail = "reports@carematch.example"
	cfg.Email.ToEmail = "advisors@carematch.example"
	cfg.SMS.Enabled = sms
	cfg.SMS.TopicARN = "arn:aws:sns:eu-west-2:000000000000:report-ready"
	return cfg
}

func readyJob() *models.ReportJob {
	return &models.ReportJob{
		ID:                  "job-1",
		Status:              models.JobCompleted,
		CompletenessPercent: 100,
		Results: []models.MatchResult{
			{CandidateName: "Avon House", TotalScore: 84.5},
			{CandidateName: "Brunel Lodge", TotalScore: 79.25},
		},
	}
}

func TestReportReady_SendsEnabledChannels(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	n := NewNotifier(email, sms, notifyConfig(true, true), logger.NewTestLogger(t))

	n.ReportReady(context.Background(), readyJob())

	require.Len(t, email.inputs, 1)
	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "reports@carematch.example", *email.inputs[0].Source)
	assert.Contains(t, *email.inputs[0].Message.Body.Text.Data, "Avon House")
	assert.Contains(t, *sms.inputs[0].Message, "job-1")
}

func TestReportReady_DisabledChannelsStaySilent(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	n := NewNotifier(email, sms, notifyConfig(false, false), logger.NewTestLogger(t))

	n.ReportReady(context.Background(), readyJob())

	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}

func TestReportReady_DeliveryFailureDoesNotPanic(t *testing.T) {
	email := &fakeEmail{err: errors.New("throttled")}
	n := NewNotifier(email, nil, notifyConfig(true, true), logger.NewTestLogger(t))

	require.NotPanics(t, func() {
		n.ReportReady(context.Background(), readyJob())
	})
}

func TestEmailBody_MentionsMissingData(t *testing.T) {
	job := readyJob()
	job.Status = models.JobPartial
	job.CompletenessPercent = 80
	job.MissingSources = []models.SourceOutcome{{CandidateID: "a", Source: "places"}}

	body := emailBody(job)
	assert.Contains(t, body, "1 data points are still missing")
}
