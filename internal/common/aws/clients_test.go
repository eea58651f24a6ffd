package aws

import (
	"context"
	"testing"

	"carematch-engine/internal/common/config"
	stderrors "carematch-engine/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSESClient_RequiresAddresses(t *testing.T) {
	var cfg config.NotifyConfig
	cfg.Email.FromEmail = "reports@carematch.example"

	_, err := NewSESClient(context.Background(), cfg)
	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeConfigurationInvalid, stdErr.Code)
}

func TestNewSNSClient_RequiresTopicARN(t *testing.T) {
	var cfg config.NotifyConfig
	cfg.AWS.Region = "eu-west-2"

	_, err := NewSNSClient(context.Background(), cfg)
	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeConfigurationInvalid, stdErr.Code)
}
