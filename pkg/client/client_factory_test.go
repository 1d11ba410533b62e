package client

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/grafana/grafana-aws-sdk/pkg/awsauth"
	"github.com/grafana/grafana-aws-sdk/pkg/awsds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redshift-grafana-plugin/pkg/models"
)

// recordingProvider satisfies awsauth.ConfigProvider and keeps the settings of
// the last call.
type recordingProvider struct {
	calls int
	last  awsauth.Settings
	err   error
}

func (p *recordingProvider) GetConfig(_ context.Context, s awsauth.Settings) (aws.Config, error) {
	p.calls++
	p.last = s
	if p.err != nil {
		return aws.Config{}, p.err
	}
	return aws.Config{
		Region:      s.Region,
		Credentials: credentials.NewStaticCredentialsProvider("AKID", "secret", ""),
	}, nil
}

func newSettings(mutate func(s *models.Settings)) *models.Settings {
	s := &models.Settings{}
	s.Region = "us-east-2"
	s.AuthType = awsds.AuthTypeDefault
	if mutate != nil {
		mutate(s)
	}
	return s
}

func TestLoadAWSConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings *models.Settings
		errMsg   string
		check    func(t *testing.T, got awsauth.Settings, cfg aws.Config)
	}{
		{
			name:     "default chain",
			settings: newSettings(nil),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, awsauth.AuthTypeDefault, got.GetAuthType())
				assert.Equal(t, "us-east-2", got.Region)
				assert.Equal(t, "grafana-redshift-datasource", got.UserAgent)
				require.NotNil(t, got.HTTPClient)
				assert.Equal(t, DefaultConfig().Timeout, got.HTTPClient.Timeout)
				assert.Equal(t, 3, cfg.RetryMaxAttempts)
				assert.Equal(t, "grafana-redshift-datasource", cfg.AppID)
			},
		},
		{
			name: "default region fallback",
			settings: newSettings(func(s *models.Settings) {
				s.Region = "default"
				s.DefaultRegion = "eu-west-1"
			}),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, "eu-west-1", got.Region)
				assert.Equal(t, "eu-west-1", cfg.Region)
			},
		},
		{
			name: "shared credentials profile",
			settings: newSettings(func(s *models.Settings) {
				s.AuthType = awsds.AuthTypeSharedCreds
				s.Profile = "analytics"
			}),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, awsauth.AuthTypeSharedCreds, got.GetAuthType())
				assert.Equal(t, "analytics", got.CredentialsProfile)
			},
		},
		{
			name: "static keys",
			settings: newSettings(func(s *models.Settings) {
				s.AuthType = awsds.AuthTypeKeys
				s.AccessKey = "AKID"
				s.SecretKey = "secret"
				s.SessionToken = "token"
			}),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, awsauth.AuthTypeKeys, got.GetAuthType())
				assert.Equal(t, "AKID", got.AccessKey)
				assert.Equal(t, "secret", got.SecretKey)
				assert.Equal(t, "token", got.SessionToken)
			},
		},
		{
			name: "static keys missing secret",
			settings: newSettings(func(s *models.Settings) {
				s.AuthType = awsds.AuthTypeKeys
				s.AccessKey = "AKID"
			}),
			errMsg: "access key and secret key are required",
		},
		{
			name: "assume role is passed to the provider",
			settings: newSettings(func(s *models.Settings) {
				s.AssumeRoleARN = "arn:aws:iam::123456789012:role/grafana"
				s.ExternalID = "ext"
			}),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, "arn:aws:iam::123456789012:role/grafana", got.AssumeRoleARN)
				assert.Equal(t, "ext", got.ExternalID)
			},
		},
		{
			name: "grafana assume role is supported",
			settings: newSettings(func(s *models.Settings) {
				s.AuthType = awsds.AuthTypeGrafanaAssumeRole
				s.AssumeRoleARN = "arn:aws:iam::123456789012:role/grafana"
			}),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, awsauth.AuthTypeGrafanaAssumeRole, got.GetAuthType())
				assert.NotNil(t, cfg.Credentials)
			},
		},
		{
			name: "custom endpoint",
			settings: newSettings(func(s *models.Settings) {
				s.Endpoint = "https://redshift-data.example.com"
			}),
			check: func(t *testing.T, got awsauth.Settings, cfg aws.Config) {
				assert.Equal(t, "https://redshift-data.example.com", got.Endpoint)
			},
		},
		{
			name: "missing region",
			settings: newSettings(func(s *models.Settings) {
				s.Region = ""
			}),
			errMsg: "no AWS region configured",
		},
		{
			name:     "nil settings",
			settings: nil,
			errMsg:   "settings cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &recordingProvider{}
			cfg, err := LoadAWSConfig(context.Background(), provider, tt.settings, DefaultConfig())
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				var cErr *ClientError
				assert.ErrorAs(t, err, &cErr)
				assert.Zero(t, provider.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, provider.calls)
			tt.check(t, provider.last, cfg)
		})
	}
}

func TestLoadAWSConfig_ProviderFailure(t *testing.T) {
	provider := &recordingProvider{err: errors.New("no credentials")}

	_, err := LoadAWSConfig(context.Background(), provider, newSettings(nil), DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load AWS configuration")
	assert.Contains(t, err.Error(), "no credentials")
}

func TestAuthSettings_NoTimeout(t *testing.T) {
	got := AuthSettings(newSettings(nil), ClientConfig{})
	assert.Nil(t, got.HTTPClient)
	assert.Empty(t, got.UserAgent)
}

func TestDefaultClientFactory_NewClient(t *testing.T) {
	factory := &DefaultClientFactory{Config: DefaultConfig(), Provider: awsauth.NewFakeConfigProvider(false)}
	api, err := factory.NewClient(context.Background(), newSettings(func(s *models.Settings) {
		s.Endpoint = "https://redshift-data.example.com"
	}))
	require.NoError(t, err)
	assert.NotNil(t, api)
}

func TestDefaultClientFactory_NewClientError(t *testing.T) {
	t.Run("missing region", func(t *testing.T) {
		factory := &DefaultClientFactory{Config: DefaultConfig(), Provider: awsauth.NewFakeConfigProvider(false)}
		_, err := factory.NewClient(context.Background(), newSettings(func(s *models.Settings) {
			s.Region = ""
		}))
		assert.Error(t, err)
	})

	t.Run("provider failure", func(t *testing.T) {
		factory := &DefaultClientFactory{Config: DefaultConfig(), Provider: awsauth.NewFakeConfigProvider(true)}
		_, err := factory.NewClient(context.Background(), newSettings(nil))
		assert.ErrorContains(t, err, "LoadDefaultConfig failed")
	})
}

func TestNewDefaultClientFactory(t *testing.T) {
	factory := NewDefaultClientFactory()
	assert.NotNil(t, factory.Provider)
	assert.Equal(t, DefaultConfig(), factory.Config)
}
