// Package client builds the Redshift Data API client for a data source
// instance from its AWS authentication settings.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/grafana/grafana-aws-sdk/pkg/awsauth"
	"github.com/grafana/grafana-aws-sdk/pkg/awsds"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/redshiftiface"
)

// ClientError represents an error specifically related to building the client.
type ClientError struct {
	Msg string
	Err error // Wrapped error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redshift client error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("redshift client error: %s", e.Msg)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// ClientConfig holds transport options for the Redshift Data API client.
type ClientConfig struct {
	Timeout          time.Duration
	RetryMaxAttempts int
	AppID            string
}

// DefaultConfig returns a ClientConfig with sensible defaults
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:          30 * time.Second,
		RetryMaxAttempts: 3,
		AppID:            "grafana-redshift-datasource",
	}
}

// ClientFactory defines an interface for creating Redshift Data API clients.
// This allows for dependency injection and better testing.
type ClientFactory interface {
	NewClient(ctx context.Context, settings *models.Settings) (redshiftiface.RedshiftDataAPI, error)
}

// DefaultClientFactory builds real clients with the AWS SDK. Credentials are
// resolved by Provider, which honors the auth providers Grafana allows.
type DefaultClientFactory struct {
	Config   ClientConfig
	Provider awsauth.ConfigProvider
}

// NewDefaultClientFactory returns a factory using DefaultConfig and the
// grafana-aws-sdk config provider.
func NewDefaultClientFactory() *DefaultClientFactory {
	return &DefaultClientFactory{Config: DefaultConfig(), Provider: awsauth.NewConfigProvider()}
}

// NewClient implements ClientFactory.
func (f *DefaultClientFactory) NewClient(ctx context.Context, settings *models.Settings) (redshiftiface.RedshiftDataAPI, error) {
	provider := f.Provider
	if provider == nil {
		provider = awsauth.NewConfigProvider()
	}
	cfg, err := LoadAWSConfig(ctx, provider, settings, f.Config)
	if err != nil {
		return nil, err
	}

	var optFns []func(*redshiftdata.Options)
	if settings.Endpoint != "" {
		endpoint := settings.Endpoint
		optFns = append(optFns, func(o *redshiftdata.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return redshiftdata.NewFromConfig(cfg, optFns...), nil
}

// Region returns the region statements are sent to.
func Region(settings *models.Settings) string {
	if settings.Region == "" || settings.Region == "default" {
		return settings.DefaultRegion
	}
	return settings.Region
}

// AuthSettings converts data source settings into the settings the awsauth
// config provider resolves credentials from.
func AuthSettings(settings *models.Settings, cc ClientConfig) awsauth.Settings {
	authSettings := awsauth.Settings{
		LegacyAuthType:     settings.AuthType,
		AccessKey:          settings.AccessKey,
		SecretKey:          settings.SecretKey,
		SessionToken:       settings.SessionToken,
		Region:             Region(settings),
		CredentialsProfile: settings.Profile,
		AssumeRoleARN:      settings.AssumeRoleARN,
		ExternalID:         settings.ExternalID,
		Endpoint:           settings.Endpoint,
		UserAgent:          cc.AppID,
	}
	if cc.Timeout > 0 {
		authSettings.HTTPClient = &http.Client{Timeout: cc.Timeout}
	}
	return authSettings
}

// LoadAWSConfig resolves the AWS configuration for settings through provider.
// Assume role, including the Grafana managed role, is handled by the provider.
func LoadAWSConfig(ctx context.Context, provider awsauth.ConfigProvider, settings *models.Settings, cc ClientConfig) (aws.Config, error) {
	if settings == nil {
		return aws.Config{}, &ClientError{Msg: "settings cannot be nil"}
	}
	if Region(settings) == "" {
		return aws.Config{}, &ClientError{Msg: "no AWS region configured"}
	}
	if settings.AuthType == awsds.AuthTypeKeys && (settings.AccessKey == "" || settings.SecretKey == "") {
		return aws.Config{}, &ClientError{Msg: "access key and secret key are required for access key authentication"}
	}

	authSettings := AuthSettings(settings, cc)
	log.DefaultLogger.Debug("Loading AWS config", "authType", authSettings.GetAuthType(), "region", authSettings.Region)

	cfg, err := provider.GetConfig(ctx, authSettings)
	if err != nil {
		return aws.Config{}, &ClientError{Msg: "failed to load AWS configuration", Err: err}
	}
	if cc.RetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = cc.RetryMaxAttempts
	}
	if cc.AppID != "" {
		cfg.AppID = cc.AppID
	}
	return cfg, nil
}
